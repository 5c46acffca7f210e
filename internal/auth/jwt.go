package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"coc-hotline/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTTL = 15 * time.Minute

// Manager mints RS256 application tokens for the voice API.
// The private key is parsed once; tokens are minted per request.
type Manager struct {
	appID string
	key   *rsa.PrivateKey
	ttl   time.Duration
}

func NewManager(cfg config.NexmoConfig) (*Manager, error) {
	if cfg.AppID == "" {
		return nil, errors.New("NEXMO_APP_ID is required")
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, errors.New("NEXMO_PRIVATE_KEY_VOICE_APP is required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(normalizePEM(cfg.PrivateKey)))
	if err != nil {
		return nil, fmt.Errorf("auth: parse voice app private key: %w", err)
	}

	return &Manager{
		appID: cfg.AppID,
		key:   key,
		ttl:   defaultTTL,
	}, nil
}

func (m *Manager) ApplicationID() string { return m.appID }

/* ===================== ISSUE TOKEN ===================== */

func (m *Manager) Issue(now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		ApplicationID: m.appID,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(m.key)
}

/* ===================== VERIFY TOKEN ===================== */

// Verify checks a token minted by this manager. The provider does the real
// verification; this exists for health checks and tests.
func (m *Manager) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30*time.Second),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return &m.key.PublicKey, nil
	})
	if err != nil {
		return Claims{}, err
	}

	if claims.ApplicationID != m.appID {
		return Claims{}, errors.New("application_id mismatch")
	}
	if claims.ID == "" {
		return Claims{}, errors.New("jti missing")
	}
	return claims, nil
}

// normalizePEM undoes the "\n" escaping common when a PEM block is pasted
// into a single-line environment variable.
func normalizePEM(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "\n") {
		s = strings.ReplaceAll(s, `\n`, "\n")
	}
	return s
}
