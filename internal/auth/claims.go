package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the application token shape the voice API accepts.
// ApplicationID must match the voice application the key belongs to.
type Claims struct {
	jwt.RegisteredClaims

	ApplicationID string `json:"application_id"`
}
