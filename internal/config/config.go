package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration required by the hotline process.
// All values must come from env (or a .env file loaded by main).
// Nothing below cmd/ reads the environment directly; components receive
// the pieces they need from this value.
type Config struct {
	App       AppConfig
	Nexmo     NexmoConfig
	Hotline   HotlineConfig
	Recording RecordingConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// NexmoConfig carries both credential sets: the voice application identity
// (JWT auth) and the account key/secret used by the SMS API.
type NexmoConfig struct {
	AppID      string
	PrivateKey string

	APIKey    string
	APISecret string

	HotlineNumber string

	// Optional overrides, mostly for tests and regional endpoints.
	VoiceBaseURL string
	RestBaseURL  string

	// DryRun logs provider requests instead of sending them. Not allowed in production.
	DryRun bool
}

type HotlineConfig struct {
	// Description is spoken and texted back, e.g. "PyCascades Code of Conduct Hotline".
	Description string

	// BaseURL is the public origin the provider uses to reach our webhooks.
	BaseURL string

	Roster []StaffEntry
}

// StaffEntry is the on-disk/env shape of one roster entry.
type StaffEntry struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type RecordingConfig struct {
	Enabled     bool
	CallbackURL string

	// HoldMusic overrides the built-in playlist when non-empty.
	HoldMusic []string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Nexmo = loadNexmo()
	{
		b, err := optionalBool("NEXMO_DRY_RUN")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Nexmo.DryRun = b
	}

	c.Hotline.Description = strings.TrimSpace(os.Getenv("HOTLINE_DESCRIPTION"))
	c.Hotline.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("HOTLINE_BASE_URL")), "/")
	{
		roster, err := parseRoster(os.Getenv("PHONE_NUMBERS"))
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Hotline.Roster = roster
	}

	{
		b, err := optionalBool("RECORDING_ENABLED")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Recording.Enabled = b
	}
	c.Recording.CallbackURL = strings.TrimSpace(os.Getenv("RECORDING_CALLBACK_URL"))
	c.Recording.HoldMusic = splitList(os.Getenv("HOLD_MUSIC_URLS"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadVoiceCredentials loads only the voice application identity. Used by
// tooling that talks to the voice API without serving webhooks.
func LoadVoiceCredentials() (NexmoConfig, error) {
	n := loadNexmo()
	var errs []error
	if n.AppID == "" {
		errs = append(errs, errors.New("NEXMO_APP_ID is required"))
	}
	if strings.TrimSpace(n.PrivateKey) == "" {
		errs = append(errs, errors.New("NEXMO_PRIVATE_KEY_VOICE_APP is required"))
	}
	if err := joinErrors(errs); err != nil {
		return NexmoConfig{}, err
	}
	return n, nil
}

func loadNexmo() NexmoConfig {
	return NexmoConfig{
		AppID:         strings.TrimSpace(os.Getenv("NEXMO_APP_ID")),
		PrivateKey:    os.Getenv("NEXMO_PRIVATE_KEY_VOICE_APP"),
		APIKey:        strings.TrimSpace(os.Getenv("NEXMO_API_KEY")),
		APISecret:     os.Getenv("NEXMO_API_SECRET"),
		HotlineNumber: strings.TrimSpace(os.Getenv("NEXMO_HOTLINE_NUMBER")),
		VoiceBaseURL:  strings.TrimSpace(os.Getenv("NEXMO_VOICE_BASE_URL")),
		RestBaseURL:   strings.TrimSpace(os.Getenv("NEXMO_REST_BASE_URL")),
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Nexmo.DryRun {
		if c.IsProduction() {
			errs = append(errs, errors.New("NEXMO_DRY_RUN is not allowed in production"))
		}
	} else {
		if c.Nexmo.AppID == "" {
			errs = append(errs, errors.New("NEXMO_APP_ID is required"))
		}
		if strings.TrimSpace(c.Nexmo.PrivateKey) == "" {
			errs = append(errs, errors.New("NEXMO_PRIVATE_KEY_VOICE_APP is required"))
		}
		if c.Nexmo.APIKey == "" {
			errs = append(errs, errors.New("NEXMO_API_KEY is required"))
		}
		if c.Nexmo.APISecret == "" {
			errs = append(errs, errors.New("NEXMO_API_SECRET is required"))
		}
	}
	if c.Nexmo.HotlineNumber == "" {
		errs = append(errs, errors.New("NEXMO_HOTLINE_NUMBER is required"))
	}

	if c.Hotline.Description == "" {
		errs = append(errs, errors.New("HOTLINE_DESCRIPTION is required"))
	}
	if c.Hotline.BaseURL == "" {
		errs = append(errs, errors.New("HOTLINE_BASE_URL is required"))
	} else if !isAbsoluteURL(c.Hotline.BaseURL) {
		errs = append(errs, fmt.Errorf("HOTLINE_BASE_URL must be an absolute http(s) URL, got %q", c.Hotline.BaseURL))
	}
	if len(c.Hotline.Roster) == 0 {
		errs = append(errs, errors.New("PHONE_NUMBERS must list at least one staff member"))
	}
	for i, e := range c.Hotline.Roster {
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Phone) == "" {
			errs = append(errs, fmt.Errorf("PHONE_NUMBERS[%d] needs both name and phone", i))
		}
	}

	if c.Recording.Enabled {
		if c.Recording.CallbackURL == "" {
			errs = append(errs, errors.New("RECORDING_CALLBACK_URL is required when RECORDING_ENABLED is set"))
		} else if !isAbsoluteURL(c.Recording.CallbackURL) {
			errs = append(errs, fmt.Errorf("RECORDING_CALLBACK_URL must be an absolute http(s) URL, got %q", c.Recording.CallbackURL))
		}
	}
	for _, u := range c.Recording.HoldMusic {
		if !isAbsoluteURL(u) {
			errs = append(errs, fmt.Errorf("HOLD_MUSIC_URLS entry must be an absolute http(s) URL, got %q", u))
		}
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func parseRoster(raw string) ([]StaffEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("PHONE_NUMBERS is required")
	}
	var out []StaffEntry
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("PHONE_NUMBERS must be a JSON list of {\"name\",\"phone\"}: %w", err)
	}
	return out, nil
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isAbsoluteURL(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
