package directus

import (
	"errors"
	"time"

	"content-mesh/internal/pkg/config"
)

// ErrIncompleteCredentials is returned when only one of email and password is set.
var ErrIncompleteCredentials = errors.New("directus: email and password must be set together")

// Config contains configuration for the content API client.
type Config struct {
	// BaseURL is the API root, e.g. https://cms.example.com
	BaseURL string

	// Token is a static access token. It takes precedence over Email/Password.
	Token string

	// Email and Password enable login with token refresh
	Email    string
	Password string

	// RequestsPerSecond caps the client-side request rate (0 = unlimited)
	RequestsPerSecond int

	// Burst is the number of requests allowed above the rate
	Burst int

	// HTTPTimeout bounds a single HTTP round-trip
	HTTPTimeout time.Duration
}

// DefaultConfig returns a Config without URL or credentials.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		Burst:             20,
		HTTPTimeout:       30 * time.Second,
	}
}

// LoadConfig reads the client configuration from the environment.
// Invalid values fall back to DefaultConfig and are recorded on l.
func LoadConfig(l *config.Loader) Config {
	d := DefaultConfig()
	return Config{
		BaseURL:           config.LoadEnvString("CONTENT_API_URL", ""),
		Token:             config.LoadEnvString("CONTENT_API_TOKEN", ""),
		Email:             config.LoadEnvString("CONTENT_API_EMAIL", ""),
		Password:          config.LoadEnvString("CONTENT_API_PASSWORD", ""),
		RequestsPerSecond: config.Collect(l, "api_rps", config.LoadEnvInt("CONTENT_API_RPS", d.RequestsPerSecond, config.ValidateNonNegativeInt)),
		Burst:             config.Collect(l, "api_burst", config.LoadEnvInt("CONTENT_API_BURST", d.Burst, func(v int) error { return config.ValidateIntRange(v, 1, 1000) })),
		HTTPTimeout:       config.Collect(l, "api_http_timeout", config.LoadEnvDuration("CONTENT_API_HTTP_TIMEOUT", d.HTTPTimeout, config.ValidatePositiveDuration)),
	}
}

// Validate checks the fields that have no usable default.
func (c Config) Validate() error {
	if err := config.ValidateHTTPURL(c.BaseURL); err != nil {
		return err
	}
	if c.Token == "" && (c.Email == "") != (c.Password == "") {
		return ErrIncompleteCredentials
	}
	return nil
}
