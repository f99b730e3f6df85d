package config

import (
	"fmt"
	"net/url"
	"time"

	"consolegw/internal/constants"
	"consolegw/internal/utils"
)

// Config is the immutable process configuration. It is constructed once at
// startup and passed by reference into the components that need it; nothing
// mutates it afterwards.
type Config struct {
	Port     string
	CertFile string
	KeyFile  string
	UseTLS   bool

	// Base URLs for the three console types. The origin validator only
	// consumes their schemes.
	NovncBaseURL  string
	SpiceBaseURL  string
	SerialBaseURL string

	novncScheme  string
	spiceScheme  string
	serialScheme string

	// AuthURL points at a remote authorization service. When empty the
	// gateway runs its own token store (memory or redis).
	AuthURL  string
	TokenTTL time.Duration
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	c := &Config{
		Port:          utils.GetEnv("CONSOLEGW_PORT", constants.DefaultPort),
		CertFile:      utils.GetEnv("CONSOLEGW_CERT_FILE", "certs/server.crt"),
		KeyFile:       utils.GetEnv("CONSOLEGW_KEY_FILE", "certs/server.key"),
		UseTLS:        utils.GetEnvBool("CONSOLEGW_ENABLE_TLS", false),
		NovncBaseURL:  utils.GetEnv("CONSOLEGW_NOVNC_BASE_URL", "http://127.0.0.1:6080/vnc_auto.html"),
		SpiceBaseURL:  utils.GetEnv("CONSOLEGW_SPICE_BASE_URL", "http://127.0.0.1:6082/spice_auto.html"),
		SerialBaseURL: utils.GetEnv("CONSOLEGW_SERIAL_BASE_URL", "ws://127.0.0.1:6083/"),
		AuthURL:       utils.GetEnv("CONSOLEGW_AUTH_URL", ""),
		TokenTTL:      utils.GetEnvDuration("CONSOLEGW_TOKEN_TTL", constants.DefaultTokenTTL),
	}

	if c.TokenTTL < constants.MinTokenTTL {
		c.TokenTTL = constants.MinTokenTTL
	}
	if c.TokenTTL > constants.MaxTokenTTL {
		c.TokenTTL = constants.MaxTokenTTL
	}

	var err error
	if c.novncScheme, err = baseScheme(c.NovncBaseURL); err != nil {
		return nil, fmt.Errorf("CONSOLEGW_NOVNC_BASE_URL: %w", err)
	}
	if c.spiceScheme, err = baseScheme(c.SpiceBaseURL); err != nil {
		return nil, fmt.Errorf("CONSOLEGW_SPICE_BASE_URL: %w", err)
	}
	if c.serialScheme, err = baseScheme(c.SerialBaseURL); err != nil {
		return nil, fmt.Errorf("CONSOLEGW_SERIAL_BASE_URL: %w", err)
	}

	return c, nil
}

func baseScheme(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("base URL %q has no scheme", rawURL)
	}
	return u.Scheme, nil
}

// AccessURL builds the browser-facing URL for a console type with the token
// embedded as a query parameter. Unknown console types return ok=false.
func (c *Config) AccessURL(consoleType, token string) (string, bool) {
	var base string
	switch consoleType {
	case constants.ConsoleNovnc:
		base = c.NovncBaseURL
	case constants.ConsoleSpiceHTML5:
		base = c.SpiceBaseURL
	case constants.ConsoleSerial:
		base = c.SerialBaseURL
	default:
		return "", false
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), true
}

// ExpectedScheme returns the configured base-URL scheme for a console type.
// Unknown console types return ok=false.
func (c *Config) ExpectedScheme(consoleType string) (string, bool) {
	switch consoleType {
	case constants.ConsoleNovnc:
		return c.novncScheme, true
	case constants.ConsoleSpiceHTML5:
		return c.spiceScheme, true
	case constants.ConsoleSerial:
		return c.serialScheme, true
	}
	return "", false
}
