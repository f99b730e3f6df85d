package gateway

import (
	"net"
	"net/url"

	"consolegw/internal/config"
)

// OriginValidator enforces that a browser's declared Origin matches the host
// that accepted the upgrade and the protocol scheme configured for the
// session's console type. It is a pure security gate: no side effects, and
// it runs before any backend resource is allocated.
type OriginValidator struct {
	cfg *config.Config
}

func NewOriginValidator(cfg *config.Config) *OriginValidator {
	return &OriginValidator{cfg: cfg}
}

// Validate checks the Origin header against the expected hostname (the Host
// header minus any port suffix) and the console type's configured scheme.
// An absent Origin passes: non-browser clients do not send one. An unknown
// console type fails regardless of Origin presence.
func (v *OriginValidator) Validate(host, origin, consoleType string) error {
	expectedScheme, ok := v.cfg.ExpectedScheme(consoleType)
	if !ok {
		return &ValidationError{Detail: "invalid console type"}
	}

	if origin == "" {
		return nil
	}

	expectedHostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		expectedHostname = h
	}

	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" || u.Scheme == "" {
		return &ValidationError{Detail: "origin header not valid"}
	}
	if u.Hostname() != expectedHostname {
		return &ValidationError{Detail: "origin mismatch"}
	}
	if u.Scheme != expectedScheme {
		return &ValidationError{Detail: "protocol mismatch"}
	}

	return nil
}
