package auth

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"consolegw/internal/constants"
)

// ConnectInfo is the backend location resolved from a console token. It is
// produced at most once per connection and never mutated afterwards.
type ConnectInfo struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	ConsoleType        string `json:"console_type"`
	InternalAccessPath string `json:"internal_access_path,omitempty"`
}

// Addr returns the backend dial address.
func (ci *ConnectInfo) Addr() string {
	return net.JoinHostPort(ci.Host, strconv.Itoa(ci.Port))
}

// Validate checks the fields a control plane must supply before a token can
// be issued for this endpoint.
func (ci *ConnectInfo) Validate() error {
	if ci.Host == "" {
		return fmt.Errorf("host is required")
	}
	if ci.Port < constants.MinPort || ci.Port > constants.MaxPort {
		return fmt.Errorf("port %d out of range", ci.Port)
	}
	switch ci.ConsoleType {
	case constants.ConsoleNovnc, constants.ConsoleSpiceHTML5, constants.ConsoleSerial:
	default:
		return fmt.Errorf("unknown console type %q", ci.ConsoleType)
	}
	return nil
}

// Authorizer resolves a console token to backend connection info via the
// authorization backend. A missing, expired or empty token resolves to
// ok=false; the caller decides how to reject. Implementations are safe for
// concurrent use and perform independent one-shot exchanges per call.
type Authorizer interface {
	Resolve(ctx context.Context, token string) (*ConnectInfo, bool)
	Close() error
}

// Issuer is implemented by authorization backends that can mint tokens
// locally. The remote-service client does not issue.
type Issuer interface {
	Issue(ctx context.Context, info *ConnectInfo, ttl time.Duration) (string, error)
}
