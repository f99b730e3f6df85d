package gateway

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"consolegw/internal/auth"
)

// ConsoleSession aggregates everything resolved for one console connection.
// It is owned exclusively by the goroutine handling that connection and
// lives only as long as the connection does.
type ConsoleSession struct {
	ID         string
	RemoteAddr string // raw address literal; reverse DNS is never performed
	Token      string
	Info       *auth.ConnectInfo
	StartedAt  time.Time
}

// Gateway composes the per-connection pipeline: token extraction, session
// authorization, origin validation, backend connect, relay. Stages are
// independent capabilities wired together here; any failure short-circuits
// the chain.
type Gateway struct {
	Auth      auth.Authorizer
	Origin    *OriginValidator
	Connector *Connector
}

func New(authorizer auth.Authorizer, origin *OriginValidator) *Gateway {
	return &Gateway{
		Auth:      authorizer,
		Origin:    origin,
		Connector: NewConnector(),
	}
}

// Authorize runs the pre-connect stages against the inbound request. All
// token and origin checks complete, successfully or not, before any backend
// socket is opened, so rejected sessions never cost backend resources.
func (g *Gateway) Authorize(ctx context.Context, r *http.Request, remoteAddr string) (*ConsoleSession, error) {
	token := ExtractToken(r)

	info, ok := g.Auth.Resolve(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}

	if err := g.Origin.Validate(r.Host, r.Header.Get("Origin"), info.ConsoleType); err != nil {
		return nil, err
	}

	return &ConsoleSession{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		Token:      token,
		Info:       info,
		StartedAt:  time.Now(),
	}, nil
}

// Connect opens the backend connection for an authorized session, including
// the internal gateway handshake when the session requires one.
func (g *Gateway) Connect(ctx context.Context, sess *ConsoleSession) (net.Conn, error) {
	return g.Connector.Connect(ctx, sess.Info)
}
