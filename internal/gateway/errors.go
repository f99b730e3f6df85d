package gateway

import "errors"

// ValidationError rejects a connection during origin validation, before any
// backend resource is allocated.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

var (
	// ErrInvalidToken is returned when the authorization backend cannot
	// resolve the presented token, including an empty or missing one.
	ErrInvalidToken = errors.New("invalid or missing console token")

	// ErrInvalidConnectionInfo is returned when the internal gateway
	// handshake fails after the backend TCP connection was opened.
	ErrInvalidConnectionInfo = errors.New("invalid connection info")
)
