package gateway

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"consolegw/internal/auth"
	"consolegw/internal/constants"
)

var headerTerminator = []byte("\r\n\r\n")

// Connector opens the TCP connection to the console backend and, when the
// session carries an internal access path, performs the CONNECT-style
// handshake that lets one gateway address multiplex several console
// endpoints behind it.
type Connector struct {
	DialTimeout time.Duration
}

func NewConnector() *Connector {
	return &Connector{DialTimeout: constants.DialTimeout}
}

// Connect dials info.Host:info.Port. Dial failures propagate as transport
// errors and are never retried. The returned connection has the handshake
// header block fully consumed; the first payload byte is left for the relay.
func (c *Connector) Connect(ctx context.Context, info *auth.ConnectInfo) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", info.Addr())
	if err != nil {
		return nil, fmt.Errorf("backend connect to %s: %w", info.Addr(), err)
	}

	if info.InternalAccessPath == "" {
		return conn, nil
	}

	pc := newPeekConn(conn)
	if err := pc.handshake(info.InternalAccessPath); err != nil {
		conn.Close()
		return nil, err
	}
	return pc, nil
}

// peekConn layers a bounded peek buffer over the backend connection so the
// handshake reply can be inspected without consuming payload bytes. After
// the handshake, reads drain the buffer before touching the socket again.
type peekConn struct {
	net.Conn
	br *bufio.Reader
}

func newPeekConn(c net.Conn) *peekConn {
	return &peekConn{Conn: c, br: bufio.NewReaderSize(c, constants.MaxHandshakeHeader)}
}

func (pc *peekConn) Read(p []byte) (int, error) {
	return pc.br.Read(p)
}

// CloseRead and CloseWrite forward the half-close to the underlying TCP
// socket so relay teardown can shut the backend down for both directions.
func (pc *peekConn) CloseRead() error {
	if tc, ok := pc.Conn.(*net.TCPConn); ok {
		return tc.CloseRead()
	}
	return nil
}

func (pc *peekConn) CloseWrite() error {
	if tc, ok := pc.Conn.(*net.TCPConn); ok {
		return tc.CloseWrite()
	}
	return nil
}

// handshake sends the CONNECT request line and peeks the reply until the
// blank-line terminator appears. The peek window is capped at
// MaxHandshakeHeader; a reply that exceeds it without terminating is treated
// as a failed handshake. On success exactly the header block is discarded.
func (pc *peekConn) handshake(accessPath string) error {
	pc.Conn.SetDeadline(time.Now().Add(constants.HandshakeTimeout))
	defer pc.Conn.SetDeadline(time.Time{})

	if _, err := fmt.Fprintf(pc.Conn, "CONNECT %s HTTP/1.1\r\n\r\n", accessPath); err != nil {
		return fmt.Errorf("gateway handshake write: %w", err)
	}

	have := 0
	for {
		// Force at least one more byte into the peek window.
		if _, err := pc.br.Peek(have + 1); err != nil {
			return fmt.Errorf("gateway handshake read: %w", err)
		}

		buffered := pc.br.Buffered()
		data, _ := pc.br.Peek(buffered)

		if idx := bytes.Index(data, headerTerminator); idx != -1 {
			header := data[:idx+len(headerTerminator)]
			if !statusLineOK(header) {
				return fmt.Errorf("%w: gateway refused CONNECT to %q", ErrInvalidConnectionInfo, accessPath)
			}
			// Consume the confirmed header block, nothing more.
			if _, err := pc.br.Discard(len(header)); err != nil {
				return fmt.Errorf("gateway handshake discard: %w", err)
			}
			return nil
		}

		if buffered >= constants.MaxHandshakeHeader {
			return fmt.Errorf("%w: handshake header exceeds %d bytes", ErrInvalidConnectionInfo, constants.MaxHandshakeHeader)
		}
		have = buffered
	}
}

// statusLineOK reports whether the first line of the header block carries a
// 2xx status.
func statusLineOK(header []byte) bool {
	line, _, _ := bytes.Cut(header, []byte("\r\n"))
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return false
	}
	code := fields[1]
	if len(code) != 3 || code[0] != '2' {
		return false
	}
	return code[1] >= '0' && code[1] <= '9' && code[2] >= '0' && code[2] <= '9'
}
