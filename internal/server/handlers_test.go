package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"consolegw/internal/auth"
	"consolegw/internal/config"
	"consolegw/internal/constants"
	"consolegw/internal/gateway"
	"consolegw/internal/security"
	"consolegw/internal/types"
)

func testServer(t *testing.T) (*Server, *auth.MemoryStore) {
	t.Helper()
	t.Setenv("CONSOLEGW_NOVNC_BASE_URL", "http://127.0.0.1:6080/vnc_auto.html")
	t.Setenv("CONSOLEGW_SPICE_BASE_URL", "http://127.0.0.1:6082/spice_auto.html")
	t.Setenv("CONSOLEGW_SERIAL_BASE_URL", "ws://127.0.0.1:6083/")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	store := auth.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	return &Server{
		Config:         cfg,
		Auth:           store,
		Gateway:        gateway.New(store, gateway.NewOriginValidator(cfg)),
		ConnLimiter:    security.NewConnectionLimiter(constants.MaxConnectionsPerIP),
		BruteProtector: security.NewBruteForceProtector(constants.MaxAuthAttempts, constants.BlockDuration),
	}, store
}

// echoBackend accepts connections, sends a banner and echoes what it reads.
// connects counts accepted backend connections so tests can assert that
// rejected sessions never reach the backend.
func echoBackend(t *testing.T, banner string, connects *int32) *auth.ConnectInfo {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(connects, 1)
			go func(c net.Conn) {
				defer c.Close()
				c.Write([]byte(banner))
				buf := make([]byte, 1024)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					if _, err := c.Write(buf[:n]); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return &auth.ConnectInfo{Host: "127.0.0.1", Port: addr.Port, ConsoleType: "novnc"}
}

func dialConsole(ts *httptest.Server, token, origin string) (*websocket.Conn, *http.Response, error) {
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/console"
	if token != "" {
		wsURL += "?token=" + token
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	return dialer.Dial(wsURL, header)
}

func TestConsoleSessionEstablished(t *testing.T) {
	s, store := testServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleConsole))
	defer ts.Close()

	var connects int32
	info := echoBackend(t, "BANNER", &connects)

	token, err := store.Issue(context.Background(), info, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Scenario A: valid token, Origin hostname and scheme matching the
	// configured novnc base URL.
	conn, _, err := dialConsole(ts, token, "http://127.0.0.1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read banner: %v", err)
	}
	if string(msg) != "BANNER" {
		t.Errorf("expected backend banner, got %q", string(msg))
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if !bytes.Equal(msg, []byte("ping")) {
		t.Errorf("expected echo, got %q", string(msg))
	}

	if atomic.LoadInt32(&connects) != 1 {
		t.Errorf("expected exactly one backend connection, got %d", connects)
	}
}

func TestConsoleProtocolMismatchRejected(t *testing.T) {
	s, store := testServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleConsole))
	defer ts.Close()

	var connects int32
	info := echoBackend(t, "BANNER", &connects)

	token, err := store.Issue(context.Background(), info, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Scenario B: same as A but https Origin against a configured http
	// novnc base URL. Rejected before any backend connect.
	_, resp, err := dialConsole(ts, token, "https://127.0.0.1")
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	if atomic.LoadInt32(&connects) != 0 {
		t.Errorf("backend must not be dialed for a rejected session, got %d connects", connects)
	}
}

func TestConsoleMissingTokenRejected(t *testing.T) {
	s, _ := testServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleConsole))
	defer ts.Close()

	var connects int32
	echoBackend(t, "BANNER", &connects)

	// Scenario C: no token in query string or cookie.
	_, resp, err := dialConsole(ts, "", "")
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}

	if atomic.LoadInt32(&connects) != 0 {
		t.Errorf("backend must not be dialed without a token, got %d connects", connects)
	}
}

func TestConsoleNonBrowserClientExempt(t *testing.T) {
	s, store := testServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleConsole))
	defer ts.Close()

	var connects int32
	info := echoBackend(t, "BANNER", &connects)

	token, err := store.Issue(context.Background(), info, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// No Origin header: passes origin validation.
	conn, _, err := dialConsole(ts, token, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

func TestConsoleTokenFromCookie(t *testing.T) {
	s, store := testServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleConsole))
	defer ts.Close()

	var connects int32
	info := echoBackend(t, "BANNER", &connects)

	token, err := store.Issue(context.Background(), info, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/console"
	header := http.Header{}
	header.Set("Cookie", "token="+token)
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial with cookie token: %v", err)
	}
	conn.Close()
}

func TestRegisterIssuesToken(t *testing.T) {
	s, _ := testServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleRegister))
	defer ts.Close()

	body, _ := json.Marshal(auth.ConnectInfo{Host: "10.0.0.5", Port: 6080, ConsoleType: "novnc"})
	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var tok types.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok.Token == "" {
		t.Error("expected a token")
	}
	if !strings.Contains(tok.AccessURL, "token="+tok.Token) {
		t.Errorf("access URL must embed the token, got %q", tok.AccessURL)
	}

	// The issued token resolves through the authorizer.
	got, ok := s.Auth.Resolve(context.Background(), tok.Token)
	if !ok {
		t.Fatal("issued token must resolve")
	}
	if got.Host != "10.0.0.5" || got.Port != 6080 {
		t.Errorf("unexpected connect info: %+v", got)
	}
}

func TestRegisterRejectsBadBody(t *testing.T) {
	s, _ := testServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleRegister))
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestRegisterNotImplementedForRemoteAuth(t *testing.T) {
	s, _ := testServer(t)
	s.Auth = auth.NewHTTPAuthorizer("http://auth.invalid")
	s.Gateway = gateway.New(s.Auth, gateway.NewOriginValidator(s.Config))

	ts := httptest.NewServer(http.HandlerFunc(s.HandleRegister))
	defer ts.Close()

	body, _ := json.Marshal(auth.ConnectInfo{Host: "10.0.0.5", Port: 6080, ConsoleType: "novnc"})
	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", resp.StatusCode)
	}
}
