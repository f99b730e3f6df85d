package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"consolegw/internal/auth"
	"consolegw/internal/constants"
	"consolegw/internal/gateway"
	"consolegw/internal/security"
	"consolegw/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  constants.WSBufferSize,
	WriteBufferSize: constants.WSBufferSize,
	Subprotocols:    []string{"binary"},
	// Origin policy is enforced by the gateway's own validator before the
	// upgrade is attempted, so the upgrader accepts everything here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleConsole serves the WebSocket upgrade endpoint. The pipeline is
// strictly sequential: token extraction, authorization, origin validation,
// upgrade, backend connect (with optional gateway handshake), relay. Any
// failure short-circuits before the next stage runs.
func (s *Server) HandleConsole(w http.ResponseWriter, r *http.Request) {
	clientIP := security.GetClientIP(r)

	if !s.ConnLimiter.TryConnect(clientIP) {
		if s.AuditLogger != nil {
			s.AuditLogger.LogConnectionLimit(clientIP)
		}
		rejectionsTotal.WithLabelValues("connection_limit").Inc()
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}
	defer s.ConnLimiter.Disconnect(clientIP)

	if !s.BruteProtector.Check(clientIP) {
		if s.AuditLogger != nil {
			s.AuditLogger.LogBruteForce(clientIP, constants.MaxAuthAttempts)
		}
		rejectionsTotal.WithLabelValues("brute_force").Inc()
		http.Error(w, "Too many failed attempts. Try again later.", http.StatusTooManyRequests)
		return
	}

	sess, err := s.Gateway.Authorize(r.Context(), r, clientIP)
	if err != nil {
		s.rejectConsole(w, clientIP, err)
		return
	}
	s.BruteProtector.RecordSuccess(clientIP)

	log.Printf("🔌 Console session %s: %s -> %s (%s)", sess.ID, clientIP, sess.Info.Addr(), sess.Info.ConsoleType)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(int64(constants.MaxWSMessageSize))

	backend, err := s.Gateway.Connect(r.Context(), sess)
	if err != nil {
		log.Printf("❌ Session %s: %v", sess.ID, err)
		if s.AuditLogger != nil {
			s.AuditLogger.LogBackendFailure(clientIP, sess.ID, err.Error())
		}
		if errors.Is(err, gateway.ErrInvalidConnectionInfo) {
			rejectionsTotal.WithLabelValues("invalid_connection_info").Inc()
		} else {
			rejectionsTotal.WithLabelValues("backend_unreachable").Inc()
		}
		conn.Close()
		return
	}

	if s.AuditLogger != nil {
		s.AuditLogger.LogSessionStart(clientIP, sess.ID, sess.Info.Addr(), sess.Info.ConsoleType)
	}
	activeSessions.Inc()
	sessionsTotal.Inc()

	client := &countingConn{Conn: gateway.NewWSConn(conn)}
	if err := gateway.Relay(client, backend, sess.Info.Addr()); err != nil {
		log.Printf("Session %s relay ended: %v", sess.ID, err)
	}

	activeSessions.Dec()
	duration := time.Since(sess.StartedAt)
	sessionSeconds.Observe(duration.Seconds())
	if s.AuditLogger != nil {
		s.AuditLogger.LogSessionEnd(clientIP, sess.ID, duration)
	}

	log.Printf("🔌 Console session %s closed after %v", sess.ID, duration.Round(time.Millisecond))
}

func (s *Server) rejectConsole(w http.ResponseWriter, clientIP string, err error) {
	var vErr *gateway.ValidationError
	switch {
	case errors.Is(err, gateway.ErrInvalidToken):
		s.BruteProtector.RecordFailure(clientIP)
		if s.AuditLogger != nil {
			s.AuditLogger.LogTokenRejected(clientIP)
		}
		rejectionsTotal.WithLabelValues("invalid_token").Inc()
		log.Printf("⛔ Rejected console request from %s: invalid token", clientIP)
		http.Error(w, constants.MsgInvalidToken, http.StatusUnauthorized)
	case errors.As(err, &vErr):
		if s.AuditLogger != nil {
			s.AuditLogger.LogOriginRejected(clientIP, vErr.Detail)
		}
		rejectionsTotal.WithLabelValues("origin_rejected").Inc()
		log.Printf("⛔ Rejected console request from %s: %s", clientIP, vErr.Detail)
		http.Error(w, vErr.Detail, http.StatusForbidden)
	default:
		rejectionsTotal.WithLabelValues("internal").Inc()
		log.Printf("❌ Console authorization failed for %s: %v", clientIP, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleRegister issues a console token for a backend endpoint. It is only
// available when the configured authorization backend issues tokens locally;
// with a remote authorization service the endpoint answers 501.
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, constants.MsgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	issuer, ok := s.Auth.(auth.Issuer)
	if !ok {
		http.Error(w, constants.MsgIssueUnsupported, http.StatusNotImplemented)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRegisterBodySize)

	var info auth.ConnectInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		http.Error(w, constants.MsgInvalidJSON, http.StatusBadRequest)
		return
	}

	token, err := issuer.Issue(r.Context(), &info, s.Config.TokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	accessURL, _ := s.Config.AccessURL(info.ConsoleType, token)

	if s.AuditLogger != nil {
		s.AuditLogger.LogTokenIssued(security.GetClientIP(r), info.Addr(), info.ConsoleType)
	}
	log.Printf("✅ Console token issued for %s (%s), expires in %s", info.Addr(), info.ConsoleType, s.Config.TokenTTL)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.TokenResponse{
		Token:     token,
		AccessURL: accessURL,
		ExpiresIn: int64(s.Config.TokenTTL.Seconds()),
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
