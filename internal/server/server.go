package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"consolegw/internal/auth"
	"consolegw/internal/config"
	"consolegw/internal/constants"
	"consolegw/internal/gateway"
	"consolegw/internal/security"
)

type Server struct {
	Config         *config.Config
	Auth           auth.Authorizer
	Gateway        *gateway.Gateway
	ConnLimiter    *security.ConnectionLimiter
	BruteProtector *security.BruteForceProtector
	AuditLogger    *security.AuditLogger
}

func NewServer(cfg *config.Config) (*Server, error) {
	authorizer, err := auth.NewAuthorizer(cfg.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorization backend: %w", err)
	}

	auditLogger, err := security.GetAuditLogger()
	if err != nil {
		log.Printf("Warning: Failed to initialize audit logger: %v", err)
	}

	return &Server{
		Config:         cfg,
		Auth:           authorizer,
		Gateway:        gateway.New(authorizer, gateway.NewOriginValidator(cfg)),
		ConnLimiter:    security.NewConnectionLimiter(constants.MaxConnectionsPerIP),
		BruteProtector: security.NewBruteForceProtector(constants.MaxAuthAttempts, constants.BlockDuration),
		AuditLogger:    auditLogger,
	}, nil
}

func (s *Server) Run() {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.EndpointConsole, s.HandleConsole)
	mux.HandleFunc(constants.EndpointRegister, s.HandleRegister)
	mux.HandleFunc(constants.EndpointHealth, s.HandleHealth)
	mux.Handle(constants.EndpointMetrics, promhttp.Handler())

	var handler http.Handler = mux
	handler = RecoveryMiddleware(handler)
	handler = CorsMiddleware(handler)
	handler = security.SecurityHeaders(handler)

	useTLS := false
	if s.Config.UseTLS {
		if _, err := os.Stat(s.Config.CertFile); err == nil {
			if _, err := os.Stat(s.Config.KeyFile); err == nil {
				useTLS = true
			}
		}

		if !useTLS {
			log.Printf("Warning: CONSOLEGW_ENABLE_TLS is true but certs not found at %s", s.Config.CertFile)
		}
	}

	var h2Handler http.Handler
	if useTLS {
		h2Handler = handler
	} else {
		h2Handler = h2c.NewHandler(handler, &http2.Server{})
	}

	server := &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           h2Handler,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if useTLS {
		log.Printf("🔒 HTTPS enabled (HTTP/2)")
		go func() {
			if err := server.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTPS server error: %v", err)
			}
		}()
	} else {
		log.Printf("🌐 HTTP mode (HTTP/2 enabled)")
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTP server error: %v", err)
			}
		}()
	}

	log.Printf("🚀 console gateway starting on :%s", s.Config.Port)

	<-sigChan
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	s.Cleanup()
	log.Println("✅ Server stopped")
}

func (s *Server) Cleanup() {
	if s.Auth != nil {
		s.Auth.Close()
	}
	if s.AuditLogger != nil {
		s.AuditLogger.Close()
	}
}
