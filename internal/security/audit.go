package security

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"consolegw/internal/constants"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	IP        string    `json:"ip"`
	SessionID string    `json:"session_id,omitempty"`
	Details   string    `json:"details"`
	Severity  string    `json:"severity"`
}

// AuditLogger writes JSON-lines audit records for console session events,
// capped per minute so a flood of rejected connections cannot fill the disk.
type AuditLogger struct {
	mu          sync.RWMutex
	file        *os.File
	enc         *json.Encoder
	logCount    map[string]int
	windowStart time.Time
}

var (
	instance *AuditLogger
	once     sync.Once
)

func GetAuditLogger() (*AuditLogger, error) {
	var err error
	once.Do(func() {
		instance, err = newAuditLogger()
	})
	return instance, err
}

func newAuditLogger() (*AuditLogger, error) {
	dir, err := getAuditLogDir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	filename := filepath.Join(dir, fmt.Sprintf("audit-%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &AuditLogger{
		file:        file,
		enc:         json.NewEncoder(file),
		logCount:    make(map[string]int),
		windowStart: time.Now(),
	}, nil
}

func getAuditLogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", constants.AppName, "audit"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Logs", constants.AppName, "audit"), nil
	default:
		return filepath.Join(home, ".local", "share", constants.AppName, "audit"), nil
	}
}

func (al *AuditLogger) Log(event AuditEvent) {
	al.mu.Lock()
	defer al.mu.Unlock()

	now := time.Now()

	if now.Sub(al.windowStart) > time.Minute {
		al.windowStart = now
		al.logCount = make(map[string]int)
	}

	totalLogs := 0
	for _, count := range al.logCount {
		totalLogs += count
	}

	if totalLogs >= constants.MaxAuditLogsPerMinute {
		return
	}

	al.logCount[event.EventType]++
	event.Timestamp = now
	al.enc.Encode(event)
}

func (al *AuditLogger) LogTokenRejected(ip string) {
	al.Log(AuditEvent{
		EventType: "token_rejected",
		IP:        ip,
		Details:   "Invalid or missing console token",
		Severity:  "warning",
	})
}

func (al *AuditLogger) LogOriginRejected(ip, detail string) {
	al.Log(AuditEvent{
		EventType: "origin_rejected",
		IP:        ip,
		Details:   detail,
		Severity:  "warning",
	})
}

func (al *AuditLogger) LogSessionStart(ip, sessionID, backend, consoleType string) {
	al.Log(AuditEvent{
		EventType: "session_start",
		IP:        ip,
		SessionID: sessionID,
		Details:   fmt.Sprintf("Console session to %s (%s)", backend, consoleType),
		Severity:  "info",
	})
}

func (al *AuditLogger) LogSessionEnd(ip, sessionID string, duration time.Duration) {
	al.Log(AuditEvent{
		EventType: "session_end",
		IP:        ip,
		SessionID: sessionID,
		Details:   fmt.Sprintf("Console session closed after %v", duration.Round(time.Millisecond)),
		Severity:  "info",
	})
}

func (al *AuditLogger) LogBackendFailure(ip, sessionID, reason string) {
	al.Log(AuditEvent{
		EventType: "backend_failure",
		IP:        ip,
		SessionID: sessionID,
		Details:   reason,
		Severity:  "warning",
	})
}

func (al *AuditLogger) LogConnectionLimit(ip string) {
	al.Log(AuditEvent{
		EventType: "connection_limit",
		IP:        ip,
		Details:   "Connection limit exceeded",
		Severity:  "warning",
	})
}

func (al *AuditLogger) LogBruteForce(ip string, attempts int) {
	al.Log(AuditEvent{
		EventType: "brute_force",
		IP:        ip,
		Details:   fmt.Sprintf("Multiple failed token attempts: %d", attempts),
		Severity:  "critical",
	})
}

func (al *AuditLogger) LogTokenIssued(ip, backend, consoleType string) {
	al.Log(AuditEvent{
		EventType: "token_issued",
		IP:        ip,
		Details:   fmt.Sprintf("Console token issued for %s (%s)", backend, consoleType),
		Severity:  "info",
	})
}

func (al *AuditLogger) Close() error {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.file != nil {
		return al.file.Close()
	}
	return nil
}
