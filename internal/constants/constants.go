package constants

import "time"

// Network defaults
const (
	DefaultPort     = "6080"
	MinPort         = 1
	MaxPort         = 65535
	WSBufferSize    = 65536 // 64KB WebSocket buffer
	CopyBufferSize  = 65536 // 64KB for relay copies
	DialTimeout     = 10 * time.Second
	CleanupInterval = 30 * time.Second
)

// Token settings
const (
	DefaultTokenTTL = 10 * time.Minute
	MinTokenTTL     = time.Minute
	MaxTokenTTL     = 24 * time.Hour
	RedisKeyPrefix  = "consolegw:token:"
)

// Backend handshake limits. The peek window is bounded so a misbehaving
// gateway cannot force unbounded buffering while the header terminator
// is searched for.
const (
	MaxHandshakeHeader = 16384
	HandshakeTimeout   = 10 * time.Second
)

// Brute force protection
const (
	MaxAuthAttempts = 5
	BlockDuration   = 15 * time.Minute
)

// Connection limits
const (
	MaxConnectionsPerIP   = 10
	MaxWSMessageSize      = 4 * 1024 * 1024 // 4MB
	MaxRegisterBodySize   = 16 * 1024
	MaxAuditLogsPerMinute = 600
)

// API endpoints
const (
	EndpointConsole  = "/console"
	EndpointRegister = "/api/register"
	EndpointHealth   = "/healthz"
	EndpointMetrics  = "/metrics"
)

// Console types resolved from a token. These mirror the values the
// authorization backend hands out.
const (
	ConsoleNovnc      = "novnc"
	ConsoleSpiceHTML5 = "spice-html5"
	ConsoleSerial     = "serial"
)

// Messages
const (
	MsgInvalidJSON      = "Invalid JSON"
	MsgMethodNotAllowed = "Method not allowed"
	MsgInvalidPort      = "Invalid port"
	MsgInvalidToken     = "Unauthorized: invalid or missing token"
	MsgIssueUnsupported = "Token registration not supported by this authorization backend"
	AppName             = "consolegw"
)
