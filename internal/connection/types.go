package connection

import (
	"errors"
	"net/url"
	"time"

	"github.com/rickgao/chatwire/internal/dispatch"
	"github.com/rickgao/chatwire/internal/reconnect"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Close codes (RFC 6455).
const (
	CloseNormal   = 1000 // Closed intentionally; never retried
	CloseAbnormal = 1006 // Dropped without a close frame
)

// Frame wraps raw inbound data with its receive timestamp.
type Frame struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// CloseStatus describes why a physical connection ended.
type CloseStatus struct {
	Code   int
	Reason string
}

// Normal reports whether the close was intentional.
func (s CloseStatus) Normal() bool { return s.Code == CloseNormal }

// State is the lifecycle state of the managed connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ClientConfig configures one physical WebSocket connection.
type ClientConfig struct {
	URL              string        // Full endpoint URL including the client id
	HandshakeTimeout time.Duration // Max time for the opening handshake
	PingInterval     time.Duration // How often a keepalive ping is sent
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	QueueSize        int           // Initial inbound frame queue capacity
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		QueueSize:        256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Host     string           // host[:port] of the realtime endpoint
	Secure   bool             // Use wss instead of ws
	ClientID string           // Pinned identity; empty generates one
	Policy   reconnect.Policy // Reconnect backoff
	Client   ClientConfig     // Per-connection settings (URL is filled in)
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Host:   "localhost:8000",
		Policy: reconnect.DefaultPolicy(),
		Client: DefaultClientConfig(),
	}
}

// Stats is a snapshot of the manager's state.
type Stats struct {
	ClientID        string
	State           State
	Attempts        int
	ManuallyStopped bool
	RetryPending    bool
	ConnectedSince  time.Time // Zero unless connected
	Dispatch        dispatch.Stats
}

// EndpointURL builds {ws|wss}://host/ws/{clientID}.
func EndpointURL(host string, secure bool, clientID string) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   "/ws/" + clientID,
	}
	return u.String()
}
