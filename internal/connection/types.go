package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/vessel-tracker/internal/backoff"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no pong)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrConnectionClosed = errors.New("connection closed")
	ErrAlreadyStarted   = errors.New("supervisor already started")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Feed endpoint (e.g., wss://stream.aisstream.io/v0/stream)
	PingInterval     time.Duration // Transport keepalive ping period (0 = disabled)
	PingTimeout      time.Duration // Extra grace after PingInterval before the connection is stale
	CloseTimeout     time.Duration // Max wait for the close handshake
	HandshakeTimeout time.Duration // Opening handshake timeout
	WriteTimeout     time.Duration // Write deadline for sends and pings
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:              "wss://stream.aisstream.io/v0/stream",
		PingInterval:     20 * time.Second,
		PingTimeout:      20 * time.Second,
		CloseTimeout:     20 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// SupervisorConfig configures the Supervisor. All intervals live here; the
// supervisor keeps no ambient timing state.
type SupervisorConfig struct {
	Client            ClientConfig
	APIKey            string
	MessageTypes      []string      // Empty = feed.DefaultMessageTypes()
	HeartbeatInterval time.Duration // Application heartbeat period (0 = disabled)
	Backoff           backoff.Config
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Client:            DefaultClientConfig(),
		HeartbeatInterval: 30 * time.Second,
		Backoff:           backoff.DefaultConfig(),
	}
}

// State is a supervisor lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateReading
	StateFaulted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateReading:
		return "reading"
	case StateFaulted:
		return "faulted"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SupervisorStats provides statistics about the supervisor.
type SupervisorStats struct {
	State         State
	Attempts      uint64    // Connect attempts since start
	RetryCount    uint      // Consecutive failures since the last successful connect
	Reconnects    uint64    // Successful connects after the first
	LastSuccessAt time.Time // Zero until the first successful connect
	LastHeartbeat time.Time // Zero until the first heartbeat ping
	LastDelay     time.Duration
	Connected     bool
}

// Handler consumes inbound feed messages in arrival order.
type Handler interface {
	Handle(data []byte, receivedAt time.Time)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(data []byte, receivedAt time.Time)

// Handle calls f.
func (f HandlerFunc) Handle(data []byte, receivedAt time.Time) {
	f(data, receivedAt)
}

// Notifier receives connection fault narration.
type Notifier interface {
	OnError(message string)
}
