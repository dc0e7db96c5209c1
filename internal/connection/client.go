package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket connection to the feed.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close performs the close handshake and releases the connection.
	Close() error

	// Send writes raw bytes to the connection.
	Send(data []byte) error

	// Ping sends a protocol-level ping frame.
	Ping() error

	// Messages returns a channel of raw inbound messages.
	// Each message includes a local timestamp for when it was received.
	Messages() <-chan TimestampedMessage

	// Errors returns a channel of connection errors.
	Errors() <-chan error

	// IsConnected returns current connection state.
	IsConnected() bool

	// LastPong returns when the server last answered a ping.
	LastPong() time.Time
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	messages chan TimestampedMessage
	errors   chan error
	done     chan struct{}
	readDone chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	lastPongAt time.Time
	closed     bool
}

// NewClient creates a new WebSocket client. A client is single-use: once
// closed it cannot reconnect.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultClientConfig().BufferSize
	}

	return &client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.lastPongAt = time.Now()
	c.mu.Unlock()

	// Server pings count as liveness too
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(data string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	if c.cfg.PingInterval > 0 {
		go c.keepaliveLoop()
	}

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	return nil
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	// Signal goroutines to stop
	close(c.done)

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	// Wait for the server to echo the close frame
	if err == nil && c.cfg.CloseTimeout > 0 {
		timer := time.NewTimer(c.cfg.CloseTimeout)
		select {
		case <-c.readDone:
		case <-timer.C:
			c.logger.Debug("close handshake timed out", "timeout", c.cfg.CloseTimeout)
		}
		timer.Stop()
	}

	return conn.Close()
}

// Send writes raw bytes to the connection.
func (c *client) Send(data []byte) error {
	conn, err := c.current()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a ping frame.
func (c *client) Ping() error {
	conn, err := c.current()
	if err != nil {
		return err
	}

	timeout := c.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(timeout))
}

// Messages returns the messages channel.
func (c *client) Messages() <-chan TimestampedMessage {
	return c.messages
}

// Errors returns the errors channel.
func (c *client) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastPong returns the last pong (or server ping) time.
func (c *client) LastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPongAt
}

func (c *client) current() (*websocket.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastPongAt = time.Now()
	c.mu.Unlock()
}

func (c *client) report(err error) {
	select {
	case c.errors <- err:
	default:
	}
}

// readLoop reads messages from the WebSocket and sends them to the messages channel.
func (c *client) readLoop() {
	defer close(c.readDone)
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Debug("server closed connection", "error", err)
					err = ErrConnectionClosed
				}
				c.report(err)
			}
			return
		}

		msg := TimestampedMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}

// keepaliveLoop pings the server and detects stale connections.
func (c *client) keepaliveLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.readDone:
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			lastPong := c.LastPong()
			if time.Since(lastPong) > c.cfg.PingInterval+c.cfg.PingTimeout {
				c.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", c.cfg.PingInterval+c.cfg.PingTimeout,
				)
				c.report(ErrStaleConnection)
				// Unblock the pending read
				c.conn.Close()
				return
			}
		}
	}
}
