package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rickgao/chatwire/internal/queue"
)

// Client represents a single physical WebSocket connection.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close sends a close frame with code and closes the socket. Idempotent.
	Close(code int, reason string) error

	// Send writes raw bytes to the connection.
	Send(data []byte) error

	// Next blocks for the next inbound frame in receipt order. It returns
	// false once the connection has ended and every frame was consumed.
	Next() (Frame, bool)

	// CloseStatus reports why the connection ended. Valid after Next
	// returns false.
	CloseStatus() CloseStatus

	// IsConnected returns current connection state.
	IsConnected() bool
}

// ClientFactory creates the physical connection for one attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	frames *queue.Queue[Frame]
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	lastPingAt time.Time
	closed     bool
	status     *CloseStatus
}

// NewClient creates a new WebSocket client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		cfg:    cfg,
		logger: logger,
		frames: queue.New[Frame](cfg.QueueSize),
		done:   make(chan struct{}),
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
		c.finish(CloseStatus{Code: CloseAbnormal, Reason: err.Error()})
		return err
	}

	c.mu.Lock()
	if c.closed {
		// Close raced with the handshake.
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		c.touch()
		err := conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	// Server responds to our ping
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop()
	}

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	return nil
}

// Close gracefully closes the connection.
func (c *client) Close(code int, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wasConnected := c.connected
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	c.finish(CloseStatus{Code: code, Reason: reason})
	close(c.done)

	if conn == nil {
		return nil
	}

	if wasConnected {
		c.writeMu.Lock()
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
	}
	return conn.Close()
}

// Send writes raw bytes to the connection.
func (c *client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Next returns the next inbound frame.
func (c *client) Next() (Frame, bool) {
	return c.frames.Pop()
}

// CloseStatus returns the terminating close status.
func (c *client) CloseStatus() CloseStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == nil {
		return CloseStatus{}
	}
	return *c.status
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// finish records the first close status and ends the frame stream.
func (c *client) finish(status CloseStatus) {
	c.mu.Lock()
	if c.status == nil {
		c.status = &status
	}
	c.connected = false
	c.mu.Unlock()

	c.frames.Close()
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastPingAt = time.Now()
	c.mu.Unlock()
}

// readLoop queues inbound frames until the connection fails or is closed.
func (c *client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			c.finish(statusFromError(err))
			return
		}

		c.frames.Push(Frame{
			Data:       data,
			ReceivedAt: receivedAt,
		})
	}
}

// heartbeatLoop pings the server and detects stale connections.
func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				c.finish(CloseStatus{Code: CloseAbnormal, Reason: ErrStaleConnection.Error()})
				// Unblocks readLoop
				c.conn.Close()
				return
			}
		}
	}
}

// statusFromError maps a read error to the close status it implies.
func statusFromError(err error) CloseStatus {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseStatus{Code: ce.Code, Reason: ce.Text}
	}
	return CloseStatus{Code: CloseAbnormal, Reason: err.Error()}
}
