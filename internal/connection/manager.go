package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rickgao/chatwire/internal/dispatch"
	"github.com/rickgao/chatwire/internal/identity"
	"github.com/rickgao/chatwire/internal/metrics"
	"github.com/rickgao/chatwire/internal/queue"
	"github.com/rickgao/chatwire/internal/reconnect"
	"github.com/rickgao/chatwire/internal/wire"
)

// Manager owns the realtime session for one client process. Construct it
// once and pass it to whatever needs it; it is not a global.
type Manager struct {
	cfg        ManagerConfig
	policy     reconnect.Policy
	logger     *slog.Logger
	metrics    *metrics.Metrics
	dispatcher *dispatch.Dispatcher
	newClient  ClientFactory

	clientID string
	url      string

	// Callback executor: every callback runs on one goroutine, in order.
	work       *queue.Queue[func()]
	workerDone chan struct{}

	mu              sync.Mutex
	state           State
	callbacks       dispatch.Callbacks
	attempts        int
	manuallyStopped bool
	link            *link  // Open physical connection, nil unless connected
	lastReleased    <-chan struct{}
	gen             uint64 // Bumped whenever the current physical connection is abandoned
	dialCancel      context.CancelFunc
	retryTimer      *time.Timer
	retrySeq        uint64
	connectedAt     time.Time
	closed          bool
}

// link is one physical connection attempt. released is closed once its
// socket is gone; the next attempt does not dial before that.
type link struct {
	client   Client
	released chan struct{}
	once     sync.Once
}

func newLink(client Client) *link {
	return &link{client: client, released: make(chan struct{})}
}

func (l *link) release() {
	l.once.Do(func() { close(l.released) })
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// WithClientFactory replaces the physical connection constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newClient = f
		}
	}
}

// NewManager creates a Connection Manager and starts its callback executor.
// The client identity is fixed here for the Manager's lifetime.
func NewManager(cfg ManagerConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:        cfg,
		policy:     cfg.Policy,
		logger:     slog.Default(),
		newClient:  NewClient,
		work:       queue.New[func()](64),
		workerDone: make(chan struct{}),
	}
	released := make(chan struct{})
	close(released)
	m.lastReleased = released

	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.New(nil)
	}

	m.clientID = cfg.ClientID
	if m.clientID == "" {
		m.clientID = identity.Generate()
	}
	m.url = EndpointURL(cfg.Host, cfg.Secure, m.clientID)
	m.logger = m.logger.With("client_id", m.clientID)
	m.dispatcher = dispatch.NewDispatcher(m.logger, m.metrics)
	m.metrics.SetState(int(StateDisconnected))

	go m.runCallbacks()

	return m
}

// ClientID returns the identity used for the whole Manager lifetime.
func (m *Manager) ClientID() string {
	return m.clientID
}

// URL returns the endpoint this Manager connects to.
func (m *Manager) URL() string {
	return m.url
}

// IsConnected reports whether the connection is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot of the session.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	s := Stats{
		ClientID:        m.clientID,
		State:           m.state,
		Attempts:        m.attempts,
		ManuallyStopped: m.manuallyStopped,
		RetryPending:    m.retryTimer != nil,
	}
	if m.state == StateConnected {
		s.ConnectedSince = m.connectedAt
	}
	m.mu.Unlock()

	s.Dispatch = m.dispatcher.Stats()
	return s
}

// Connect opens the connection and stores cb, replacing any previous
// callbacks. It returns immediately; progress is reported through cb.
// Calling Connect while connected or connecting does nothing.
func (m *Manager) Connect(cb dispatch.Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.logger.Warn("connect called on closed manager")
		return
	}
	if m.state != StateDisconnected {
		m.logger.Debug("connect ignored", "state", m.state)
		return
	}

	m.callbacks = cb
	m.manuallyStopped = false
	m.stopRetryLocked()
	m.beginAttemptLocked()
}

// Disconnect closes the connection with the normal close code and cancels
// any pending automatic reconnection. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()

	m.manuallyStopped = true
	m.stopRetryLocked()
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}

	l := m.link
	m.link = nil
	m.gen++

	if m.state != StateDisconnected {
		m.logger.Info("disconnecting", "state", m.state)
		m.setStateLocked(StateDisconnected)
		m.notifyLocked(dispatch.Disconnected)
	}
	m.mu.Unlock()

	if l != nil {
		if err := l.client.Close(CloseNormal, "client disconnected"); err != nil {
			m.logger.Debug("close failed", "error", err)
		}
		l.release()
		m.metrics.Closed(CloseNormal)
	}
}

// Send encodes payload and writes it if connected. While not connected the
// payload is dropped with a warning; delivery on this channel is best effort.
func (m *Manager) Send(payload wire.Outbound) {
	data, err := wire.Encode(payload)
	if err != nil {
		m.logger.Error("failed to encode outbound payload", "error", err)
		m.metrics.Send(metrics.SendFailed)
		return
	}

	m.mu.Lock()
	l := m.link
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || l == nil {
		m.logger.Warn("not connected, payload dropped", "bytes", len(data))
		m.metrics.Send(metrics.SendDropped)
		return
	}

	if err := l.client.Send(data); err != nil {
		m.logger.Warn("send failed", "error", err)
		m.metrics.Send(metrics.SendFailed)
		return
	}
	m.metrics.Send(metrics.SendSent)
}

// Close disconnects and stops the callback executor after it has run every
// queued callback. The Manager cannot be reused.
func (m *Manager) Close() {
	m.Disconnect()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.workerDone
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.work.Close()
	<-m.workerDone
}

// beginAttemptLocked creates a fresh physical connection and dials it in
// the background. Must be called with mu held.
func (m *Manager) beginAttemptLocked() {
	m.setStateLocked(StateConnecting)
	m.gen++
	gen := m.gen

	if m.dialCancel != nil {
		m.dialCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.dialCancel = cancel

	connID := uuid.NewString()
	cfg := m.cfg.Client
	cfg.URL = m.url
	l := newLink(m.newClient(cfg, m.logger.With("conn_id", connID)))
	prev := m.lastReleased
	m.lastReleased = l.released

	m.logger.Info("connecting",
		"url", m.url,
		"conn_id", connID,
		"attempt", m.attempts,
	)
	m.metrics.ConnectAttempt()
	m.notifyLocked(dispatch.Connecting)

	go m.dial(ctx, gen, l, prev)
}

// dial runs one connection attempt once the previous physical connection
// has been released.
func (m *Manager) dial(ctx context.Context, gen uint64, l *link, prev <-chan struct{}) {
	<-prev
	err := l.client.Connect(ctx)

	m.mu.Lock()
	if gen != m.gen {
		// Superseded by Disconnect while dialing.
		m.mu.Unlock()
		l.client.Close(CloseNormal, "superseded")
		l.release()
		return
	}

	if err != nil {
		m.logger.Warn("connect failed", "url", m.url, "error", err)
		m.metrics.ConnectFailure()
		m.errorLocked(fmt.Sprintf("failed to connect to %s: %v", m.url, err))
		m.closedLocked(CloseStatus{Code: CloseAbnormal, Reason: err.Error()})
		m.mu.Unlock()
		l.release()
		return
	}

	m.link = l
	m.attempts = 0
	m.connectedAt = time.Now()
	m.setStateLocked(StateConnected)
	m.logger.Info("connected", "url", m.url)
	m.notifyLocked(dispatch.Connected)
	m.mu.Unlock()

	go m.pump(gen, l)
}

// pump drains frames from one physical connection, then handles its close.
func (m *Manager) pump(gen uint64, l *link) {
	client := l.client
	for {
		frame, ok := client.Next()
		if !ok {
			break
		}
		m.handleFrame(gen, frame)
	}

	status := client.CloseStatus()

	m.mu.Lock()
	if gen != m.gen {
		// Disconnect took the link and closes it.
		m.mu.Unlock()
		return
	}
	m.closedLocked(status)
	m.mu.Unlock()

	// A scheduled retry waits for this release before dialing.
	client.Close(status.Code, status.Reason)
	l.release()
}

// handleFrame decodes one frame and queues its dispatch.
func (m *Manager) handleFrame(gen uint64, frame Frame) {
	ev, err := wire.Decode(frame.Data)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}

	if err != nil {
		var de *wire.DecodeError
		kind := "malformed"
		if errors.As(err, &de) {
			kind = de.Kind.String()
		}
		m.metrics.DecodeError(kind)

		if wire.IsControl(err) {
			m.logger.Debug("ignoring control frame", "frame_type", de.Type)
		} else {
			m.logger.Warn("failed to decode frame", "error", err, "bytes", len(frame.Data))
		}
		return
	}

	m.metrics.FrameReceived(ev.Kind().String())
	m.logger.Debug("frame received", "frame_type", ev.Kind())

	cb := m.callbacks
	m.work.Push(func() { m.dispatcher.Route(ev, cb) })
}

// closedLocked moves to Disconnected after the current physical connection
// ended and schedules a retry if the close was abnormal. Must be called
// with mu held.
func (m *Manager) closedLocked(status CloseStatus) {
	m.link = nil
	m.setStateLocked(StateDisconnected)
	m.metrics.Closed(status.Code)
	m.logger.Info("disconnected", "code", status.Code, "reason", status.Reason)
	m.notifyLocked(dispatch.Disconnected)

	if status.Normal() || m.manuallyStopped {
		return
	}

	if !m.policy.ShouldRetry(m.attempts, m.manuallyStopped) {
		m.logger.Error("reconnect attempts exhausted",
			"attempts", m.attempts,
			"max_attempts", m.policy.MaxAttempts,
		)
		m.metrics.RetriesExhausted()
		return
	}

	m.attempts++
	delay := m.policy.NextDelay(m.attempts)
	m.scheduleRetryLocked(delay)
}

// scheduleRetryLocked arms the single retry timer. Must be called with mu held.
func (m *Manager) scheduleRetryLocked(delay time.Duration) {
	m.stopRetryLocked()
	seq := m.retrySeq

	m.logger.Info("scheduling reconnect",
		"attempt", m.attempts,
		"max_attempts", m.policy.MaxAttempts,
		"delay", delay,
	)
	m.metrics.ReconnectScheduled(delay)

	m.retryTimer = time.AfterFunc(delay, func() { m.fireRetry(seq) })
}

// fireRetry runs when a retry timer expires.
func (m *Manager) fireRetry(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.retrySeq || m.retryTimer == nil {
		return
	}
	m.retryTimer = nil

	if m.manuallyStopped || m.closed || m.state != StateDisconnected {
		return
	}
	m.beginAttemptLocked()
}

// stopRetryLocked cancels a pending retry. Must be called with mu held.
func (m *Manager) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.retrySeq++
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	m.metrics.SetState(int(s))
}

// notifyLocked queues a lifecycle callback with the current callback set.
func (m *Manager) notifyLocked(kind dispatch.Kind) {
	cb := m.callbacks
	m.work.Push(func() { m.dispatcher.Notify(kind, cb) })
}

// errorLocked queues an error callback with the current callback set.
func (m *Manager) errorLocked(msg string) {
	cb := m.callbacks
	m.work.Push(func() { m.dispatcher.Error(msg, cb) })
}

// runCallbacks executes queued callbacks one at a time.
func (m *Manager) runCallbacks() {
	defer close(m.workerDone)

	for {
		fn, ok := m.work.Pop()
		if !ok {
			return
		}
		fn()
	}
}
