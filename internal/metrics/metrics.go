package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "chatwire"

// Send outcomes.
const (
	SendSent    = "sent"
	SendDropped = "dropped"
	SendFailed  = "failed"
)

// Metrics holds the collectors for one connection manager.
type Metrics struct {
	state            prometheus.Gauge
	connectAttempts  prometheus.Counter
	connectFailures  prometheus.Counter
	reconnects       prometheus.Counter
	reconnectDelay   prometheus.Histogram
	retriesExhausted prometheus.Counter
	closes           *prometheus.CounterVec
	frames           *prometheus.CounterVec
	decodeErrors     *prometheus.CounterVec
	dispatched       *prometheus.CounterVec
	panics           *prometheus.CounterVec
	sends            *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0=disconnected, 1=connecting, 2=connected)",
		}),
		connectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connect_attempts_total",
			Help:      "Total number of physical connection attempts",
		}),
		connectFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connect_failures_total",
			Help:      "Total number of connection attempts that could not be established",
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Total number of automatic reconnections scheduled",
		}),
		reconnectDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "reconnect_delay_seconds",
			Help:      "Backoff delay before each scheduled reconnection",
			Buckets:   []float64{0.5, 1, 1.5, 2.5, 5, 10, 20, 30},
		}),
		retriesExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retries_exhausted_total",
			Help:      "Total number of times automatic reconnection gave up",
		}),
		closes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "closes_total",
			Help:      "Total number of connection closes by close code",
		}, []string{"code"}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_received_total",
			Help:      "Total number of decoded inbound frames by type",
		}, []string{"type"}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of inbound frames that failed to decode",
		}, []string{"kind"}),
		dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "callbacks_total",
			Help:      "Total number of callback notifications by kind and outcome",
		}, []string{"kind", "handled"}),
		panics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "callback_panics_total",
			Help:      "Total number of recovered callback panics",
		}, []string{"kind"}),
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sends_total",
			Help:      "Total number of outbound sends by result",
		}, []string{"result"}),
	}
}

// SetState records the numeric connection state.
func (m *Metrics) SetState(state int) { m.state.Set(float64(state)) }

// ConnectAttempt counts a dial.
func (m *Metrics) ConnectAttempt() { m.connectAttempts.Inc() }

// ConnectFailure counts a dial that failed.
func (m *Metrics) ConnectFailure() { m.connectFailures.Inc() }

// ReconnectScheduled counts a scheduled retry and observes its delay.
func (m *Metrics) ReconnectScheduled(delay time.Duration) {
	m.reconnects.Inc()
	m.reconnectDelay.Observe(delay.Seconds())
}

// RetriesExhausted counts a give-up after the last permitted attempt.
func (m *Metrics) RetriesExhausted() { m.retriesExhausted.Inc() }

// Closed counts a connection close by code.
func (m *Metrics) Closed(code int) { m.closes.WithLabelValues(strconv.Itoa(code)).Inc() }

// FrameReceived counts a decoded frame.
func (m *Metrics) FrameReceived(frameType string) { m.frames.WithLabelValues(frameType).Inc() }

// DecodeError counts a frame that failed to decode.
func (m *Metrics) DecodeError(kind string) { m.decodeErrors.WithLabelValues(kind).Inc() }

// Send counts an outbound send by result.
func (m *Metrics) Send(result string) { m.sends.WithLabelValues(result).Inc() }

// ObserveDispatch implements dispatch.Observer.
func (m *Metrics) ObserveDispatch(kind string, handled bool) {
	m.dispatched.WithLabelValues(kind, strconv.FormatBool(handled)).Inc()
}

// ObservePanic implements dispatch.Observer.
func (m *Metrics) ObservePanic(kind string) { m.panics.WithLabelValues(kind).Inc() }
