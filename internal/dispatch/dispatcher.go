package dispatch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/chatwire/internal/wire"
)

// Observer receives one call per routed notification. The metrics package
// implements it; nil disables observation.
type Observer interface {
	ObserveDispatch(kind string, handled bool)
	ObservePanic(kind string)
}

// Dispatcher invokes callbacks for events and lifecycle notifications.
type Dispatcher struct {
	logger   *slog.Logger
	observer Observer

	mu        sync.Mutex
	routed    map[Kind]int64
	unhandled map[Kind]int64
	panics    int64
}

// Stats contains dispatch counters.
type Stats struct {
	Routed    map[Kind]int64 // Notifications that reached a handler
	Unhandled map[Kind]int64 // Notifications with no handler registered
	Panics    int64          // Handler panics recovered
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(logger *slog.Logger, observer Observer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		logger:    logger,
		observer:  observer,
		routed:    make(map[Kind]int64),
		unhandled: make(map[Kind]int64),
	}
}

// Route invokes the handler matching ev. Returns true if one ran.
func (d *Dispatcher) Route(ev wire.Event, cb Callbacks) bool {
	kind := KindOf(ev)
	if kind == 0 {
		d.logger.Warn("no route for event", "event", fmt.Sprintf("%T", ev))
		return false
	}
	if !cb.Handles(kind) {
		return d.record(kind, false)
	}

	switch e := ev.(type) {
	case wire.NewMessage:
		d.invoke(kind, func() { cb.OnNewMessage(e.Message) })
	case wire.ChatsUpdated:
		d.invoke(kind, cb.OnChatsUpdated)
	case wire.ProcessingStarted:
		d.invoke(kind, func() { cb.OnProcessingStarted(e.ChatID) })
	case wire.ServerError:
		d.invoke(kind, func() { cb.OnError(e.Message) })
	}
	return d.record(kind, true)
}

// Notify invokes a lifecycle handler (Connecting, Connected, Disconnected).
func (d *Dispatcher) Notify(kind Kind, cb Callbacks) bool {
	switch kind {
	case Connecting, Connected, Disconnected:
	default:
		d.logger.Warn("notify called with non-lifecycle kind", "kind", kind)
		return false
	}
	if !cb.Handles(kind) {
		return d.record(kind, false)
	}

	switch kind {
	case Connecting:
		d.invoke(kind, cb.OnConnecting)
	case Connected:
		d.invoke(kind, cb.OnConnected)
	case Disconnected:
		d.invoke(kind, cb.OnDisconnected)
	}
	return d.record(kind, true)
}

// Error invokes the error handler with message.
func (d *Dispatcher) Error(message string, cb Callbacks) bool {
	if !cb.Handles(Error) {
		return d.record(Error, false)
	}
	d.invoke(Error, func() { cb.OnError(message) })
	return d.record(Error, true)
}

// Stats returns a copy of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		Routed:    make(map[Kind]int64, len(d.routed)),
		Unhandled: make(map[Kind]int64, len(d.unhandled)),
		Panics:    d.panics,
	}
	for k, v := range d.routed {
		s.Routed[k] = v
	}
	for k, v := range d.unhandled {
		s.Unhandled[k] = v
	}
	return s
}

// invoke runs fn, recovering a panic so it never escapes the core.
func (d *Dispatcher) invoke(kind Kind, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("callback panicked", "kind", kind, "panic", r)
			d.mu.Lock()
			d.panics++
			d.mu.Unlock()
			if d.observer != nil {
				d.observer.ObservePanic(kind.String())
			}
		}
	}()
	fn()
}

func (d *Dispatcher) record(kind Kind, handled bool) bool {
	d.mu.Lock()
	if handled {
		d.routed[kind]++
	} else {
		d.unhandled[kind]++
	}
	d.mu.Unlock()

	if d.observer != nil {
		d.observer.ObserveDispatch(kind.String(), handled)
	}
	return handled
}
