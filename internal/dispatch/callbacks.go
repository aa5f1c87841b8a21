package dispatch

import "github.com/rickgao/chatwire/internal/wire"

// Kind identifies a callback slot.
type Kind int

const (
	// Connection lifecycle
	Connecting Kind = iota + 1
	Connected
	Disconnected
	Error

	// Domain events
	NewMessage
	ChatsUpdated
	ProcessingStarted
)

var kindNames = map[Kind]string{
	Connecting:        "connecting",
	Connected:         "connected",
	Disconnected:      "disconnected",
	Error:             "error",
	NewMessage:        "new_message",
	ChatsUpdated:      "chats_updated",
	ProcessingStarted: "processing_started",
}

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Kinds lists every callback slot in declaration order.
func Kinds() []Kind {
	return []Kind{Connecting, Connected, Disconnected, Error, NewMessage, ChatsUpdated, ProcessingStarted}
}

// KindOf maps a decoded event to the slot that handles it.
func KindOf(ev wire.Event) Kind {
	if ev == nil {
		return 0
	}
	switch ev.Kind() {
	case wire.KindNewMessage:
		return NewMessage
	case wire.KindChatsUpdated:
		return ChatsUpdated
	case wire.KindProcessingStarted:
		return ProcessingStarted
	case wire.KindServerError:
		return Error
	}
	return 0
}

// Callbacks is the set of handlers supplied on connect. It is replaced
// wholesale on every connect and treated as read-only once stored.
type Callbacks struct {
	OnConnecting        func()
	OnConnected         func()
	OnDisconnected      func()
	OnError             func(message string)
	OnNewMessage        func(msg wire.Message)
	OnChatsUpdated      func()
	OnProcessingStarted func(chatID string)
}

// Handles reports whether a handler is registered for kind.
func (c Callbacks) Handles(kind Kind) bool {
	switch kind {
	case Connecting:
		return c.OnConnecting != nil
	case Connected:
		return c.OnConnected != nil
	case Disconnected:
		return c.OnDisconnected != nil
	case Error:
		return c.OnError != nil
	case NewMessage:
		return c.OnNewMessage != nil
	case ChatsUpdated:
		return c.OnChatsUpdated != nil
	case ProcessingStarted:
		return c.OnProcessingStarted != nil
	}
	return false
}
