package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Frame type discriminants.
const (
	TypeMessage           = "message"
	TypeChatsUpdated      = "chats_updated"
	TypeProcessingStarted = "processing_started"
	TypeError             = "error"

	// Sent by the server but carrying nothing for the client.
	TypeConnected = "connected"
	TypeEcho      = "echo"
)

// Kind identifies the variant of an Event.
type Kind int

const (
	KindNewMessage Kind = iota + 1
	KindChatsUpdated
	KindProcessingStarted
	KindServerError
)

// String returns the wire discriminant for the kind.
func (k Kind) String() string {
	switch k {
	case KindNewMessage:
		return TypeMessage
	case KindChatsUpdated:
		return TypeChatsUpdated
	case KindProcessingStarted:
		return TypeProcessingStarted
	case KindServerError:
		return TypeError
	default:
		return "unknown"
	}
}

// Event is a decoded inbound frame. The set of implementations is closed.
type Event interface {
	Kind() Kind
	event()
}

// NewMessage carries a chat message pushed by the server.
type NewMessage struct {
	Message Message
}

// ChatsUpdated signals that the chat list changed.
type ChatsUpdated struct{}

// ProcessingStarted signals that the server began work on a chat.
type ProcessingStarted struct {
	ChatID string
}

// ServerError is an error reported by the server over the channel.
type ServerError struct {
	Message string
}

func (NewMessage) Kind() Kind        { return KindNewMessage }
func (ChatsUpdated) Kind() Kind      { return KindChatsUpdated }
func (ProcessingStarted) Kind() Kind { return KindProcessingStarted }
func (ServerError) Kind() Kind       { return KindServerError }

func (NewMessage) event()        {}
func (ChatsUpdated) event()      {}
func (ProcessingStarted) event() {}
func (ServerError) event()       {}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode is the response verbosity requested for a message.
type Mode string

const (
	ModeFull  Mode = "full"
	ModeBrief Mode = "brief"
)

// Message is a chat message as delivered over the realtime channel.
type Message struct {
	ID        string
	ChatID    string
	Content   string
	Role      Role
	CreatedAt time.Time
	Mode      Mode // Empty when the server omitted it
}

// Outbound is an arbitrary key/value payload sent over the channel.
type Outbound map[string]any

// Wire types for JSON parsing

// envelope is used for fast type extraction.
type envelope struct {
	Type *string `json:"type"`
}

// messageWire is the wire format for message frames.
type messageWire struct {
	Message *messageBodyWire `json:"message"`
}

type messageBodyWire struct {
	ID        *flexID `json:"id"`
	ChatID    *flexID `json:"chat_id"`
	Content   *string `json:"content"`
	Role      *string `json:"role"`
	CreatedAt *string `json:"created_at"`
	Mode      *string `json:"mode"`
}

// processingStartedWire is the wire format for processing_started frames.
type processingStartedWire struct {
	ChatID *flexID `json:"chat_id"`
}

// errorWire is the wire format for error frames.
type errorWire struct {
	Error *string `json:"error"`
}

// flexID accepts identifiers sent as JSON strings or integers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("identifier is null")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return fmt.Errorf("identifier is empty")
		}
		*f = flexID(s)
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("identifier %s is not an integer or string", data)
	}
	*f = flexID(strconv.FormatInt(n, 10))
	return nil
}
