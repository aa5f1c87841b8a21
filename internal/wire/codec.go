package wire

import (
	"encoding/json"
	"errors"
	"time"
)

// timestampLayouts are tried in order for created_at. The backend emits
// naive ISO timestamps in UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Decode parses a raw frame into an Event.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, malformed("", err, "frame is not a JSON object")
	}
	if env.Type == nil {
		return nil, malformed("", nil, "missing type")
	}

	frameType := *env.Type
	switch frameType {
	case TypeMessage:
		return decodeMessage(data)
	case TypeChatsUpdated:
		return ChatsUpdated{}, nil
	case TypeProcessingStarted:
		return decodeProcessingStarted(data)
	case TypeError:
		return decodeServerError(data)
	default:
		return nil, &DecodeError{Kind: UnknownType, Type: frameType}
	}
}

// IsControl reports whether err is an UnknownType for a frame the server
// sends as connection bookkeeping rather than application data.
func IsControl(err error) bool {
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != UnknownType {
		return false
	}
	return de.Type == TypeConnected || de.Type == TypeEcho
}

func decodeMessage(data []byte) (Event, error) {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, malformed(TypeMessage, err, "invalid message payload")
	}
	if w.Message == nil {
		return nil, malformed(TypeMessage, nil, "missing message")
	}

	body := w.Message
	switch {
	case body.ID == nil:
		return nil, malformed(TypeMessage, nil, "missing message.id")
	case body.ChatID == nil:
		return nil, malformed(TypeMessage, nil, "missing message.chat_id")
	case body.Content == nil:
		return nil, malformed(TypeMessage, nil, "missing message.content")
	case body.Role == nil:
		return nil, malformed(TypeMessage, nil, "missing message.role")
	case body.CreatedAt == nil:
		return nil, malformed(TypeMessage, nil, "missing message.created_at")
	}

	role := Role(*body.Role)
	if role != RoleUser && role != RoleAssistant {
		return nil, malformed(TypeMessage, nil, "invalid message.role %q", *body.Role)
	}

	var mode Mode
	if body.Mode != nil {
		mode = Mode(*body.Mode)
		if mode != ModeFull && mode != ModeBrief {
			return nil, malformed(TypeMessage, nil, "invalid message.mode %q", *body.Mode)
		}
	}

	createdAt, err := parseTimestamp(*body.CreatedAt)
	if err != nil {
		return nil, malformed(TypeMessage, err, "invalid message.created_at")
	}

	return NewMessage{Message: Message{
		ID:        string(*body.ID),
		ChatID:    string(*body.ChatID),
		Content:   *body.Content,
		Role:      role,
		CreatedAt: createdAt,
		Mode:      mode,
	}}, nil
}

func decodeProcessingStarted(data []byte) (Event, error) {
	var w processingStartedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, malformed(TypeProcessingStarted, err, "invalid processing_started payload")
	}
	if w.ChatID == nil {
		return nil, malformed(TypeProcessingStarted, nil, "missing chat_id")
	}
	return ProcessingStarted{ChatID: string(*w.ChatID)}, nil
}

func decodeServerError(data []byte) (Event, error) {
	var w errorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, malformed(TypeError, err, "invalid error payload")
	}
	if w.Error == nil {
		return ServerError{}, nil
	}
	return ServerError{Message: *w.Error}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Encode serializes an outbound payload as a JSON object.
func Encode(payload Outbound) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(payload)
}
