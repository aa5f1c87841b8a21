package wire

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecode_Message(t *testing.T) {
	data := []byte(`{
		"type": "message",
		"message": {
			"id": 42,
			"chat_id": 7,
			"content": "Вы выбрали уточнение запроса",
			"role": "assistant",
			"created_at": "2024-01-15T12:30:00.123456",
			"mode": "brief"
		}
	}`)

	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev.Kind() != KindNewMessage {
		t.Fatalf("Kind() = %v, want %v", ev.Kind(), KindNewMessage)
	}

	msg := ev.(NewMessage).Message
	if msg.ID != "42" {
		t.Errorf("ID = %q, want 42", msg.ID)
	}
	if msg.ChatID != "7" {
		t.Errorf("ChatID = %q, want 7", msg.ChatID)
	}
	if msg.Content != "Вы выбрали уточнение запроса" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if msg.Mode != ModeBrief {
		t.Errorf("Mode = %q, want brief", msg.Mode)
	}

	want := time.Date(2024, 1, 15, 12, 30, 0, 123456000, time.UTC)
	if !msg.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", msg.CreatedAt, want)
	}
}

func TestDecode_MessageStringIDsAndRFC3339(t *testing.T) {
	data := []byte(`{"type":"message","message":{"id":"m-1","chat_id":"c-1","content":"","role":"user","created_at":"2024-01-15T14:30:00+02:00"}}`)

	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	msg := ev.(NewMessage).Message
	if msg.ID != "m-1" || msg.ChatID != "c-1" {
		t.Errorf("IDs = (%q, %q), want (m-1, c-1)", msg.ID, msg.ChatID)
	}
	if msg.Content != "" {
		t.Errorf("Content = %q, want empty", msg.Content)
	}
	if msg.Mode != "" {
		t.Errorf("Mode = %q, want empty when omitted", msg.Mode)
	}
	if want := time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC); !msg.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", msg.CreatedAt, want)
	}
}

func TestDecode_ChatsUpdated(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"chats_updated"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := ev.(ChatsUpdated); !ok {
		t.Errorf("event = %T, want ChatsUpdated", ev)
	}
}

func TestDecode_ProcessingStarted(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{`{"type":"processing_started","chat_id":12}`, "12"},
		{`{"type":"processing_started","chat_id":"abc"}`, "abc"},
	}

	for _, tt := range tests {
		ev, err := Decode([]byte(tt.data))
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", tt.data, err)
		}
		ps, ok := ev.(ProcessingStarted)
		if !ok {
			t.Fatalf("event = %T, want ProcessingStarted", ev)
		}
		if ps.ChatID != tt.want {
			t.Errorf("ChatID = %q, want %q", ps.ChatID, tt.want)
		}
	}
}

func TestDecode_ServerError(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"error","error":"model unavailable"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := ev.(ServerError).Message; got != "model unavailable" {
		t.Errorf("Message = %q, want %q", got, "model unavailable")
	}

	ev, err = Decode([]byte(`{"type":"error"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := ev.(ServerError).Message; got != "" {
		t.Errorf("Message = %q, want empty default", got)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"bogus","x":1}`))
	if ev != nil {
		t.Errorf("event = %v, want nil", ev)
	}
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	if errors.Is(err, ErrMalformed) {
		t.Error("unknown type must not match ErrMalformed")
	}

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err %T is not *DecodeError", err)
	}
	if de.Kind != UnknownType || de.Type != "bogus" {
		t.Errorf("DecodeError = %+v, want UnknownType/bogus", de)
	}
	if IsControl(err) {
		t.Error("IsControl(bogus) = true")
	}
}

func TestDecode_ControlFrames(t *testing.T) {
	for _, data := range []string{
		`{"type":"connected","message":"hi","timestamp":"2024-01-15T12:30:00"}`,
		`{"type":"echo","echo":"ping"}`,
	} {
		_, err := Decode([]byte(data))
		if !errors.Is(err, ErrUnknownType) {
			t.Errorf("Decode(%s) err = %v, want ErrUnknownType", data, err)
		}
		if !IsControl(err) {
			t.Errorf("IsControl for %s = false", data)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `not json`},
		{"array", `[1,2,3]`},
		{"null", `null`},
		{"missing type", `{"message":{}}`},
		{"numeric type", `{"type":5}`},
		{"message missing payload", `{"type":"message"}`},
		{"message payload not object", `{"type":"message","message":"hi"}`},
		{"message missing id", `{"type":"message","message":{"chat_id":1,"content":"x","role":"user","created_at":"2024-01-15T12:30:00"}}`},
		{"message missing chat_id", `{"type":"message","message":{"id":1,"content":"x","role":"user","created_at":"2024-01-15T12:30:00"}}`},
		{"message missing content", `{"type":"message","message":{"id":1,"chat_id":1,"role":"user","created_at":"2024-01-15T12:30:00"}}`},
		{"message null content", `{"type":"message","message":{"id":1,"chat_id":1,"content":null,"role":"user","created_at":"2024-01-15T12:30:00"}}`},
		{"message missing role", `{"type":"message","message":{"id":1,"chat_id":1,"content":"x","created_at":"2024-01-15T12:30:00"}}`},
		{"message bad role", `{"type":"message","message":{"id":1,"chat_id":1,"content":"x","role":"system","created_at":"2024-01-15T12:30:00"}}`},
		{"message missing created_at", `{"type":"message","message":{"id":1,"chat_id":1,"content":"x","role":"user"}}`},
		{"message bad created_at", `{"type":"message","message":{"id":1,"chat_id":1,"content":"x","role":"user","created_at":"yesterday"}}`},
		{"message bad mode", `{"type":"message","message":{"id":1,"chat_id":1,"content":"x","role":"user","created_at":"2024-01-15T12:30:00","mode":"verbose"}}`},
		{"message float id", `{"type":"message","message":{"id":1.5,"chat_id":1,"content":"x","role":"user","created_at":"2024-01-15T12:30:00"}}`},
		{"message empty id", `{"type":"message","message":{"id":"","chat_id":1,"content":"x","role":"user","created_at":"2024-01-15T12:30:00"}}`},
		{"processing missing chat_id", `{"type":"processing_started"}`},
		{"processing bad chat_id", `{"type":"processing_started","chat_id":{"id":1}}`},
		{"error not string", `{"type":"error","error":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.data))
			if ev != nil {
				t.Errorf("event = %#v, want nil (all-or-nothing)", ev)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeError_Message(t *testing.T) {
	_, err := Decode([]byte(`{"type":"message","message":{"id":1}}`))
	want := "malformed frame type=message: missing message.chat_id"
	if err == nil || err.Error() != want {
		t.Errorf("Error() = %v, want %q", err, want)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(Outbound{"type": "typing", "chat_id": 3})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("encoded payload is not JSON: %v", err)
	}
	if got["type"] != "typing" || got["chat_id"] != float64(3) {
		t.Errorf("encoded = %v", got)
	}

	data, err = Encode(nil)
	if err != nil || string(data) != "{}" {
		t.Errorf("Encode(nil) = (%s, %v), want ({}, nil)", data, err)
	}

	if _, err := Encode(Outbound{"bad": make(chan int)}); err == nil {
		t.Error("Encode with unsupported value succeeded")
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindNewMessage:        "message",
		KindChatsUpdated:      "chats_updated",
		KindProcessingStarted: "processing_started",
		KindServerError:       "error",
		Kind(0):               "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
