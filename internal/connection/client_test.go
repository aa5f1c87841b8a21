package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.URL = url
	cfg.QueueSize = 4
	return cfg
}

// drainUntilClosed reads frames until the client reports the end of stream.
func drainUntilClosed(t *testing.T, c Client, timeout time.Duration) []Frame {
	t.Helper()
	out := make(chan []Frame, 1)
	go func() {
		var frames []Frame
		for {
			f, ok := c.Next()
			if !ok {
				out <- frames
				return
			}
			frames = append(frames, f)
		}
	}()

	select {
	case frames := <-out:
		return frames
	case <-time.After(timeout):
		t.Fatal("timeout waiting for connection to end")
		return nil
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if !client.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := client.Close(CloseNormal, "bye"); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}

	if got := client.CloseStatus(); got.Code != CloseNormal {
		t.Errorf("CloseStatus().Code = %d, want %d", got.Code, CloseNormal)
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	client := NewClient(testClientConfig(url), nil)
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail against closed server")
	}

	if _, ok := client.Next(); ok {
		t.Error("Next() returned a frame after failed Connect")
	}
	if got := client.CloseStatus().Code; got != CloseAbnormal {
		t.Errorf("CloseStatus().Code = %d, want %d", got, CloseAbnormal)
	}
}

func TestClient_Send(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close(CloseNormal, "")

	testMsg := []byte(`{"test": "message"}`)
	if err := client.Send(testMsg); err != nil {
		t.Errorf("Send failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := string(received)
		mu.Unlock()
		if got == string(testMsg) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("server never received %q", testMsg)
}

func TestClient_FramesInOrderThenCloseStatus(t *testing.T) {
	testMessages := []string{
		`{"type": "test", "data": 1}`,
		`{"type": "test", "data": 2}`,
		`{"type": "test", "data": 3}`,
		`{"type": "test", "data": 4}`,
		`{"type": "test", "data": 5}`,
		`{"type": "test", "data": 6}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(4001, "going away for test"),
			time.Now().Add(time.Second),
		)
		// Wait for the client to echo the close frame.
		conn.ReadMessage()
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close(CloseNormal, "")

	frames := drainUntilClosed(t, client, 2*time.Second)

	if len(frames) != len(testMessages) {
		t.Fatalf("received %d frames, want %d", len(frames), len(testMessages))
	}
	for i, want := range testMessages {
		if string(frames[i].Data) != want {
			t.Errorf("frame %d: got %q, want %q", i, frames[i].Data, want)
		}
		if frames[i].ReceivedAt.IsZero() {
			t.Errorf("frame %d: ReceivedAt should not be zero", i)
		}
	}

	status := client.CloseStatus()
	if status.Code != 4001 || status.Reason != "going away for test" {
		t.Errorf("CloseStatus() = %+v, want {4001 going away for test}", status)
	}
	if status.Normal() {
		t.Error("4001 reported as normal close")
	}
}

func TestClient_AbruptDropIsAbnormal(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.UnderlyingConn().Close()
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close(CloseNormal, "")

	drainUntilClosed(t, client, 2*time.Second)

	if got := client.CloseStatus().Code; got != CloseAbnormal {
		t.Errorf("CloseStatus().Code = %d, want %d", got, CloseAbnormal)
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testClientConfig("ws://localhost:12345"), nil)

	err := client.Send([]byte("test"))
	if err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := client.Close(CloseNormal, ""); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := client.Close(CloseNormal, ""); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if err := client.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

func TestClient_CloseSendsNormalCode(t *testing.T) {
	codes := make(chan int, 1)

	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, _, err := conn.ReadMessage()
		if ce, ok := err.(*websocket.CloseError); ok {
			codes <- ce.Code
			return
		}
		codes <- -1
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	client.Close(CloseNormal, "client disconnected")

	select {
	case code := <-codes:
		if code != CloseNormal {
			t.Errorf("server saw close code %d, want %d", code, CloseNormal)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the close frame")
	}
}

func TestClient_StaleConnection(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Swallow pings without answering so the client sees no pong.
		conn.SetPingHandler(func(string) error { return nil })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close(CloseNormal, "")

	drainUntilClosed(t, client, 2*time.Second)

	status := client.CloseStatus()
	if status.Code != CloseAbnormal || status.Reason != ErrStaleConnection.Error() {
		t.Errorf("CloseStatus() = %+v, want abnormal stale", status)
	}
}

func TestClient_PingHandlerKeepsAlive(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 10; i++ {
			if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.ReadMessage()
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 0 // server drives liveness

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close(CloseNormal, "")

	drainUntilClosed(t, client, 2*time.Second)

	if got := client.CloseStatus().Code; got != CloseNormal {
		t.Errorf("CloseStatus().Code = %d, want %d", got, CloseNormal)
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		host   string
		secure bool
		id     string
		want   string
	}{
		{"localhost:8000", false, "client_1_abcdefghi", "ws://localhost:8000/ws/client_1_abcdefghi"},
		{"chat.example.com", true, "client_1_abcdefghi", "wss://chat.example.com/ws/client_1_abcdefghi"},
		{"chat.example.com", true, "a b", "wss://chat.example.com/ws/a%20b"},
	}

	for _, tt := range tests {
		if got := EndpointURL(tt.host, tt.secure, tt.id); got != tt.want {
			t.Errorf("EndpointURL(%q, %v, %q) = %q, want %q", tt.host, tt.secure, tt.id, got, tt.want)
		}
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		State(9):          "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
