package diagapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEventHub_BroadcastAndSubscribe(t *testing.T) {
	hub := NewEventHub()

	ch, unsub := hub.Subscribe()
	defer unsub()

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Broadcast(Event{Type: "queue_empty", Timestamp: time.Now().UnixMilli()})

	select {
	case data := <-ch:
		var received Event
		if err := json.Unmarshal(data, &received); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if received.Type != "queue_empty" {
			t.Errorf("Type = %q, want %q", received.Type, "queue_empty")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
}

func TestEventHub_MultipleClients(t *testing.T) {
	hub := NewEventHub()

	ch1, unsub1 := hub.Subscribe()
	ch2, unsub2 := hub.Subscribe()
	defer unsub1()
	defer unsub2()

	if hub.ClientCount() != 2 {
		t.Errorf("ClientCount() = %d, want 2", hub.ClientCount())
	}

	hub.Broadcast(Event{Type: "session_started"})

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Error("client 1 timeout")
	}
	select {
	case <-ch2:
	case <-time.After(time.Second):
		t.Error("client 2 timeout")
	}
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := NewEventHub()

	_, unsub := hub.Subscribe()
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	unsub()
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0 after unsubscribe", hub.ClientCount())
	}
}

func TestEventHub_SlowClientDropsRatherThanBlocks(t *testing.T) {
	hub := NewEventHub()
	_, unsub := hub.Subscribe() // never drained
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			hub.Broadcast(Event{Type: "study_started"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}
}

func TestEventHub_SSEEndpoint(t *testing.T) {
	hub := NewEventHub()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleSSE))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}

	hub.Broadcast(Event{Type: "queue_empty"})

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil && n == 0 {
		t.Fatalf("read: %v", err)
	}
	if n == 0 {
		t.Fatal("expected SSE payload, got none")
	}
}
