package scheduler

import (
	"testing"
	"time"
)

func TestRegisterItem_FiresPromote(t *testing.T) {
	s := New(time.Now)
	defer s.Close()

	s.RegisterItem("000001", time.Now().Add(20*time.Millisecond))

	select {
	case msg := <-s.Outbox():
		if msg.Kind != MsgPromote || msg.ItemID != "000001" {
			t.Fatalf("got %+v, want Promote(000001)", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for promote message")
	}
}

func TestRegisterItem_Coalesces(t *testing.T) {
	s := New(time.Now)
	defer s.Close()

	// First registration would fire almost immediately; replacing it with
	// a much later one must cancel the first so only one message arrives.
	s.RegisterItem("000001", time.Now().Add(5*time.Millisecond))
	s.RegisterItem("000001", time.Now().Add(50*time.Millisecond))

	select {
	case <-s.Outbox():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	select {
	case msg := <-s.Outbox():
		t.Fatalf("unexpected second message: %+v", msg)
	case <-time.After(100 * time.Millisecond):
		// no second message — coalescing worked
	}
}

func TestCancelItem_PreventsFiring(t *testing.T) {
	s := New(time.Now)
	defer s.Close()

	s.RegisterItem("000001", time.Now().Add(20*time.Millisecond))
	s.CancelItem("000001")

	select {
	case msg := <-s.Outbox():
		t.Fatalf("cancelled timer should not fire, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIdleWait_FiresRefresh(t *testing.T) {
	s := New(time.Now)
	defer s.Close()

	s.RegisterIdleWait(time.Now().Add(20 * time.Millisecond))

	select {
	case msg := <-s.Outbox():
		if msg.Kind != MsgRefresh {
			t.Fatalf("got %+v, want Refresh", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for refresh message")
	}
}

func TestCancelAll_StopsEverything(t *testing.T) {
	s := New(time.Now)
	s.RegisterItem("000001", time.Now().Add(20*time.Millisecond))
	s.RegisterIdleWait(time.Now().Add(20 * time.Millisecond))
	s.CancelAll()

	select {
	case msg := <-s.Outbox():
		t.Fatalf("cancelled timers should not fire, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
