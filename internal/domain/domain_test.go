package domain

import (
	"testing"
	"time"
)

func TestNewItem(t *testing.T) {
	now := time.UnixMilli(0)
	it := NewItem("000001", "apple", "苹果", 1, now)

	if it.VirtualCount != 0 || it.ActualCount != 0 || it.Sensitivity != 1 {
		t.Fatalf("creation invariants violated: %+v", it)
	}
	if !it.NextReviewTime.Equal(now) {
		t.Fatalf("new item must be immediately due, got %v", it.NextReviewTime)
	}
}

func TestItem_IsDue(t *testing.T) {
	now := time.UnixMilli(10_000)
	tests := []struct {
		name string
		next time.Time
		want bool
	}{
		{"past is due", time.UnixMilli(5_000), true},
		{"exact instant is due", now, true},
		{"future is not due", time.UnixMilli(10_001), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := Item{NextReviewTime: tt.next}
			if got := it.IsDue(now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReviewRecord_IsAccidental(t *testing.T) {
	tests := []struct {
		name string
		dwel int64
		want bool
	}{
		{"199ms rejected", 199, true},
		{"200ms accepted", 200, false},
		{"0ms rejected", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ReviewRecord{DwellMs: tt.dwel}
			if got := r.IsAccidental(200); got != tt.want {
				t.Errorf("IsAccidental() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_IsActive(t *testing.T) {
	if (Session{State: SessionActive}).IsActive() != true {
		t.Error("active session must report active")
	}
	if (Session{State: SessionPaused}).IsActive() != false {
		t.Error("paused session must not report active")
	}
}

func TestClockFunc(t *testing.T) {
	fixed := time.UnixMilli(42)
	var c Clock = ClockFunc(func() time.Time { return fixed })
	if !c.Now().Equal(fixed) {
		t.Errorf("ClockFunc.Now() = %v, want %v", c.Now(), fixed)
	}
}
