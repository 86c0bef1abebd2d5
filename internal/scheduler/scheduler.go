// Package scheduler implements C5: per-item due-time timers and the
// idle-wait timer. It owns only item IDs and an outbox channel — never
// core state — adapted from the teacher's gossip.SWIM background
// probe-cycle loop (timer-driven, message-passing) with the UDP/membership
// machinery stripped out. Each timer is a time.AfterFunc that posts a
// Message to the outbox channel; there are no callback fields.
package scheduler

import (
	"sync"
	"time"

	"github.com/memoster/reviewcore/internal/obs"
)

// MessageKind identifies what a Message is asking the session owner to do.
type MessageKind int

const (
	// MsgPromote asks the owner to re-verify ItemID's due time and, if
	// still due and not already queued, promote it to the head of the
	// queue.
	MsgPromote MessageKind = iota
	// MsgRefresh asks the owner to rebuild the queue from scratch (the
	// idle-wait timer fired).
	MsgRefresh
)

// Message is posted to the outbox when a timer fires. It carries only an
// ID (or nothing, for a refresh) — never an item value — so the scheduler
// never needs read access to the item store.
type Message struct {
	Kind   MessageKind
	ItemID string
}

// Scheduler runs per-item timers and a single idle-wait timer on a
// background goroutine per fire, posting Message values to Outbox(). It
// never mutates session, queue, or store state directly.
type Scheduler struct {
	mu        sync.Mutex
	clock     func() time.Time
	timers    map[string]*time.Timer
	idleTimer *time.Timer
	out       chan Message
	closed    bool
}

// New constructs a Scheduler. clock is the same injectable Now func()
// time.Time used throughout the core for deterministic tests.
func New(clock func() time.Time) *Scheduler {
	return &Scheduler{
		clock:  clock,
		timers: make(map[string]*time.Timer),
		out:    make(chan Message, 64),
	}
}

// Outbox returns the channel the session owner drains for Promote/Refresh
// messages.
func (s *Scheduler) Outbox() <-chan Message {
	return s.out
}

// RegisterItem schedules a one-shot timer for id to fire at dueAt. At
// most one pending timer exists per ID; a prior registration for the same
// ID is replaced (coalescing, §4.5).
func (s *Scheduler) RegisterItem(id string, dueAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if existing, ok := s.timers[id]; ok {
		existing.Stop()
	}
	d := dueAt.Sub(s.clock())
	if d < 0 {
		d = 0
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.timers[id] == t {
			delete(s.timers, id)
			obs.SchedulerTimersActive.Set(float64(len(s.timers)))
		}
		s.mu.Unlock()
		s.post(Message{Kind: MsgPromote, ItemID: id})
	})
	s.timers[id] = t
	obs.SchedulerTimersActive.Set(float64(len(s.timers)))
}

// CancelItem stops id's pending timer, if any.
func (s *Scheduler) CancelItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	obs.SchedulerTimersActive.Set(float64(len(s.timers)))
}

// RegisterIdleWait schedules the single idle-wait timer to fire at t.
// Replaces any previously scheduled idle-wait timer (single slot, §4.5).
func (s *Scheduler) RegisterIdleWait(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	d := t.Sub(s.clock())
	if d < 0 {
		d = 0
	}
	s.idleTimer = time.AfterFunc(d, func() { s.post(Message{Kind: MsgRefresh}) })
}

// CancelIdleWait stops the idle-wait timer, if scheduled.
func (s *Scheduler) CancelIdleWait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// CancelAll stops every per-item timer and the idle-wait timer — used by
// end_session (§5 Cancellation).
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	obs.SchedulerTimersActive.Set(0)
}

// Close cancels all timers and stops accepting new registrations. The
// outbox channel is left open; callers should stop draining it after Close.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.CancelAll()
}

func (s *Scheduler) post(msg Message) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	obs.SchedulerMessagesSent.WithLabelValues(msg.Kind.String()).Inc()
	s.out <- msg
}

// String names a MessageKind for metric labels and logging.
func (k MessageKind) String() string {
	switch k {
	case MsgPromote:
		return "promote"
	case MsgRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}
