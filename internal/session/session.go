// Package session implements C7: the state machine tying the queue (C4),
// scheduler (C5), and gesture classifier (C6) together. It is the single
// logical owner of every mutation to the item store, queue, and batch
// writer (§5) — the scheduler only ever posts messages to it, grounded on
// the teacher's executor.Executor lifecycle/mutex/Stats shape and its
// background goroutine draining a channel in the manner of
// gossip.SWIM.Start(ctx).
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memoster/reviewcore/internal/batch"
	"github.com/memoster/reviewcore/internal/domain"
	"github.com/memoster/reviewcore/internal/gesture"
	"github.com/memoster/reviewcore/internal/obs"
	"github.com/memoster/reviewcore/internal/queue"
	"github.com/memoster/reviewcore/internal/review"
	"github.com/memoster/reviewcore/internal/scheduler"
	"github.com/memoster/reviewcore/internal/store"
	"github.com/memoster/reviewcore/internal/strength"
)

// Config holds C7's tunable constants, separate from its collaborators.
type Config struct {
	ReviewParams          review.Params
	GestureThresholds     gesture.Thresholds
	AccidentalThresholdMs int64
}

// Manager is the session state machine. One Manager serves one active
// session at a time, per process (§3).
type Manager struct {
	mu sync.Mutex

	cfg       Config
	store     *store.Store
	queue     *queue.Queue
	sched     *scheduler.Scheduler
	writer    *batch.Writer
	notifier  domain.Notifier
	clock     domain.Clock
	gestureFSM *gesture.Classifier

	session        domain.Session
	studyStartTime time.Time
}

// New constructs a Manager. The session starts in Idle state; call
// StartSession to transition to Active.
func New(cfg Config, st *store.Store, sched *scheduler.Scheduler, writer *batch.Writer, notifier domain.Notifier, clock domain.Clock) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      st,
		queue:      queue.BuildInitial(nil, clock.Now()),
		sched:      sched,
		writer:     writer,
		notifier:   notifier,
		clock:      clock,
		gestureFSM: gesture.New(cfg.GestureThresholds),
		session:    domain.Session{State: domain.SessionIdle},
	}
}

// StartSession transitions Idle → Active: builds the initial queue from
// every currently due item, assigns a session ID, and emits
// SessionStarted (§4.7).
func (m *Manager) StartSession() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	id := uuid.NewString()
	m.queue = queue.BuildInitial(m.store.AllItems(), now)
	m.session = domain.Session{ID: id, StartTime: now, State: domain.SessionActive}
	m.studyStartTime = time.Time{}

	obs.SessionsStarted.Inc()
	obs.QueueDepth.Set(float64(m.queue.Len()))
	m.notifier.SessionStarted(id)
	return id, nil
}

// StartCurrentStudy loads the queue's current item and records the dwell
// baseline, emitting StudyStarted.
func (m *Manager) StartCurrentStudy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCurrentStudyLocked()
}

func (m *Manager) startCurrentStudyLocked() error {
	if !m.session.IsActive() {
		return domain.ErrNoActiveSession
	}
	id, ok := m.queue.Current()
	if !ok {
		return domain.ErrNoCurrentItem
	}
	item, ok := m.store.GetItem(id)
	if !ok {
		return domain.ErrNoCurrentItem
	}
	m.startStudyLocked(item)
	return nil
}

func (m *Manager) startStudyLocked(item domain.Item) {
	m.studyStartTime = m.clock.Now()
	m.notifier.StudyStarted(item)
}

// OnGesture applies a classified gesture to the item currently under
// study (§4.7). A dwell below the accidental threshold is silently
// rejected via AccidentalOperation. A paused session discards the
// gesture without any timing side effect.
func (m *Manager) OnGesture(action domain.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State == domain.SessionPaused {
		return nil
	}
	if !m.session.IsActive() {
		return domain.ErrNoActiveSession
	}
	if m.studyStartTime.IsZero() {
		return domain.ErrNoCurrentItem
	}

	now := m.clock.Now()
	dwellMs := now.Sub(m.studyStartTime).Milliseconds()
	if dwellMs < m.cfg.AccidentalThresholdMs {
		obs.AccidentalOperations.Inc()
		m.notifier.AccidentalOperation(dwellMs, "dwell below accidental threshold")
		return nil
	}
	obs.DwellMillis.Observe(float64(dwellMs))
	obs.GesturesClassified.WithLabelValues(string(action)).Inc()

	id, ok := m.queue.Current()
	if !ok {
		return domain.ErrNoCurrentItem
	}
	item, ok := m.store.GetItem(id)
	if !ok {
		return domain.ErrNoCurrentItem
	}

	record := domain.ReviewRecord{
		ItemID:     id,
		DwellMs:    dwellMs,
		ReviewTime: now,
		Action:     action,
		SessionID:  m.session.ID,
	}

	history, err := m.store.GetHistory(id)
	if err != nil {
		return fmt.Errorf("session: load history: %w", err)
	}
	history = append(history, record)

	if anomaly := strength.Anomaly(history, m.cfg.AccidentalThresholdMs); anomaly != domain.AnomalyNone {
		obs.AnomaliesDetected.WithLabelValues(string(anomaly)).Inc()
	}

	updated := review.ComputeUpdate(item, record, history, m.cfg.ReviewParams)

	if err := m.store.UpdateItem(updated); err != nil {
		return fmt.Errorf("session: update item: %w", err)
	}
	if err := m.store.AddRecord(id, record); err != nil {
		return fmt.Errorf("session: add record: %w", err)
	}

	if updated.NextReviewTime.After(now) {
		m.queue.RemoveItem(id)
		m.sched.RegisterItem(id, updated.NextReviewTime)
	}

	m.session.ItemsStudied++
	m.session.TotalActions++
	m.studyStartTime = time.Time{}

	m.writer.Enqueue(updated, record)
	m.notifier.StudyCompleted(item, record, updated)

	m.moveToNextLocked(now)
	return nil
}

// MoveToNext advances the queue cursor per §4.7: if the item at the head
// of the queue (position 0) is due, the cursor snaps to it — this is how a
// promoted or imported item preempts the current position, and it also
// applies when the head is an item that was already queued, including the
// one the cursor is on. Otherwise the cursor advances, or
// wraps to 0 if it fell off a non-empty queue, or triggers the idle-wait
// timer and QueueEmpty if the queue has drained. OnGesture already calls
// this once a study completes, as part of the input → C6 → C7 control
// flow; callers drive it directly only for an explicit skip.
func (m *Manager) MoveToNext() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsActive() {
		return domain.ErrNoActiveSession
	}
	m.moveToNextLocked(m.clock.Now())
	return nil
}

func (m *Manager) moveToNextLocked(now time.Time) {
	m.studyStartTime = time.Time{}
	defer func() { obs.QueueDepth.Set(float64(m.queue.Len())) }()

	if _, ok := m.queue.HeadDue(now, m.store.GetItem); ok {
		m.queue.SnapToHead()
		return
	}

	if m.queue.Advance() {
		return
	}
	if !m.queue.IsEmpty() {
		m.queue.WrapToHead()
		return
	}

	if t, ok := m.store.EarliestDueAfter(now); ok {
		m.sched.RegisterIdleWait(t)
	}
	obs.QueueEmptyEvents.Inc()
	m.notifier.QueueEmpty()
}

// PauseSession transitions Active → Paused.
func (m *Manager) PauseSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State != domain.SessionActive {
		return domain.ErrNoActiveSession
	}
	m.session.State = domain.SessionPaused
	m.queue.Pause()
	m.notifier.SessionPaused()
	return nil
}

// ResumeSession transitions Paused → Active.
func (m *Manager) ResumeSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State != domain.SessionPaused {
		return domain.ErrNoActiveSession
	}
	m.session.State = domain.SessionActive
	m.queue.Resume()
	m.notifier.SessionResumed()
	return nil
}

// EndSession cancels all scheduler timers, forces a batch flush, and
// transitions to Ended. Subsequent operations fail with NoActiveSession.
func (m *Manager) EndSession() (domain.SessionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State != domain.SessionActive && m.session.State != domain.SessionPaused {
		return domain.SessionResult{}, domain.ErrNoActiveSession
	}

	m.sched.CancelAll()
	// A flush failure has already been snapshotted by the writer for
	// later retry/recovery; end_session proceeds regardless (§4.8).
	_ = m.writer.ForceFlush()

	now := m.clock.Now()
	result := domain.SessionResult{
		SessionID:    m.session.ID,
		Duration:     now.Sub(m.session.StartTime),
		ItemsStudied: m.session.ItemsStudied,
		TotalActions: m.session.TotalActions,
	}
	m.session.State = domain.SessionEnded
	m.studyStartTime = time.Time{}
	obs.SessionsEnded.Inc()
	obs.SessionItemsStudied.Observe(float64(result.ItemsStudied))
	m.notifier.SessionEnded(result)
	return result, nil
}

// AddItem imports a new item during an active session: it is added to
// the store and placed at the head of the queue (§4.5/§9), preempting
// the current position at the next MoveToNext.
func (m *Manager) AddItem(item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsActive() {
		return domain.ErrNoActiveSession
	}
	if err := m.store.AddItem(item); err != nil {
		return fmt.Errorf("session: add item: %w", err)
	}
	m.writer.EnqueueItem(item)
	if m.queue.AddItem(item.ID) {
		m.notifier.ItemAddedToQueue(item)
	}
	return nil
}

// Run drains the scheduler's outbox until stop is closed, applying each
// Promote/Refresh message under the session's own lock — the scheduler
// itself never touches queue or cache state (§5, §9).
func (m *Manager) Run(stop <-chan struct{}) {
	for {
		select {
		case msg, ok := <-m.sched.Outbox():
			if !ok {
				return
			}
			m.handleMessage(msg)
		case <-stop:
			return
		}
	}
}

func (m *Manager) handleMessage(msg scheduler.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsActive() {
		return
	}
	now := m.clock.Now()
	switch msg.Kind {
	case scheduler.MsgPromote:
		m.handlePromoteLocked(msg.ItemID, now)
	case scheduler.MsgRefresh:
		m.handleRefreshLocked(now)
	}
}

// handlePromoteLocked re-verifies the item's due time against now at fire
// time before promoting it, per §4.5's re-verification requirement: a
// timer that fires late still promotes, while an item that is not due as
// of now is left alone. No extra tolerance window is applied.
func (m *Manager) handlePromoteLocked(id string, now time.Time) {
	item, ok := m.store.GetItem(id)
	if !ok || item.NextReviewTime.After(now) {
		return
	}
	for _, existing := range m.queue.IDs() {
		if existing == id {
			return
		}
	}

	_, hadCurrent := m.queue.Current()
	if !m.queue.AddItem(id) {
		return
	}
	m.notifier.ItemAddedToQueue(item)

	if !hadCurrent {
		m.queue.SnapToHead()
		m.notifier.QueueRefreshed(&item)
		m.startStudyLocked(item)
	}
}

// handleRefreshLocked rebuilds the queue from every currently due item,
// used when the idle-wait timer fires.
func (m *Manager) handleRefreshLocked(now time.Time) {
	_, hadCurrent := m.queue.Current()
	m.queue = queue.BuildInitial(m.store.AllItems(), now)
	if m.queue.IsEmpty() {
		return
	}
	m.notifier.QueueRefreshed(nil)
	if !hadCurrent {
		id, ok := m.queue.Current()
		if !ok {
			return
		}
		item, ok := m.store.GetItem(id)
		if !ok {
			return
		}
		m.startStudyLocked(item)
	}
}

// OnBackground forces a batch flush, per the application-lifecycle hook
// in §4.7.
func (m *Manager) OnBackground() error {
	return m.writer.ForceFlush()
}

// OnForeground forces a scheduler re-check: any item that has become due
// while backgrounded is promoted immediately rather than waiting for its
// timer to fire.
func (m *Manager) OnForeground() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsActive() {
		return domain.ErrNoActiveSession
	}
	now := m.clock.Now()
	for _, id := range m.store.DueItemIDs(now) {
		m.handlePromoteLocked(id, now)
	}
	return nil
}

// ─── Gesture entry points (C6 → C7 wiring) ─────────────────────────────────

// OnTap feeds a completed tap-up into the gesture classifier, applying
// the resulting action if the tap resolves immediately (a double-tap).
func (m *Manager) OnTap() error {
	now := m.clock.Now()
	action, resolved := m.gestureFSM.OnTap(now)
	if !resolved {
		return nil
	}
	return m.OnGesture(action)
}

// CheckPendingTapExpired resolves a pending single tap once its window
// has elapsed; the caller is responsible for scheduling this check at
// the deadline reported by PendingTapDeadline.
func (m *Manager) CheckPendingTapExpired() error {
	now := m.clock.Now()
	action, resolved := m.gestureFSM.CheckPendingExpired(now)
	if !resolved {
		return nil
	}
	return m.OnGesture(action)
}

// PendingTapDeadline reports the last instant of a pending single tap's
// double-tap window; a CheckPendingTapExpired call at any instant after it
// resolves the tap, so the caller can schedule exactly one such call.
func (m *Manager) PendingTapDeadline() (time.Time, bool) {
	return m.gestureFSM.PendingDeadline()
}

// OnLongPress feeds a completed press of the given duration into the
// classifier.
func (m *Manager) OnLongPress(pressDuration time.Duration) error {
	action, resolved := m.gestureFSM.OnLongPress(pressDuration)
	if !resolved {
		return nil
	}
	return m.OnGesture(action)
}

// OnFling feeds a completed fling, given its raw per-axis deltas and
// velocities, into the classifier.
func (m *Manager) OnFling(dx, dy, vx, vy float64) error {
	delta, velocity := gesture.DominantAxis(dx, dy, vx, vy)
	action, resolved := m.gestureFSM.OnFling(delta, velocity)
	if !resolved {
		return nil
	}
	return m.OnGesture(action)
}

// ─── Inspection ─────────────────────────────────────────────────────────────

// Stats summarizes the current session, for diagnostics.
type Stats struct {
	State        domain.SessionState
	ItemsStudied int
	TotalActions int
	QueueLen     int
	IsPaused     bool
}

// Stats returns a snapshot of the session's current state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		State:        m.session.State,
		ItemsStudied: m.session.ItemsStudied,
		TotalActions: m.session.TotalActions,
		QueueLen:     m.queue.Len(),
		IsPaused:     m.queue.IsPaused(),
	}
}

// CurrentItem returns the item under the queue's cursor, if any.
func (m *Manager) CurrentItem() (domain.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.queue.Current()
	if !ok {
		return domain.Item{}, false
	}
	return m.store.GetItem(id)
}
