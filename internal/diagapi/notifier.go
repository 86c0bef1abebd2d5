package diagapi

import (
	"time"

	"github.com/memoster/reviewcore/internal/domain"
)

// HubNotifier adapts an EventHub to domain.Notifier, broadcasting every
// lifecycle callback the session owner emits as an SSE event. It wraps an
// inner Notifier so the diagnostic feed never replaces whatever Notifier
// the host application already uses (e.g. a mobile bridge) — it only
// observes.
type HubNotifier struct {
	hub   *EventHub
	inner domain.Notifier
}

// NewHubNotifier wraps inner, broadcasting every event to hub in addition
// to forwarding it to inner. inner may be a no-op Notifier.
func NewHubNotifier(hub *EventHub, inner domain.Notifier) *HubNotifier {
	return &HubNotifier{hub: hub, inner: inner}
}

func (n *HubNotifier) broadcast(typ string, data any) {
	n.hub.Broadcast(Event{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()})
}

func (n *HubNotifier) SessionStarted(sessionID string) {
	n.broadcast("session_started", map[string]string{"session_id": sessionID})
	n.inner.SessionStarted(sessionID)
}

func (n *HubNotifier) SessionEnded(result domain.SessionResult) {
	n.broadcast("session_ended", result)
	n.inner.SessionEnded(result)
}

func (n *HubNotifier) SessionPaused() {
	n.broadcast("session_paused", nil)
	n.inner.SessionPaused()
}

func (n *HubNotifier) SessionResumed() {
	n.broadcast("session_resumed", nil)
	n.inner.SessionResumed()
}

func (n *HubNotifier) StudyStarted(item domain.Item) {
	n.broadcast("study_started", item)
	n.inner.StudyStarted(item)
}

func (n *HubNotifier) StudyCompleted(item domain.Item, record domain.ReviewRecord, updated domain.Item) {
	n.broadcast("study_completed", map[string]any{
		"item":    item,
		"record":  record,
		"updated": updated,
	})
	n.inner.StudyCompleted(item, record, updated)
}

func (n *HubNotifier) QueueEmpty() {
	n.broadcast("queue_empty", nil)
	n.inner.QueueEmpty()
}

func (n *HubNotifier) QueueRefreshed(item *domain.Item) {
	n.broadcast("queue_refreshed", item)
	n.inner.QueueRefreshed(item)
}

func (n *HubNotifier) ItemAddedToQueue(item domain.Item) {
	n.broadcast("item_added_to_queue", item)
	n.inner.ItemAddedToQueue(item)
}

func (n *HubNotifier) AccidentalOperation(dwellMs int64, description string) {
	n.broadcast("accidental_operation", map[string]any{"dwell_millis": dwellMs, "description": description})
	n.inner.AccidentalOperation(dwellMs, description)
}

// NoopNotifier implements domain.Notifier with no side effects, for use as
// HubNotifier's inner when nothing else needs these callbacks.
type NoopNotifier struct{}

func (NoopNotifier) SessionStarted(string)                                          {}
func (NoopNotifier) SessionEnded(domain.SessionResult)                              {}
func (NoopNotifier) SessionPaused()                                                 {}
func (NoopNotifier) SessionResumed()                                                {}
func (NoopNotifier) StudyStarted(domain.Item)                                       {}
func (NoopNotifier) StudyCompleted(domain.Item, domain.ReviewRecord, domain.Item)    {}
func (NoopNotifier) QueueEmpty()                                                    {}
func (NoopNotifier) QueueRefreshed(*domain.Item)                                    {}
func (NoopNotifier) ItemAddedToQueue(domain.Item)                                   {}
func (NoopNotifier) AccidentalOperation(int64, string)                              {}
