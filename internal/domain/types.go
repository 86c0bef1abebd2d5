// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Action ─────────────────────────────────────────────────────────────────

// Action is the classified result of a completed gesture.
type Action string

const (
	SwipeNext     Action = "SWIPE_NEXT"
	ShowMeaning   Action = "SHOW_MEANING"
	MarkDifficult Action = "MARK_DIFFICULT"
)

// ─── Item ───────────────────────────────────────────────────────────────────

// Item is a single unit of study content and its spaced-repetition state.
type Item struct {
	ID              string    `json:"id"`
	Word            string    `json:"word"`
	Meaning         string    `json:"meaning"`
	Level           int       `json:"level"`
	VirtualCount    float64   `json:"virtual_review_count"`
	ActualCount     int       `json:"actual_review_count"`
	Sensitivity     float64   `json:"sensitivity"`
	NextReviewTime  time.Time `json:"next_review_time"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewItem returns an Item in its creation state: N=0, n=0, S=1, due now.
func NewItem(id, word, meaning string, level int, now time.Time) Item {
	return Item{
		ID:             id,
		Word:           word,
		Meaning:        meaning,
		Level:          level,
		VirtualCount:   0,
		ActualCount:    0,
		Sensitivity:    1,
		NextReviewTime: now,
		CreatedAt:      now,
	}
}

// IsDue reports whether the item's next_review_time has passed as of now.
func (it Item) IsDue(now time.Time) bool {
	return !it.NextReviewTime.After(now)
}

// ─── ReviewRecord ───────────────────────────────────────────────────────────

// ReviewRecord is one append-only study event for an item.
type ReviewRecord struct {
	ItemID     string    `json:"item_id"`
	DwellMs    int64     `json:"dwell_millis"`
	ReviewTime time.Time `json:"review_time"`
	Action     Action    `json:"action"`
	SessionID  string    `json:"session_id,omitempty"`
}

// IsAccidental reports whether this record's dwell is below the rejection
// threshold — see config.Gesture.AccidentalThresholdMs.
func (r ReviewRecord) IsAccidental(thresholdMs int64) bool {
	return r.DwellMs < thresholdMs
}

// ─── Anomaly ────────────────────────────────────────────────────────────────

// Anomaly classifies unusual review-history shapes for a single item.
type Anomaly string

const (
	AnomalyNone              Anomaly = "NONE"
	AnomalyFrequentAccidents Anomaly = "FREQUENT_ACCIDENTS"
	AnomalyHighVariance      Anomaly = "HIGH_VARIANCE"
)

// ─── Session ────────────────────────────────────────────────────────────────

// SessionState is the lifecycle stage of a Session.
type SessionState string

const (
	SessionIdle   SessionState = "IDLE"
	SessionActive SessionState = "ACTIVE"
	SessionPaused SessionState = "PAUSED"
	SessionEnded  SessionState = "ENDED"
)

// Session tracks one learner's run through the recommendation queue.
type Session struct {
	ID           string       `json:"session_id"`
	StartTime    time.Time    `json:"start_time"`
	ItemsStudied int          `json:"items_studied"`
	TotalActions int          `json:"total_actions"`
	State        SessionState `json:"state"`
}

// IsActive reports whether the session accepts gestures.
func (s Session) IsActive() bool {
	return s.State == SessionActive
}

// SessionResult summarizes a completed session, emitted on SessionEnded.
type SessionResult struct {
	SessionID    string        `json:"session_id"`
	Duration     time.Duration `json:"duration"`
	ItemsStudied int           `json:"items_studied"`
	TotalActions int           `json:"total_actions"`
}
