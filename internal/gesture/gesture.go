// Package gesture implements C6: classification of raw touch events into
// exactly one of SwipeNext, ShowMeaning, MarkDifficult per completed
// gesture. The classifier is stateful only across a single tap window and
// is non-blocking — it never starts its own timers; a caller (the session
// owner) decides when a pending single tap's window has elapsed, using
// the same Clock the rest of the core shares.
package gesture

import (
	"time"

	"github.com/memoster/reviewcore/internal/domain"
)

// Thresholds holds C6's classification constants (spec §6).
type Thresholds struct {
	DoubleTapWindow time.Duration
	LongPress       time.Duration
	FlingDistancePx float64
	FlingVelocity   float64
}

// Classifier tracks the state needed to tell a single tap from the first
// half of a double tap.
type Classifier struct {
	cfg           Thresholds
	pendingTap    bool
	pendingTapAt  time.Time
}

// New constructs a Classifier with the given thresholds.
func New(cfg Thresholds) *Classifier {
	return &Classifier{cfg: cfg}
}

// OnTap registers a completed tap-up at now. If a prior tap is still
// pending and now falls within the double-tap window, both taps resolve
// to MarkDifficult and state resets (resolved=true). Otherwise this tap
// becomes the new pending tap and resolved is false — the caller must
// later call CheckPendingExpired once the window has passed.
func (c *Classifier) OnTap(now time.Time) (action domain.Action, resolved bool) {
	if c.pendingTap && !now.After(c.pendingTapAt.Add(c.cfg.DoubleTapWindow)) {
		c.reset()
		return domain.MarkDifficult, true
	}
	c.pendingTap = true
	c.pendingTapAt = now
	return "", false
}

// CheckPendingExpired resolves a pending single tap to ShowMeaning once
// now is past the double-tap window from the pending tap. Returns
// resolved=false if there is no pending tap or the window hasn't elapsed.
func (c *Classifier) CheckPendingExpired(now time.Time) (action domain.Action, resolved bool) {
	if !c.pendingTap {
		return "", false
	}
	if now.After(c.pendingTapAt.Add(c.cfg.DoubleTapWindow)) {
		c.reset()
		return domain.ShowMeaning, true
	}
	return "", false
}

// PendingDeadline returns the last instant of a pending single tap's
// double-tap window, and whether a tap is currently pending. A tap at this
// instant still counts as a double tap; CheckPendingExpired resolves the
// pending tap at any instant after it, so the caller can schedule exactly
// one check just past the deadline instead of polling.
func (c *Classifier) PendingDeadline() (time.Time, bool) {
	if !c.pendingTap {
		return time.Time{}, false
	}
	return c.pendingTapAt.Add(c.cfg.DoubleTapWindow), true
}

// OnLongPress resolves a completed press of the given duration. Returns
// resolved=false if the press was shorter than the long-press threshold
// (the caller should then treat the release as an ordinary tap via OnTap).
func (c *Classifier) OnLongPress(pressDuration time.Duration) (action domain.Action, resolved bool) {
	if pressDuration >= c.cfg.LongPress {
		c.reset()
		return domain.MarkDifficult, true
	}
	return "", false
}

// OnFling resolves a fling gesture given its dominant-axis delta and
// velocity (already resolved to the larger of X/Y by the caller). A fling
// always wins regardless of tap state, per §4.6's "exactly one gesture
// class per completed gesture, regardless of direction".
func (c *Classifier) OnFling(dominantDeltaPx, dominantVelocityPxPerSec float64) (action domain.Action, resolved bool) {
	if absF(dominantDeltaPx) > c.cfg.FlingDistancePx && absF(dominantVelocityPxPerSec) > c.cfg.FlingVelocity {
		c.reset()
		return domain.SwipeNext, true
	}
	return "", false
}

func (c *Classifier) reset() {
	c.pendingTap = false
	c.pendingTapAt = time.Time{}
}

// DominantAxis picks the larger-magnitude of (dx, vx) vs (dy, vy),
// returning the delta/velocity pair belonging to whichever axis has the
// larger absolute delta.
func DominantAxis(dx, dy, vx, vy float64) (delta, velocity float64) {
	if absF(dx) >= absF(dy) {
		return dx, vx
	}
	return dy, vy
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
