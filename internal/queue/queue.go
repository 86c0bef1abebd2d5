// Package queue implements C4: the mutable recommendation queue of item
// IDs, with stack-style insertion for promoted/imported items and a
// current-index cursor.
package queue

import (
	"sort"
	"time"

	"github.com/memoster/reviewcore/internal/domain"
)

// Queue is the ordered sequence of due item IDs a session walks through.
// It is deduplicated on insertion and owned exclusively by one session.
type Queue struct {
	ids          []string
	currentIndex int
	isPaused     bool
}

// BuildInitial includes every item due at or before now, sorted ascending
// by next_review_time, with the cursor at the head.
func BuildInitial(items []domain.Item, now time.Time) *Queue {
	due := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if !it.NextReviewTime.After(now) {
			due = append(due, it)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReviewTime.Before(due[j].NextReviewTime)
	})
	ids := make([]string, len(due))
	for i, it := range due {
		ids[i] = it.ID
	}
	return &Queue{ids: ids}
}

// Current returns the ID at the cursor, or false when empty or past end.
func (q *Queue) Current() (string, bool) {
	if q.currentIndex < 0 || q.currentIndex >= len(q.ids) {
		return "", false
	}
	return q.ids[q.currentIndex], true
}

// Advance moves the cursor to the next ID. Returns false when already at
// (or past) the end.
func (q *Queue) Advance() bool {
	if q.currentIndex+1 >= len(q.ids) {
		return false
	}
	q.currentIndex++
	return true
}

// WrapToHead resets the cursor to 0, used when advance falls off the end
// of a non-empty queue (§4.7 move_to_next).
func (q *Queue) WrapToHead() {
	q.currentIndex = 0
}

// AddItem inserts id at position 0 (stack-style), moving the cursor one
// slot later so it keeps pointing at the same logical item, unless the
// queue was empty. Duplicate IDs are ignored (dedup at head, spec §9).
// Returns true if the item was actually inserted.
func (q *Queue) AddItem(id string) bool {
	for _, existing := range q.ids {
		if existing == id {
			return false
		}
	}
	wasEmpty := len(q.ids) == 0
	q.ids = append([]string{id}, q.ids...)
	if !wasEmpty {
		q.currentIndex++
	}
	return true
}

// RemoveItem deletes id, preserving the order of the remaining IDs and
// adjusting the cursor down if it pointed past the removed slot. A cursor
// on the removed slot stays put, now pointing at the following ID, or at
// the new last ID if the removed one was last.
func (q *Queue) RemoveItem(id string) bool {
	idx := -1
	for i, existing := range q.ids {
		if existing == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	q.ids = append(q.ids[:idx], q.ids[idx+1:]...)
	if q.currentIndex > idx {
		q.currentIndex--
	} else if q.currentIndex >= len(q.ids) && len(q.ids) > 0 {
		q.currentIndex = len(q.ids) - 1
	}
	return true
}

// SortByNextReview stably reorders the remaining IDs by
// lookup(id).NextReviewTime ascending; unknown IDs sort last (treated as
// +Inf). The cursor is re-pointed at whatever ID it was on before the sort.
func (q *Queue) SortByNextReview(lookup func(id string) (domain.Item, bool)) {
	currentID, hadCurrent := q.Current()

	sort.SliceStable(q.ids, func(i, j int) bool {
		ti, oki := lookup(q.ids[i])
		tj, okj := lookup(q.ids[j])
		if !oki {
			return false
		}
		if !okj {
			return true
		}
		return ti.NextReviewTime.Before(tj.NextReviewTime)
	})

	if hadCurrent {
		for i, id := range q.ids {
			if id == currentID {
				q.currentIndex = i
				break
			}
		}
	}
}

// Pause sets is_paused.
func (q *Queue) Pause() { q.isPaused = true }

// Resume clears is_paused.
func (q *Queue) Resume() { q.isPaused = false }

// IsPaused reports the pause flag.
func (q *Queue) IsPaused() bool { return q.isPaused }

// Len returns the number of IDs currently queued.
func (q *Queue) Len() int { return len(q.ids) }

// IsEmpty reports whether the queue holds no IDs.
func (q *Queue) IsEmpty() bool { return len(q.ids) == 0 }

// IDs returns a copy of the current ID order, for inspection and testing.
func (q *Queue) IDs() []string {
	out := make([]string, len(q.ids))
	copy(out, q.ids)
	return out
}

// CurrentIndex exposes the cursor position, for testing.
func (q *Queue) CurrentIndex() int { return q.currentIndex }

// HeadDue reports whether the item at position 0 is due at or before now
// — used by move_to_next to decide whether to snap to a just-promoted head.
func (q *Queue) HeadDue(now time.Time, lookup func(id string) (domain.Item, bool)) (string, bool) {
	if len(q.ids) == 0 {
		return "", false
	}
	head := q.ids[0]
	it, ok := lookup(head)
	if !ok || it.NextReviewTime.After(now) {
		return "", false
	}
	return head, true
}

// SnapToHead moves the cursor to position 0.
func (q *Queue) SnapToHead() { q.currentIndex = 0 }
