package queue

import (
	"testing"
	"time"

	"github.com/memoster/reviewcore/internal/domain"
)

func TestBuildInitial_SubsetSortedByNextReview(t *testing.T) {
	now := time.UnixMilli(100)
	items := []domain.Item{
		{ID: "a", NextReviewTime: time.UnixMilli(50)},
		{ID: "b", NextReviewTime: time.UnixMilli(200)}, // not due
		{ID: "c", NextReviewTime: time.UnixMilli(10)},
		{ID: "d", NextReviewTime: time.UnixMilli(100)}, // exactly due
	}
	q := BuildInitial(items, now)
	got := q.IDs()
	want := []string{"c", "a", "d"}
	if len(got) != len(want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if q.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex = %d, want 0", q.CurrentIndex())
	}
}

func TestAddItem_StackInsertionAndDedup(t *testing.T) {
	q := BuildInitial([]domain.Item{{ID: "a", NextReviewTime: time.UnixMilli(0)}}, time.UnixMilli(0))
	if !q.AddItem("new") {
		t.Fatal("AddItem should insert a new id")
	}
	if q.IDs()[0] != "new" {
		t.Errorf("new id must be at head, got %v", q.IDs())
	}
	if q.AddItem("new") {
		t.Error("AddItem must ignore a duplicate id")
	}
}

func TestAddThenRemove_SetEqual(t *testing.T) {
	q := BuildInitial([]domain.Item{
		{ID: "a", NextReviewTime: time.UnixMilli(0)},
		{ID: "b", NextReviewTime: time.UnixMilli(0)},
	}, time.UnixMilli(0))
	before := append([]string(nil), q.IDs()...)

	q.AddItem("new")
	q.RemoveItem("new")

	after := q.IDs()
	if len(before) != len(after) {
		t.Fatalf("set sizes differ: %v vs %v", before, after)
	}
	seen := map[string]bool{}
	for _, id := range after {
		seen[id] = true
	}
	for _, id := range before {
		if !seen[id] {
			t.Errorf("id %q missing after add+remove", id)
		}
	}
}

func TestAdvanceAndCurrent(t *testing.T) {
	q := BuildInitial([]domain.Item{
		{ID: "a", NextReviewTime: time.UnixMilli(0)},
		{ID: "b", NextReviewTime: time.UnixMilli(0)},
	}, time.UnixMilli(0))
	id, ok := q.Current()
	if !ok || id != "a" {
		t.Fatalf("Current = %q,%v want a,true", id, ok)
	}
	if !q.Advance() {
		t.Fatal("Advance should succeed")
	}
	id, ok = q.Current()
	if !ok || id != "b" {
		t.Fatalf("Current = %q,%v want b,true", id, ok)
	}
	if q.Advance() {
		t.Error("Advance past end should return false")
	}
}

func TestRemoveItem_AdjustsCursor(t *testing.T) {
	q := BuildInitial([]domain.Item{
		{ID: "a", NextReviewTime: time.UnixMilli(0)},
		{ID: "b", NextReviewTime: time.UnixMilli(0)},
		{ID: "c", NextReviewTime: time.UnixMilli(0)},
	}, time.UnixMilli(0))
	q.Advance() // cursor at b (index 1)
	q.RemoveItem("a")
	id, _ := q.Current()
	if id != "b" {
		t.Errorf("Current after removing earlier id = %q, want b", id)
	}
}

func TestPauseResume(t *testing.T) {
	q := &Queue{}
	if q.IsPaused() {
		t.Fatal("new queue should not be paused")
	}
	q.Pause()
	if !q.IsPaused() {
		t.Error("Pause should set is_paused")
	}
	q.Resume()
	if q.IsPaused() {
		t.Error("Resume should clear is_paused")
	}
}

func TestHeadDue(t *testing.T) {
	items := map[string]domain.Item{
		"a": {ID: "a", NextReviewTime: time.UnixMilli(10)},
	}
	lookup := func(id string) (domain.Item, bool) { it, ok := items[id]; return it, ok }
	q := &Queue{ids: []string{"a"}}
	if _, ok := q.HeadDue(time.UnixMilli(5), lookup); ok {
		t.Error("head not yet due should report false")
	}
	if id, ok := q.HeadDue(time.UnixMilli(10), lookup); !ok || id != "a" {
		t.Errorf("head due at exact instant should report true, got %v,%v", id, ok)
	}
}
