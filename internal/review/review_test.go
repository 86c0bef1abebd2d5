package review

import (
	"testing"
	"time"

	"github.com/memoster/reviewcore/internal/domain"
)

func TestComputeUpdate_FirstStudyOfNewItem(t *testing.T) {
	now := time.UnixMilli(0)
	item := domain.NewItem("000001", "apple", "苹果", 1, now)

	reviewTime := time.UnixMilli(4_000)
	record := domain.ReviewRecord{ItemID: item.ID, DwellMs: 4000, ReviewTime: reviewTime, Action: domain.SwipeNext}
	history := []domain.ReviewRecord{record}

	updated := ComputeUpdate(item, record, history, Params{BaseIntervalMs: 10_000, MinIntervalMs: 5_000})

	if updated.VirtualCount != 1 {
		t.Errorf("VirtualCount = %v, want 1", updated.VirtualCount)
	}
	if updated.ActualCount != 1 {
		t.Errorf("ActualCount = %v, want 1", updated.ActualCount)
	}
	if got := updated.Sensitivity; got < 1.999 || got > 2.001 {
		t.Errorf("Sensitivity = %v, want ~2", got)
	}
	if updated.NextReviewTime.UnixMilli() != 24_000 {
		t.Errorf("NextReviewTime = %v, want 24000", updated.NextReviewTime.UnixMilli())
	}
	// Other fields unchanged.
	if updated.Word != item.Word || updated.Meaning != item.Meaning || updated.ID != item.ID {
		t.Errorf("non-formula fields must be carried unchanged: %+v", updated)
	}
}

func TestComputeUpdate_ShowMeaningThenSwipeNext(t *testing.T) {
	now := time.UnixMilli(0)
	item := domain.NewItem("000002", "orange", "橙子", 1, now)
	params := Params{BaseIntervalMs: 10_000, MinIntervalMs: 5_000}

	r1 := domain.ReviewRecord{ItemID: item.ID, DwellMs: 3_000, ReviewTime: time.UnixMilli(3_000), Action: domain.ShowMeaning}
	item = ComputeUpdate(item, r1, []domain.ReviewRecord{r1}, params)
	if item.VirtualCount != 0.5 {
		t.Fatalf("after ShowMeaning, VirtualCount = %v, want 0.5", item.VirtualCount)
	}
	if item.ActualCount != 1 {
		t.Fatalf("after ShowMeaning, ActualCount = %v, want 1", item.ActualCount)
	}

	r2 := domain.ReviewRecord{ItemID: item.ID, DwellMs: 1_000, ReviewTime: time.UnixMilli(16_000), Action: domain.SwipeNext}
	history := []domain.ReviewRecord{r1, r2}
	item = ComputeUpdate(item, r2, history, params)
	if item.VirtualCount != 1.5 {
		t.Fatalf("after SwipeNext, VirtualCount = %v, want 1.5", item.VirtualCount)
	}
	if item.ActualCount != 2 {
		t.Fatalf("after SwipeNext, ActualCount = %v, want 2", item.ActualCount)
	}
	if got := item.Sensitivity; got < 1.75 || got > 1.76 {
		t.Errorf("Sensitivity = %v, want ~1.755", got)
	}
}

func TestComputeUpdate_IntervalNeverBelowFloor(t *testing.T) {
	now := time.UnixMilli(0)
	item := domain.NewItem("000003", "x", "y", 1, now)
	record := domain.ReviewRecord{ItemID: item.ID, DwellMs: 100_000, ReviewTime: now, Action: domain.MarkDifficult}
	updated := ComputeUpdate(item, record, []domain.ReviewRecord{record}, Params{BaseIntervalMs: 10_000, MinIntervalMs: 5_000})
	if updated.NextReviewTime.Before(record.ReviewTime.Add(5_000 * time.Millisecond)) {
		t.Errorf("NextReviewTime must be at least MinIntervalMs after review time")
	}
}
