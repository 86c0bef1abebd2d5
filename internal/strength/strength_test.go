package strength

import (
	"math"
	"testing"
	"time"

	"github.com/memoster/reviewcore/internal/domain"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestUpdateVirtualCount(t *testing.T) {
	tests := []struct {
		name   string
		n      float64
		action domain.Action
		want   float64
	}{
		{"swipe next increments by 1", 0, domain.SwipeNext, 1},
		{"show meaning increments by half", 0, domain.ShowMeaning, 0.5},
		{"mark difficult at N=2 floors to 0", 2, domain.MarkDifficult, 0},
		{"mark difficult at N=2.5 floors to 0.5", 2.5, domain.MarkDifficult, 0.5},
		{"mark difficult below floor clamps to 0", 1, domain.MarkDifficult, 0},
		{"never goes negative", 0, domain.MarkDifficult, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateVirtualCount(tt.n, tt.action)
			if !approxEqual(got, tt.want, 1e-9) {
				t.Errorf("UpdateVirtualCount(%v, %v) = %v, want %v", tt.n, tt.action, got, tt.want)
			}
		})
	}
}

func TestSensitivity(t *testing.T) {
	if got := Sensitivity(0, 0); got != 1.0 {
		t.Errorf("Sensitivity with n'=0 = %v, want 1.0", got)
	}
	// N'=1, n'=1 -> tanh(0)+2 = 2
	if got := Sensitivity(1, 1); !approxEqual(got, 2, 1e-9) {
		t.Errorf("Sensitivity(1,1) = %v, want 2", got)
	}
	// clamps to [1,3] for extreme ratios
	if got := Sensitivity(1000, 1); got > 3 {
		t.Errorf("Sensitivity must clamp to <= 3, got %v", got)
	}
}

func TestBaseIntervalMs(t *testing.T) {
	got := BaseIntervalMs(10_000, 2, 1)
	if !approxEqual(got, 20_000, 1e-6) {
		t.Errorf("BaseIntervalMs = %v, want 20000", got)
	}
}

func TestDwellFactor(t *testing.T) {
	if got := DwellFactor(4000, 0); got != 1.0 {
		t.Errorf("DwellFactor with zero avg = %v, want 1.0", got)
	}
	if got := DwellFactor(1000, 2000); got != 0.5 {
		t.Errorf("DwellFactor(1000,2000) = %v, want 0.5", got)
	}
}

func TestFinalIntervalMs_Floor(t *testing.T) {
	if got := FinalIntervalMs(1000, 1.0, 5000); got != 5000 {
		t.Errorf("FinalIntervalMs must floor at minMs, got %v", got)
	}
	if got := FinalIntervalMs(20000, 1.0, 5000); got != 20000 {
		t.Errorf("FinalIntervalMs above floor = %v, want 20000", got)
	}
}

// TestScenario_FirstStudyOfNewItem reproduces spec §8 scenario 1.
func TestScenario_FirstStudyOfNewItem(t *testing.T) {
	reviewTime := time.UnixMilli(4_000)
	record := domain.ReviewRecord{DwellMs: 4000, ReviewTime: reviewTime, Action: domain.SwipeNext}
	history := []domain.ReviewRecord{record}

	nPrime := UpdateVirtualCount(0, domain.SwipeNext)
	if nPrime != 1 {
		t.Fatalf("N' = %v, want 1", nPrime)
	}
	sPrime := Sensitivity(nPrime, 1)
	if !approxEqual(sPrime, 2, 1e-9) {
		t.Fatalf("S' = %v, want 2", sPrime)
	}
	base := BaseIntervalMs(10_000, sPrime, nPrime)
	if !approxEqual(base, 20_000, 1e-6) {
		t.Fatalf("t_base = %v, want 20000", base)
	}
	avg := AverageDwellMs(history)
	if avg != 4000 {
		t.Fatalf("avg = %v, want 4000", avg)
	}
	alpha := DwellFactor(record.DwellMs, avg)
	if alpha != 1.0 {
		t.Fatalf("alpha = %v, want 1.0", alpha)
	}
	final := FinalIntervalMs(base, alpha, 5000)
	if !approxEqual(final, 20_000, 1e-6) {
		t.Fatalf("t = %v, want 20000", final)
	}
	next := reviewTime.Add(time.Duration(final) * time.Millisecond)
	if next.UnixMilli() != 24_000 {
		t.Fatalf("next_review_time = %v, want 24000", next.UnixMilli())
	}
}

func TestAnomaly_FrequentAccidents(t *testing.T) {
	base := time.UnixMilli(0)
	history := []domain.ReviewRecord{
		{DwellMs: 50, ReviewTime: base},
		{DwellMs: 60, ReviewTime: base},
		{DwellMs: 5000, ReviewTime: base},
		{DwellMs: 70, ReviewTime: base},
	}
	if got := Anomaly(history, 200); got != domain.AnomalyFrequentAccidents {
		t.Errorf("Anomaly = %v, want FrequentAccidents", got)
	}
}

func TestAnomaly_HighVariance(t *testing.T) {
	base := time.UnixMilli(0)
	history := []domain.ReviewRecord{
		{DwellMs: 1000, ReviewTime: base},
		{DwellMs: 1000, ReviewTime: base},
		{DwellMs: 50000, ReviewTime: base},
	}
	if got := Anomaly(history, 200); got != domain.AnomalyHighVariance {
		t.Errorf("Anomaly = %v, want HighVariance", got)
	}
}

func TestAnomaly_None(t *testing.T) {
	base := time.UnixMilli(0)
	history := []domain.ReviewRecord{
		{DwellMs: 1000, ReviewTime: base},
		{DwellMs: 1100, ReviewTime: base},
		{DwellMs: 1050, ReviewTime: base},
	}
	if got := Anomaly(history, 200); got != domain.AnomalyNone {
		t.Errorf("Anomaly = %v, want None", got)
	}
}

func TestAverageDwellMs_EmptyHistory(t *testing.T) {
	if got := AverageDwellMs(nil); got != 0 {
		t.Errorf("AverageDwellMs(nil) = %v, want 0", got)
	}
}
