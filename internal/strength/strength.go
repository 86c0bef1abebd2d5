// Package strength implements the pure spaced-repetition formulas: virtual
// review count update, sensitivity, base interval, dwell factor, and the
// resulting final interval. Every function here is a closed-form
// computation — no I/O, no clock, no error return, per spec §7
// ("calculator functions never fail").
package strength

import (
	"math"

	"github.com/memoster/reviewcore/internal/domain"
)

// UpdateVirtualCount computes N' = f(N, action), floored at zero.
func UpdateVirtualCount(n float64, action domain.Action) float64 {
	var next float64
	switch action {
	case domain.SwipeNext:
		next = n + 1
	case domain.ShowMeaning:
		next = n + 0.5
	case domain.MarkDifficult:
		if n > 2 {
			next = n - 2
		} else {
			next = 0
		}
	default:
		next = n
	}
	if next < 0 {
		next = 0
	}
	return next
}

// Sensitivity computes S' = clamp(tanh(N'/n' - 1) + 2, 1, 3). A zero actual
// count (the pre-first-review placeholder) yields 1.0.
func Sensitivity(virtualCount float64, actualCount int) float64 {
	if actualCount == 0 {
		return 1.0
	}
	ratio := virtualCount/float64(actualCount) - 1
	s := math.Tanh(ratio) + 2
	return clamp(s, 1, 3)
}

// BaseIntervalMs computes t_base = baseMs · (S')^(N') in double precision.
func BaseIntervalMs(baseMs int64, sensitivity, virtualCount float64) float64 {
	return float64(baseMs) * math.Pow(sensitivity, virtualCount)
}

// DwellFactor computes α = dwell/avg when avg > 0, else 1.0.
func DwellFactor(dwellMs int64, avgDwellMs float64) float64 {
	if avgDwellMs > 0 {
		return float64(dwellMs) / avgDwellMs
	}
	return 1.0
}

// FinalIntervalMs computes t = max(t_base/α, minMs).
func FinalIntervalMs(baseIntervalMs, alpha float64, minMs int64) float64 {
	t := baseIntervalMs / alpha
	if t < float64(minMs) {
		return float64(minMs)
	}
	return t
}

// AverageDwellMs is the mean dwell over the most recent min(3, len(history))
// records, oldest-excluded — i.e. the last up-to-3 entries of history in
// chronological order. Returns 0 when history is empty (per spec's open
// question: α then defaults to 1.0 via DwellFactor).
func AverageDwellMs(history []domain.ReviewRecord) float64 {
	n := len(history)
	if n == 0 {
		return 0
	}
	window := 3
	if n < window {
		window = n
	}
	recent := history[n-window:]
	var sum int64
	for _, r := range recent {
		sum += r.DwellMs
	}
	return float64(sum) / float64(window)
}

// Anomaly flags unusual dwell patterns over the last min(5, len(history))
// records.
func Anomaly(history []domain.ReviewRecord, accidentalThresholdMs int64) domain.Anomaly {
	n := len(history)
	if n == 0 {
		return domain.AnomalyNone
	}
	window := 5
	if n < window {
		window = n
	}
	recent := history[n-window:]

	accidents := 0
	var sum int64
	for _, r := range recent {
		if r.IsAccidental(accidentalThresholdMs) {
			accidents++
		}
		sum += r.DwellMs
	}
	if accidents >= 3 {
		return domain.AnomalyFrequentAccidents
	}

	mean := float64(sum) / float64(len(recent))
	var variance float64
	for _, r := range recent {
		d := float64(r.DwellMs) - mean
		variance += d * d
	}
	variance /= float64(len(recent))
	stddev := math.Sqrt(variance)
	if mean > 0 && stddev > 0.5*mean {
		return domain.AnomalyHighVariance
	}
	return domain.AnomalyNone
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
