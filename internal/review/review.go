// Package review composes the strength formulas into a single
// compute_update step: given an item, the record just produced, and the
// item's history (including that record), it returns the updated item.
package review

import (
	"time"

	"github.com/memoster/reviewcore/internal/domain"
	"github.com/memoster/reviewcore/internal/strength"
)

// Params carries the tunable constants compute_update needs, decoupled
// from the config package so this stays a pure, dependency-free calculator.
type Params struct {
	BaseIntervalMs int64
	MinIntervalMs  int64
}

// ComputeUpdate applies the §4.2 formulas to item given the just-completed
// record and the item's history (which must already include record — see
// AverageDwellMs's windowing). It returns a new Item value; other fields
// are carried unchanged.
func ComputeUpdate(item domain.Item, record domain.ReviewRecord, history []domain.ReviewRecord, p Params) domain.Item {
	nPrime := strength.UpdateVirtualCount(item.VirtualCount, record.Action)
	actualPrime := item.ActualCount + 1
	sPrime := strength.Sensitivity(nPrime, actualPrime)

	base := strength.BaseIntervalMs(p.BaseIntervalMs, sPrime, nPrime)
	avg := strength.AverageDwellMs(history)
	alpha := strength.DwellFactor(record.DwellMs, avg)
	interval := strength.FinalIntervalMs(base, alpha, p.MinIntervalMs)

	updated := item
	updated.VirtualCount = nPrime
	updated.ActualCount = actualPrime
	updated.Sensitivity = sPrime
	updated.NextReviewTime = record.ReviewTime.Add(time.Duration(interval) * time.Millisecond)
	return updated
}
