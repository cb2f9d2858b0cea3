package stats

import (
	"sort"

	"electionpulse/internal/reconcile"
)

// GroupStats summarizes the turnout diffs of one group of units (a
// region, a province, or the whole country). Means are defined as
// sum/count, 0 when the group is empty.
type GroupStats struct {
	Units      int `json:"units"`
	Mismatched int `json:"mismatched"`

	SumAbsDiff    int64   `json:"sum_abs_diff"`
	SumAbsDiffPct float64 `json:"sum_abs_diff_percent"`
	AvgAbsDiff    float64 `json:"avg_abs_diff"`
	AvgAbsDiffPct float64 `json:"avg_abs_diff_percent"`

	MaxDiffPct float64 `json:"max_diff_percent"`
	MinDiffPct float64 `json:"min_diff_percent"`

	MaxAbsDiff       int64  `json:"max_abs_diff"`
	MaxAbsDiffUnitID string `json:"max_abs_diff_unit_id"`
	MinAbsDiff       int64  `json:"min_abs_diff"`
	MinAbsDiffUnitID string `json:"min_abs_diff_unit_id"`

	TotalMPTurnout int64 `json:"total_mp_turnout"`
	TotalPLTurnout int64 `json:"total_party_list_turnout"`
}

// Accumulator builds GroupStats in a single pass. Accumulators over
// disjoint unit sets can be merged, and the merge of two accumulators
// equals the accumulator over the union of their inputs.
type Accumulator struct {
	stats GroupStats
}

// Add folds one diff record into the accumulator. Extremum ties keep
// the record seen first.
func (a *Accumulator) Add(d reconcile.DiffRecord) {
	s := &a.stats

	abs := absInt64(d.DiffCount)
	if s.Units == 0 {
		s.MaxDiffPct, s.MinDiffPct = d.DiffPercent, d.DiffPercent
		s.MaxAbsDiff, s.MaxAbsDiffUnitID = abs, d.UnitID
		s.MinAbsDiff, s.MinAbsDiffUnitID = abs, d.UnitID
	} else {
		if d.DiffPercent > s.MaxDiffPct {
			s.MaxDiffPct = d.DiffPercent
		}
		if d.DiffPercent < s.MinDiffPct {
			s.MinDiffPct = d.DiffPercent
		}
		if abs > s.MaxAbsDiff {
			s.MaxAbsDiff, s.MaxAbsDiffUnitID = abs, d.UnitID
		}
		if abs < s.MinAbsDiff {
			s.MinAbsDiff, s.MinAbsDiffUnitID = abs, d.UnitID
		}
	}

	s.Units++
	if d.DiffCount != 0 {
		s.Mismatched++
	}
	s.SumAbsDiff += absInt64(d.DiffCount)
	s.SumAbsDiffPct += absFloat(d.DiffPercent)
	s.TotalMPTurnout += d.MPTurnout
	s.TotalPLTurnout += d.PLTurnout
}

// Merge folds another accumulator into this one. Extremum ties keep
// the receiver's unit.
func (a *Accumulator) Merge(other *Accumulator) {
	s, o := &a.stats, other.stats
	if o.Units == 0 {
		return
	}
	if s.Units == 0 {
		s.MaxDiffPct, s.MinDiffPct = o.MaxDiffPct, o.MinDiffPct
		s.MaxAbsDiff, s.MaxAbsDiffUnitID = o.MaxAbsDiff, o.MaxAbsDiffUnitID
		s.MinAbsDiff, s.MinAbsDiffUnitID = o.MinAbsDiff, o.MinAbsDiffUnitID
	} else {
		if o.MaxDiffPct > s.MaxDiffPct {
			s.MaxDiffPct = o.MaxDiffPct
		}
		if o.MinDiffPct < s.MinDiffPct {
			s.MinDiffPct = o.MinDiffPct
		}
		if o.MaxAbsDiff > s.MaxAbsDiff {
			s.MaxAbsDiff, s.MaxAbsDiffUnitID = o.MaxAbsDiff, o.MaxAbsDiffUnitID
		}
		if o.MinAbsDiff < s.MinAbsDiff {
			s.MinAbsDiff, s.MinAbsDiffUnitID = o.MinAbsDiff, o.MinAbsDiffUnitID
		}
	}

	s.Units += o.Units
	s.Mismatched += o.Mismatched
	s.SumAbsDiff += o.SumAbsDiff
	s.SumAbsDiffPct += o.SumAbsDiffPct
	s.TotalMPTurnout += o.TotalMPTurnout
	s.TotalPLTurnout += o.TotalPLTurnout
}

// Stats finalizes the accumulator into a GroupStats value.
func (a *Accumulator) Stats() GroupStats {
	s := a.stats
	if s.Units > 0 {
		s.AvgAbsDiff = float64(s.SumAbsDiff) / float64(s.Units)
		s.AvgAbsDiffPct = s.SumAbsDiffPct / float64(s.Units)
	}
	return s
}

// Group computes GroupStats over a diff map. Unit ids are visited in
// sorted order so extremum tie-breaks are deterministic.
func Group(diffs map[string]reconcile.DiffRecord) GroupStats {
	var acc Accumulator
	for _, id := range sortedUnitIDs(diffs) {
		acc.Add(diffs[id])
	}
	return acc.Stats()
}

// GroupBy partitions the diff map with keyFn and computes GroupStats
// per partition. Records mapped to an empty key are skipped.
func GroupBy(diffs map[string]reconcile.DiffRecord, keyFn func(unitID string) string) map[string]GroupStats {
	accs := make(map[string]*Accumulator)
	for _, id := range sortedUnitIDs(diffs) {
		key := keyFn(id)
		if key == "" {
			continue
		}
		acc, ok := accs[key]
		if !ok {
			acc = &Accumulator{}
			accs[key] = acc
		}
		acc.Add(diffs[id])
	}

	out := make(map[string]GroupStats, len(accs))
	for key, acc := range accs {
		out[key] = acc.Stats()
	}
	return out
}

func sortedUnitIDs(diffs map[string]reconcile.DiffRecord) []string {
	ids := make([]string, 0, len(diffs))
	for id := range diffs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
