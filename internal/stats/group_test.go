package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electionpulse/internal/reconcile"
)

func diff(unitID string, mp, pl int64, mpPct, plPct float64) reconcile.DiffRecord {
	return reconcile.DiffRecord{
		UnitID:      unitID,
		MPTurnout:   mp,
		MPPercent:   mpPct,
		PLTurnout:   pl,
		PLPercent:   plPct,
		DiffCount:   mp - pl,
		DiffPercent: mpPct - plPct,
	}
}

func TestGroupSinglePass(t *testing.T) {
	diffs := map[string]reconcile.DiffRecord{
		"CHU-1": diff("CHU-1", 1000, 990, 50, 49.5), // +10
		"CHU-2": diff("CHU-2", 800, 810, 40, 40.5),  // -10
		"OSH-1": diff("OSH-1", 600, 600, 30, 30),    // 0
	}

	s := Group(diffs)

	assert.Equal(t, 3, s.Units)
	assert.Equal(t, 2, s.Mismatched)
	assert.Equal(t, int64(20), s.SumAbsDiff)
	assert.InDelta(t, 1.0, s.SumAbsDiffPct, 1e-12)
	assert.InDelta(t, 20.0/3.0, s.AvgAbsDiff, 1e-12)
	assert.InDelta(t, 0.5, s.MaxDiffPct, 1e-12)
	assert.InDelta(t, -0.5, s.MinDiffPct, 1e-12)
	assert.Equal(t, int64(10), s.MaxAbsDiff)
	assert.Equal(t, "CHU-1", s.MaxAbsDiffUnitID)
	assert.Equal(t, int64(0), s.MinAbsDiff)
	assert.Equal(t, "OSH-1", s.MinAbsDiffUnitID)
	assert.Equal(t, int64(2400), s.TotalMPTurnout)
	assert.Equal(t, int64(2400), s.TotalPLTurnout)
}

func TestGroupEmpty(t *testing.T) {
	s := Group(nil)
	assert.Zero(t, s.Units)
	assert.Zero(t, s.AvgAbsDiff)
	assert.Zero(t, s.AvgAbsDiffPct)
	assert.Empty(t, s.MaxAbsDiffUnitID)
	assert.Empty(t, s.MinAbsDiffUnitID)
}

func TestExtremumTiesKeepFirstSeen(t *testing.T) {
	var acc Accumulator
	acc.Add(diff("CHU-1", 100, 95, 0, 0)) // +5
	acc.Add(diff("CHU-2", 100, 95, 0, 0)) // +5 again

	s := acc.Stats()
	assert.Equal(t, "CHU-1", s.MaxAbsDiffUnitID)
	assert.Equal(t, "CHU-1", s.MinAbsDiffUnitID)
}

// Merging accumulators over disjoint partitions must equal one
// accumulator over the union.
func TestAccumulatorAdditivity(t *testing.T) {
	diffs := map[string]reconcile.DiffRecord{
		"CHU-1": diff("CHU-1", 1000, 985, 51, 50.2),
		"CHU-2": diff("CHU-2", 900, 920, 45, 46),
		"OSH-1": diff("OSH-1", 700, 700, 35, 35),
		"OSH-2": diff("OSH-2", 650, 640, 33, 32.5),
		"TAL-1": diff("TAL-1", 400, 430, 20, 21.5),
	}

	var whole Accumulator
	for _, id := range sortedUnitIDs(diffs) {
		whole.Add(diffs[id])
	}

	var north, south Accumulator
	for _, id := range sortedUnitIDs(diffs) {
		if strings.HasPrefix(id, "CHU") || strings.HasPrefix(id, "TAL") {
			north.Add(diffs[id])
		} else {
			south.Add(diffs[id])
		}
	}
	north.Merge(&south)

	assert.Equal(t, whole.Stats(), north.Stats())
}

func TestMergeWithEmptySides(t *testing.T) {
	var empty, filled Accumulator
	filled.Add(diff("CHU-1", 100, 90, 10, 9))

	merged := filled
	merged.Merge(&empty)
	assert.Equal(t, filled.Stats(), merged.Stats())

	var target Accumulator
	target.Merge(&filled)
	assert.Equal(t, filled.Stats(), target.Stats())
}

func TestGroupByPartitions(t *testing.T) {
	diffs := map[string]reconcile.DiffRecord{
		"CHU-1": diff("CHU-1", 1000, 990, 0, 0),
		"OSH-1": diff("OSH-1", 600, 605, 0, 0),
		"OSH-2": diff("OSH-2", 500, 500, 0, 0),
		"XXX-1": diff("XXX-1", 100, 100, 0, 0),
	}

	byProvince := GroupBy(diffs, func(unitID string) string {
		code := strings.SplitN(unitID, "-", 2)[0]
		if code == "XXX" {
			return "" // unresolvable units drop out
		}
		return code
	})

	require.Len(t, byProvince, 2)
	assert.Equal(t, 1, byProvince["CHU"].Units)
	assert.Equal(t, 2, byProvince["OSH"].Units)
	assert.Equal(t, int64(5), byProvince["OSH"].SumAbsDiff)
}
