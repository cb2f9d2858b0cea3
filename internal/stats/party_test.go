package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electionpulse/internal/reconcile"
)

func winner(unitID, partyID, partyName string) reconcile.WinnerRecord {
	return reconcile.WinnerRecord{UnitID: unitID, PartyID: partyID, PartyName: partyName}
}

func TestPartyStatsGroupsByWinningParty(t *testing.T) {
	diffs := map[string]reconcile.DiffRecord{
		"CHU-1": diff("CHU-1", 100, 90, 10, 9),   // +10
		"CHU-2": diff("CHU-2", 100, 110, 10, 11), // -10
		"OSH-1": diff("OSH-1", 100, 96, 10, 9.6), // +4
		"OSH-2": diff("OSH-2", 100, 100, 10, 10), // 0
	}
	winners := map[string]reconcile.WinnerRecord{
		"CHU-1": winner("CHU-1", "P-1", "Unity"),
		"CHU-2": winner("CHU-2", "P-1", "Unity"),
		"OSH-1": winner("OSH-1", "P-1", "Unity"),
		"OSH-2": winner("OSH-2", "P-2", "Progress"),
	}

	dists := PartyStats(diffs, winners)
	require.Len(t, dists, 2)

	unity := dists[0]
	assert.Equal(t, "P-1", unity.PartyID)
	assert.Equal(t, "Unity", unity.PartyName)
	assert.Equal(t, 3, unity.Units)
	assert.Equal(t, int64(24), unity.TotalAbsDiff)
	assert.InDelta(t, 4.0/3.0, unity.MeanDiff, 1e-12)
	assert.InDelta(t, 8.0, unity.MeanAbsDiff, 1e-12)
	assert.True(t, unity.HasDistribution)
	assert.Equal(t, 4.0, unity.Median)
	assert.Equal(t, -10.0, unity.Min)
	assert.Equal(t, 10.0, unity.Max)

	progress := dists[1]
	assert.Equal(t, "P-2", progress.PartyID)
	assert.Equal(t, 1, progress.Units)
	assert.False(t, progress.HasDistribution, "fewer than three won units")
	assert.Zero(t, progress.Median)
	assert.Zero(t, progress.StdDev)
}

func TestPartyStatsSkipsUnitsWithoutWinner(t *testing.T) {
	diffs := map[string]reconcile.DiffRecord{
		"CHU-1": diff("CHU-1", 100, 90, 0, 0),
		"CHU-2": diff("CHU-2", 100, 90, 0, 0),
	}
	winners := map[string]reconcile.WinnerRecord{
		"CHU-1": winner("CHU-1", "P-1", "Unity"),
	}

	dists := PartyStats(diffs, winners)
	require.Len(t, dists, 1)
	assert.Equal(t, 1, dists[0].Units)
}

func TestPartyStatsEmpty(t *testing.T) {
	assert.Empty(t, PartyStats(nil, nil))
}

func TestPartyStatsDeterministicOrder(t *testing.T) {
	diffs := map[string]reconcile.DiffRecord{
		"A-1": diff("A-1", 10, 10, 0, 0),
		"B-1": diff("B-1", 10, 10, 0, 0),
		"C-1": diff("C-1", 10, 10, 0, 0),
	}
	winners := map[string]reconcile.WinnerRecord{
		"A-1": winner("A-1", "P-3", "Three"),
		"B-1": winner("B-1", "P-1", "One"),
		"C-1": winner("C-1", "P-2", "Two"),
	}

	dists := PartyStats(diffs, winners)
	require.Len(t, dists, 3)
	assert.Equal(t, "P-1", dists[0].PartyID)
	assert.Equal(t, "P-2", dists[1].PartyID)
	assert.Equal(t, "P-3", dists[2].PartyID)
}
