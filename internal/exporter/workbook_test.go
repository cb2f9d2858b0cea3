package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electionpulse/internal/anomaly"
	"electionpulse/internal/reconcile"
	"electionpulse/internal/stats"
)

func TestBuildAnomalyWorkbook(t *testing.T) {
	records := []anomaly.AnomalyRecord{
		{
			ForensicsRecord: reconcile.ForensicsRecord{UnitID: "CHU-1", InvalidDiff: 5, PercentComplete: 95},
			Score:           42.5,
			Penalized:       true,
		},
		{
			ForensicsRecord: reconcile.ForensicsRecord{UnitID: "OSH-1", PercentComplete: 100},
			Score:           0,
		},
	}
	parties := []stats.PartyDistribution{
		{
			PartyID: "P-1", PartyName: "Unity", Units: 4, TotalAbsDiff: 24,
			MeanDiff: 1.5, MeanAbsDiff: 6, HasDistribution: true,
			Median: 4, StdDev: 7.1, Q1: -2, Q3: 8, Min: -10, Max: 10,
		},
		{PartyID: "P-2", PartyName: "Progress", Units: 1, TotalAbsDiff: 3, MeanDiff: 3, MeanAbsDiff: 3},
	}

	f, err := BuildAnomalyWorkbook(records, parties)
	require.NoError(t, err)
	defer f.Close()

	scores, err := f.GetRows("Anomaly Scores")
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "Unit", scores[0][0])
	assert.Equal(t, "CHU-1", scores[1][0])
	assert.Equal(t, "42.5", scores[1][1])

	partyRows, err := f.GetRows("Party Distributions")
	require.NoError(t, err)
	require.Len(t, partyRows, 3)
	assert.Equal(t, "Unity", partyRows[1][1])
	// Party below the distribution threshold has no distribution cells
	assert.LessOrEqual(t, len(partyRows[2]), 6)
}

func TestBuildAnomalyWorkbookEmpty(t *testing.T) {
	f, err := BuildAnomalyWorkbook(nil, nil)
	require.NoError(t, err)
	defer f.Close()

	scores, err := f.GetRows("Anomaly Scores")
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}
