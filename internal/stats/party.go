package stats

import (
	"sort"

	"electionpulse/internal/reconcile"
)

// minDistributionUnits is the smallest group of won units for which
// the distribution block (median, stddev, quartiles, extrema) is
// reported. Smaller groups keep their summary row but carry no
// distribution.
const minDistributionUnits = 3

// PartyDistribution summarizes the turnout diffs of the units one
// party won. HasDistribution is false for parties with fewer than
// three won units; their distribution fields are zero.
type PartyDistribution struct {
	PartyID   string `json:"party_id"`
	PartyName string `json:"party_name"`
	Units     int    `json:"units"`

	TotalAbsDiff int64   `json:"total_abs_diff"`
	MeanDiff     float64 `json:"mean_diff"`
	MeanAbsDiff  float64 `json:"mean_abs_diff"`
	MeanDiffPct  float64 `json:"mean_diff_percent"`

	HasDistribution bool    `json:"has_distribution"`
	Median          float64 `json:"median"`
	StdDev          float64 `json:"std_dev"`
	Q1              float64 `json:"q1"`
	Q3              float64 `json:"q3"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
}

// PartyStats groups the diff records by each unit's winning party and
// summarizes the signed diff distribution per party. Units without a
// winner record are skipped. Results are sorted by party id.
func PartyStats(diffs map[string]reconcile.DiffRecord, winners map[string]reconcile.WinnerRecord) []PartyDistribution {
	type partyGroup struct {
		name      string
		diffs     []float64
		diffPcts  []float64
		absTotal  int64
		signedSum float64
	}

	groups := make(map[string]*partyGroup)
	for _, id := range sortedUnitIDs(diffs) {
		winner, ok := winners[id]
		if !ok {
			continue
		}
		g, ok := groups[winner.PartyID]
		if !ok {
			g = &partyGroup{name: winner.PartyName}
			groups[winner.PartyID] = g
		}
		d := diffs[id]
		g.diffs = append(g.diffs, float64(d.DiffCount))
		g.diffPcts = append(g.diffPcts, d.DiffPercent)
		g.absTotal += absInt64(d.DiffCount)
		g.signedSum += float64(d.DiffCount)
	}

	partyIDs := make([]string, 0, len(groups))
	for id := range groups {
		partyIDs = append(partyIDs, id)
	}
	sort.Strings(partyIDs)

	out := make([]PartyDistribution, 0, len(groups))
	for _, partyID := range partyIDs {
		g := groups[partyID]
		n := len(g.diffs)

		dist := PartyDistribution{
			PartyID:      partyID,
			PartyName:    g.name,
			Units:        n,
			TotalAbsDiff: g.absTotal,
			MeanDiff:     g.signedSum / float64(n),
			MeanAbsDiff:  float64(g.absTotal) / float64(n),
			MeanDiffPct:  Mean(g.diffPcts),
		}

		if n >= minDistributionUnits {
			dist.HasDistribution = true
			dist.Median = Median(g.diffs)
			dist.StdDev = PopStdDev(g.diffs)
			dist.Q1 = Quantile(g.diffs, 0.25)
			dist.Q3 = Quantile(g.diffs, 0.75)
			dist.Min = Quantile(g.diffs, 0)
			dist.Max = Quantile(g.diffs, 1)
		}

		out = append(out, dist)
	}
	return out
}
