// Package anomaly scores reconciled units with two independent
// methods: a weighted composite forensics score per unit, and a
// z-score test over signed turnout diffs with IQR outlier bounds for
// distribution display. All functions are pure and can be called
// repeatedly over arbitrary unit subsets.
package anomaly

import (
	"sort"

	"electionpulse/internal/reconcile"
)

// Composite score weights. The four magnitude signals are normalized
// by their observed maximum before weighting, so the weights express
// relative importance, not absolute scale.
const (
	weightInvalid    = 0.30
	weightBlank      = 0.20
	weightTurnout    = 0.25
	weightReferendum = 0.15

	// Flat penalty applied when the unit's reporting completeness is
	// below 100 percent.
	completenessPenalty = 0.10
)

// AnomalyRecord is one unit's forensics fields plus its composite
// score. Score is always >= 0 and is exactly the completeness penalty
// contribution when all four magnitude signals are zero.
type AnomalyRecord struct {
	reconcile.ForensicsRecord

	TurnoutDiffPct float64 `json:"turnout_diff_percent"`
	ReferendumGap  float64 `json:"referendum_gap"`
	Penalized      bool    `json:"penalized"`
	Score          float64 `json:"score"`
}

// CompositeScores computes the weighted forensics score for every unit
// in the forensics map. Diff and referendum lookups fail open: a
// missing record contributes a zero signal. Results are sorted by
// score descending, ties by unit id.
func CompositeScores(
	forensics map[string]reconcile.ForensicsRecord,
	diffs map[string]reconcile.DiffRecord,
	referendum map[string]reconcile.ReferendumSummary,
) []AnomalyRecord {
	records := make([]AnomalyRecord, 0, len(forensics))

	var maxInvalid, maxBlank, maxTurnout, maxReferendum float64
	for unitID, f := range forensics {
		rec := AnomalyRecord{ForensicsRecord: f}
		if d, ok := diffs[unitID]; ok {
			rec.TurnoutDiffPct = d.DiffPercent
		}
		if r, ok := referendum[unitID]; ok {
			// Participation gap between the election's district ballot
			// and the referendum held in the same unit.
			rec.ReferendumGap = absFloat(float64(ballotsFor(diffs, unitID) - r.Ballots()))
		}

		maxInvalid = maxOf(maxInvalid, absFloat(float64(f.InvalidDiff)))
		maxBlank = maxOf(maxBlank, absFloat(float64(f.BlankDiff)))
		maxTurnout = maxOf(maxTurnout, absFloat(rec.TurnoutDiffPct))
		maxReferendum = maxOf(maxReferendum, rec.ReferendumGap)

		records = append(records, rec)
	}

	// A zero observed maximum means the signal is flat across all
	// units; dividing by 1 keeps its contribution at exactly zero.
	maxInvalid = orOne(maxInvalid)
	maxBlank = orOne(maxBlank)
	maxTurnout = orOne(maxTurnout)
	maxReferendum = orOne(maxReferendum)

	for i := range records {
		rec := &records[i]
		score := weightInvalid*absFloat(float64(rec.InvalidDiff))/maxInvalid +
			weightBlank*absFloat(float64(rec.BlankDiff))/maxBlank +
			weightTurnout*absFloat(rec.TurnoutDiffPct)/maxTurnout +
			weightReferendum*rec.ReferendumGap/maxReferendum
		if rec.PercentComplete < 100 {
			rec.Penalized = true
			score += completenessPenalty
		}
		rec.Score = score * 100
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].UnitID < records[j].UnitID
	})

	return records
}

func ballotsFor(diffs map[string]reconcile.DiffRecord, unitID string) int64 {
	if d, ok := diffs[unitID]; ok {
		return d.MPTurnout
	}
	return 0
}

func maxOf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
