package anomaly

import (
	"sort"

	"electionpulse/internal/reconcile"
	"electionpulse/internal/stats"
)

// zThreshold is the number of global standard deviations beyond which
// a unit's signed diff is flagged anomalous.
const zThreshold = 2.0

// ZFlag is one unit's standing against the global diff distribution.
type ZFlag struct {
	UnitID    string  `json:"unit_id"`
	DiffCount int64   `json:"diff_count"`
	Z         float64 `json:"z"`
	Anomalous bool    `json:"anomalous"`
}

// ZScoreReport is the outcome of the global z-score test: the global
// baseline plus one flag per unit, sorted by unit id.
type ZScoreReport struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Flags  []ZFlag `json:"flags"`
}

// PartyZGroup is one winning party's units flagged against the global
// baseline. The baseline is deliberately NOT per-party: the test asks
// whether a unit is extreme relative to the whole election.
type PartyZGroup struct {
	PartyID   string  `json:"party_id"`
	PartyName string  `json:"party_name"`
	Flags     []ZFlag `json:"flags"`
}

// GlobalZScores computes the global mean and population standard
// deviation of signed diff counts and flags every unit with |z| above
// the threshold. A zero standard deviation flags nothing.
func GlobalZScores(diffs map[string]reconcile.DiffRecord) ZScoreReport {
	ids := make([]string, 0, len(diffs))
	values := make([]float64, 0, len(diffs))
	for id := range diffs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		values = append(values, float64(diffs[id].DiffCount))
	}

	report := ZScoreReport{
		Mean:   stats.Mean(values),
		StdDev: stats.PopStdDev(values),
		Flags:  make([]ZFlag, 0, len(ids)),
	}

	for i, id := range ids {
		flag := ZFlag{UnitID: id, DiffCount: diffs[id].DiffCount}
		if report.StdDev > 0 {
			flag.Z = (values[i] - report.Mean) / report.StdDev
			flag.Anomalous = absFloat(flag.Z) > zThreshold
		}
		report.Flags = append(report.Flags, flag)
	}

	return report
}

// PartyZScores groups the global z-score flags by each unit's winning
// party. Units without a winner record are skipped. Groups are sorted
// by party id, flags within a group by unit id.
func PartyZScores(diffs map[string]reconcile.DiffRecord, winners map[string]reconcile.WinnerRecord) []PartyZGroup {
	report := GlobalZScores(diffs)

	byParty := make(map[string]*PartyZGroup)
	for _, flag := range report.Flags {
		winner, ok := winners[flag.UnitID]
		if !ok {
			continue
		}
		group, ok := byParty[winner.PartyID]
		if !ok {
			group = &PartyZGroup{PartyID: winner.PartyID, PartyName: winner.PartyName}
			byParty[winner.PartyID] = group
		}
		group.Flags = append(group.Flags, flag)
	}

	partyIDs := make([]string, 0, len(byParty))
	for id := range byParty {
		partyIDs = append(partyIDs, id)
	}
	sort.Strings(partyIDs)

	groups := make([]PartyZGroup, 0, len(byParty))
	for _, id := range partyIDs {
		groups = append(groups, *byParty[id])
	}
	return groups
}
