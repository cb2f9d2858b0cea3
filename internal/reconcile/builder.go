package reconcile

import (
	"log/slog"
	"sort"
	"strings"

	"electionpulse/internal/feeds"
	"electionpulse/pkg/contracts/domain"
)

// maxTopParties bounds the party-list summary per unit
const maxTopParties = 3

// Builder joins raw feed records into the five resolved
// per-constituency maps. All joins share the fail-open policy: a
// missing sub-lookup entry yields a sentinel value rather than an
// error.
type Builder struct {
	summarySuffix string
	logger        *slog.Logger
}

// NewBuilder creates a builder. Unit ids ending in summarySuffix are
// province-level aggregate rows in the turnout feed and are skipped by
// every join.
func NewBuilder(summarySuffix string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		summarySuffix: summarySuffix,
		logger:        logger.With("component", "lookup_builder"),
	}
}

// BuildBundle produces all five lookups from one snapshot. The registry
// parameter is the resolved unit population from the geo matcher, used
// for the forensics secondary join to registered-voter counts.
func (b *Builder) BuildBundle(snapshot *feeds.Snapshot, registry map[string]domain.ResolvedUnit) *Bundle {
	if snapshot == nil {
		return EmptyBundle()
	}

	candidates := candidateIndex(snapshot.Candidates)
	parties := partyIndex(snapshot.Parties)

	bundle := EmptyBundle()
	b.forEachUnit(snapshot, func(unitID string, unit feeds.TurnoutUnit) {
		if w, ok := b.buildWinner(unitID, unit, candidates, parties); ok {
			bundle.Winners[unitID] = w
		}
		bundle.PartyList[unitID] = b.buildPartyList(unitID, unit, parties)
		bundle.Diffs[unitID] = buildDiff(unitID, unit)
		bundle.Forensics[unitID] = buildForensics(unitID, unit, registry)
	})

	b.buildReferendum(snapshot, bundle)

	b.logger.Info("lookup bundle built",
		"winners", len(bundle.Winners),
		"party_list", len(bundle.PartyList),
		"referendum", len(bundle.Referendum),
		"diffs", len(bundle.Diffs),
		"forensics", len(bundle.Forensics),
	)

	return bundle
}

// candidateIndex keys the candidate directory by candidate id. A
// duplicated id keeps the last row, matching the upstream directory's
// own dedup behavior.
func candidateIndex(rows []feeds.CandidateInfo) map[string]feeds.CandidateInfo {
	index := make(map[string]feeds.CandidateInfo, len(rows))
	for _, row := range rows {
		index[row.CandidateID] = row
	}
	return index
}

// partyIndex keys the party directory by party id.
func partyIndex(rows []feeds.PartyInfo) map[string]feeds.PartyInfo {
	index := make(map[string]feeds.PartyInfo, len(rows))
	for _, row := range rows {
		index[row.PartyID] = row
	}
	return index
}

// forEachUnit iterates the turnout feed's units, skipping
// province-level summary rows.
func (b *Builder) forEachUnit(snapshot *feeds.Snapshot, fn func(string, feeds.TurnoutUnit)) {
	for _, province := range snapshot.Turnout.Provinces {
		for unitID, unit := range province.Units {
			if strings.HasSuffix(unitID, b.summarySuffix) {
				continue
			}
			fn(unitID, unit)
		}
	}
}

// buildWinner resolves the rank-1 candidate of a unit. Units without
// candidate data produce no winner record at all.
func (b *Builder) buildWinner(unitID string, unit feeds.TurnoutUnit,
	candidates map[string]feeds.CandidateInfo, parties map[string]feeds.PartyInfo) (WinnerRecord, bool) {

	top, ok := topCandidate(unit.Candidates)
	if !ok {
		return WinnerRecord{}, false
	}

	record := WinnerRecord{
		UnitID:      unitID,
		CandidateID: top.CandidateID,
		PartyID:     top.PartyID,
		Votes:       top.Votes,
		Percent:     top.Percent,
		AreaTurnout: unit.MPPercent,

		CandidateName: UnknownName,
		PartyName:     UnknownName,
		PartyColor:    NeutralColor,
	}

	if c, ok := candidates[top.CandidateID]; ok {
		record.CandidateName = c.Name
	}
	if p, ok := parties[top.PartyID]; ok {
		record.PartyName = p.Name
		if p.Color != "" {
			record.PartyColor = p.Color
		}
	}

	// The winning party's own party-list showing in the same unit.
	for _, pr := range unit.Parties {
		if pr.PartyID == top.PartyID {
			record.PartyListPercent = pr.Percent
			break
		}
	}

	return record, true
}

// topCandidate returns the best-ranked candidate (rank 1 in a
// well-formed feed; the minimum rank otherwise).
func topCandidate(results []feeds.CandidateResult) (feeds.CandidateResult, bool) {
	if len(results) == 0 {
		return feeds.CandidateResult{}, false
	}
	top := results[0]
	for _, r := range results[1:] {
		if r.Rank < top.Rank {
			top = r
		}
	}
	return top, true
}

// buildPartyList keeps the top three parties by party-list votes,
// excluding zero-vote entries. Ties break by party id so the summary
// is deterministic.
func (b *Builder) buildPartyList(unitID string, unit feeds.TurnoutUnit,
	parties map[string]feeds.PartyInfo) PartyListSummary {

	sorted := make([]feeds.PartyResult, len(unit.Parties))
	copy(sorted, unit.Parties)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Votes != sorted[j].Votes {
			return sorted[i].Votes > sorted[j].Votes
		}
		return sorted[i].PartyID < sorted[j].PartyID
	})

	summary := PartyListSummary{
		UnitID:  unitID,
		Turnout: unit.PartyListTurnout,
		Percent: unit.PartyListPercent,
	}

	for _, pr := range sorted {
		if pr.Votes == 0 || len(summary.TopParties) == maxTopParties {
			break
		}
		top := TopParty{
			PartyID: pr.PartyID,
			Name:    UnknownName,
			Color:   NeutralColor,
			Votes:   pr.Votes,
			Percent: pr.Percent,
		}
		if p, ok := parties[pr.PartyID]; ok {
			top.Name = p.Name
			if p.Color != "" {
				top.Color = p.Color
			}
		}
		summary.TopParties = append(summary.TopParties, top)
	}

	return summary
}

// buildReferendum retains the first referendum question per unit.
// Question keys are sorted so "first" does not depend on map iteration
// order.
func (b *Builder) buildReferendum(snapshot *feeds.Snapshot, bundle *Bundle) {
	for _, province := range snapshot.Referendum.Provinces {
		for unitID, unit := range province.Units {
			if strings.HasSuffix(unitID, b.summarySuffix) {
				continue
			}
			if len(unit.Questions) == 0 {
				continue
			}

			keys := make([]string, 0, len(unit.Questions))
			for k := range unit.Questions {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			first := unit.Questions[keys[0]]
			bundle.Referendum[unitID] = ReferendumSummary{
				UnitID:           unitID,
				QuestionKey:      keys[0],
				Yes:              first.Yes,
				No:               first.No,
				Abstained:        first.Abstained,
				PercentYes:       first.PercentYes,
				PercentNo:        first.PercentNo,
				PercentAbstained: first.PercentAbstained,
			}
		}
	}
}

// buildDiff computes the signed turnout differences. Always computed,
// even when both differences are zero.
func buildDiff(unitID string, unit feeds.TurnoutUnit) DiffRecord {
	return DiffRecord{
		UnitID:      unitID,
		MPTurnout:   unit.MPTurnout,
		MPPercent:   unit.MPPercent,
		PLTurnout:   unit.PartyListTurnout,
		PLPercent:   unit.PartyListPercent,
		DiffCount:   unit.MPTurnout - unit.PartyListTurnout,
		DiffPercent: unit.MPPercent - unit.PartyListPercent,
	}
}

// buildForensics computes the invalid/blank/valid analysis with safe
// percentages, plus reporting completeness and the secondary join to
// the registry for registered-voter turnout.
func buildForensics(unitID string, unit feeds.TurnoutUnit, registry map[string]domain.ResolvedUnit) ForensicsRecord {
	rec := ForensicsRecord{
		UnitID: unitID,

		MPInvalid: unit.MPInvalid,
		MPBlank:   unit.MPBlank,
		MPValid:   unit.MPValid,
		PLInvalid: unit.PLInvalid,
		PLBlank:   unit.PLBlank,
		PLValid:   unit.PLValid,

		MPInvalidP: SafePercent(unit.MPInvalid, unit.MPTurnout),
		MPBlankP:   SafePercent(unit.MPBlank, unit.MPTurnout),
		MPValidP:   SafePercent(unit.MPValid, unit.MPTurnout),
		PLInvalidP: SafePercent(unit.PLInvalid, unit.PartyListTurnout),
		PLBlankP:   SafePercent(unit.PLBlank, unit.PartyListTurnout),
		PLValidP:   SafePercent(unit.PLValid, unit.PartyListTurnout),

		InvalidDiff: unit.MPInvalid - unit.PLInvalid,
		BlankDiff:   unit.MPBlank - unit.PLBlank,
		ValidDiff:   unit.MPValid - unit.PLValid,

		StationsCounted: unit.StationsCounted,
		StationsTotal:   unit.StationsTotal,
		PercentComplete: SafePercent(int64(unit.StationsCounted), int64(unit.StationsTotal)),
		ReportingPaused: unit.ReportingPaused,
	}

	rec.InvalidDiffP = rec.MPInvalidP - rec.PLInvalidP
	rec.BlankDiffP = rec.MPBlankP - rec.PLBlankP
	rec.ValidDiffP = rec.MPValidP - rec.PLValidP

	if resolved, ok := registry[unitID]; ok && resolved.RegisteredVoters != nil {
		rec.RegisteredVoters = *resolved.RegisteredVoters
		rec.TurnoutOfRegisteredPct = SafePercent(unit.MPTurnout, rec.RegisteredVoters)
	}

	return rec
}

// SafePercent computes value/total*100, returning 0 when total is 0.
// Every percentage in the pipeline goes through this helper so a
// zero-turnout unit can never produce NaN.
func SafePercent(value, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(value) / float64(total) * 100
}
