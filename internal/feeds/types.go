package feeds

import (
	"time"
)

// Source identifies one of the four upstream result feeds
type Source string

const (
	SourceTurnout    Source = "turnout"
	SourceReferendum Source = "referendum"
	SourceCandidates Source = "candidates"
	SourceParties    Source = "parties"
)

// TurnoutFeed is the constituency-level vote statistics feed, nested
// province -> unit.
type TurnoutFeed struct {
	Provinces map[string]TurnoutProvince `json:"provinces" validate:"required,dive"`
}

// TurnoutProvince holds one province's units keyed by unit id
type TurnoutProvince struct {
	Units map[string]TurnoutUnit `json:"units" validate:"required,dive"`
}

// TurnoutUnit carries everything the turnout feed reports for one unit:
// turnout on both ballots, invalid/blank/valid counts, ranked candidate
// results, the per-party breakdown, and reporting completeness.
type TurnoutUnit struct {
	UnitID string `json:"unit_id" validate:"required"`

	MPTurnout        int64   `json:"mp_turn_out" validate:"min=0"`
	MPPercent        float64 `json:"mp_percent_turn_out" validate:"min=0,max=100"`
	PartyListTurnout int64   `json:"party_list_turn_out" validate:"min=0"`
	PartyListPercent float64 `json:"party_list_percent_turn_out" validate:"min=0,max=100"`

	MPInvalid int64 `json:"mp_invalid_votes" validate:"min=0"`
	MPBlank   int64 `json:"mp_blank_votes" validate:"min=0"`
	MPValid   int64 `json:"mp_valid_votes" validate:"min=0"`
	PLInvalid int64 `json:"pl_invalid_votes" validate:"min=0"`
	PLBlank   int64 `json:"pl_blank_votes" validate:"min=0"`
	PLValid   int64 `json:"pl_valid_votes" validate:"min=0"`

	Candidates []CandidateResult `json:"candidates" validate:"dive"`
	Parties    []PartyResult     `json:"parties" validate:"dive"`

	StationsCounted int  `json:"stations_counted" validate:"min=0"`
	StationsTotal   int  `json:"stations_total" validate:"min=0"`
	ReportingPaused bool `json:"reporting_paused"`
}

// CandidateResult is one ranked candidate line in a unit's result set
type CandidateResult struct {
	CandidateID string  `json:"candidate_id" validate:"required"`
	PartyID     string  `json:"party_id"`
	Rank        int     `json:"rank" validate:"min=1"`
	Votes       int64   `json:"votes" validate:"min=0"`
	Percent     float64 `json:"percent" validate:"min=0,max=100"`
}

// PartyResult is one party's party-list result within a unit
type PartyResult struct {
	PartyID string  `json:"party_id" validate:"required"`
	Votes   int64   `json:"votes" validate:"min=0"`
	Percent float64 `json:"percent" validate:"min=0,max=100"`
}

// ReferendumFeed is the referendum statistics feed, nested
// province -> unit -> question key.
type ReferendumFeed struct {
	Provinces map[string]ReferendumProvince `json:"provinces" validate:"required,dive"`
}

// ReferendumProvince holds one province's units keyed by unit id
type ReferendumProvince struct {
	Units map[string]ReferendumUnit `json:"units" validate:"required,dive"`
}

// ReferendumUnit maps question keys to that question's result block
type ReferendumUnit struct {
	Questions map[string]QuestionResult `json:"questions" validate:"required,dive"`
}

// QuestionResult is the yes/no/abstain breakdown for one question
type QuestionResult struct {
	Yes              int64   `json:"yes" validate:"min=0"`
	No               int64   `json:"no" validate:"min=0"`
	Abstained        int64   `json:"abstained" validate:"min=0"`
	PercentYes       float64 `json:"percent_yes" validate:"min=0,max=100"`
	PercentNo        float64 `json:"percent_no" validate:"min=0,max=100"`
	PercentAbstained float64 `json:"percent_abstained" validate:"min=0,max=100"`
}

// CandidateInfo is one row of the candidate directory
type CandidateInfo struct {
	CandidateID string `json:"candidate_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
}

// PartyInfo is one row of the party directory
type PartyInfo struct {
	PartyID string `json:"party_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Color   string `json:"color"`
}

// Snapshot is one immutable capture of all four sources. Each pipeline
// run consumes exactly one snapshot; nothing is ever patched in place.
type Snapshot struct {
	Turnout    TurnoutFeed     `json:"turnout"`
	Referendum ReferendumFeed  `json:"referendum"`
	Candidates []CandidateInfo `json:"candidates"`
	Parties    []PartyInfo     `json:"parties"`
	FetchedAt  time.Time       `json:"fetched_at"`
}

// SourceStatus reports the per-source outcome of a fetch round. The
// pipeline contract stays all-or-nothing, but callers get to see which
// source broke instead of a single opaque failure.
type SourceStatus struct {
	Source    Source    `json:"source"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	FromCache bool      `json:"from_cache"`
}
