package reconcile

// Sentinel values substituted when a cross-reference (party id,
// candidate id, registry entry) is missing during a join. Joins fail
// open: a broken reference degrades the label, never the pipeline.
const (
	UnknownName  = "Unknown"
	NeutralColor = "#999999"
)

// WinnerRecord describes the rank-1 candidate of a unit. Absent when
// the unit has no ranked candidate data.
type WinnerRecord struct {
	UnitID        string  `json:"unit_id"`
	CandidateID   string  `json:"candidate_id"`
	CandidateName string  `json:"candidate_name"`
	PartyID       string  `json:"party_id"`
	PartyName     string  `json:"party_name"`
	PartyColor    string  `json:"party_color"`
	Votes         int64   `json:"votes"`
	Percent       float64 `json:"percent"`
	AreaTurnout   float64 `json:"area_turnout"`

	// The winning party's own party-list vote percent in the same
	// unit, for split-ticket analysis.
	PartyListPercent float64 `json:"party_list_percent"`
}

// TopParty is one of the up-to-three leading parties in a unit's
// party-list summary.
type TopParty struct {
	PartyID string  `json:"party_id"`
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Votes   int64   `json:"votes"`
	Percent float64 `json:"percent"`
}

// PartyListSummary is a unit's party-list ballot summary: ballot
// turnout plus the top parties by vote count, zero-vote entries
// excluded.
type PartyListSummary struct {
	UnitID     string     `json:"unit_id"`
	Turnout    int64      `json:"turnout"`
	Percent    float64    `json:"percent"`
	TopParties []TopParty `json:"top_parties"`
}

// ReferendumSummary is the result block of a unit's first referendum
// question (question keys are sorted; only the first is retained).
type ReferendumSummary struct {
	UnitID           string  `json:"unit_id"`
	QuestionKey      string  `json:"question_key"`
	Yes              int64   `json:"yes"`
	No               int64   `json:"no"`
	Abstained        int64   `json:"abstained"`
	PercentYes       float64 `json:"percent_yes"`
	PercentNo        float64 `json:"percent_no"`
	PercentAbstained float64 `json:"percent_abstained"`
}

// Ballots returns the total ballots cast on the question.
func (r ReferendumSummary) Ballots() int64 {
	return r.Yes + r.No + r.Abstained
}

// DiffRecord is the primary forensic signal: the signed difference
// between MP-ballot and party-list-ballot participation in the same
// unit. Positive means more participation on the district ballot.
type DiffRecord struct {
	UnitID      string  `json:"unit_id"`
	MPTurnout   int64   `json:"mp_turn_out"`
	MPPercent   float64 `json:"mp_percent_turn_out"`
	PLTurnout   int64   `json:"party_list_turn_out"`
	PLPercent   float64 `json:"party_list_percent_turn_out"`
	DiffCount   int64   `json:"diff_count"`
	DiffPercent float64 `json:"diff_percent"`
}

// ForensicsRecord carries the invalid/blank/valid analysis for both
// ballots plus reporting completeness. All percent fields use safe
// division: 0 when the corresponding total is 0, never NaN.
type ForensicsRecord struct {
	UnitID string `json:"unit_id"`

	MPInvalid  int64   `json:"mp_invalid"`
	MPBlank    int64   `json:"mp_blank"`
	MPValid    int64   `json:"mp_valid"`
	MPInvalidP float64 `json:"mp_invalid_percent"`
	MPBlankP   float64 `json:"mp_blank_percent"`
	MPValidP   float64 `json:"mp_valid_percent"`

	PLInvalid  int64   `json:"pl_invalid"`
	PLBlank    int64   `json:"pl_blank"`
	PLValid    int64   `json:"pl_valid"`
	PLInvalidP float64 `json:"pl_invalid_percent"`
	PLBlankP   float64 `json:"pl_blank_percent"`
	PLValidP   float64 `json:"pl_valid_percent"`

	InvalidDiff  int64   `json:"invalid_diff"`
	BlankDiff    int64   `json:"blank_diff"`
	ValidDiff    int64   `json:"valid_diff"`
	InvalidDiffP float64 `json:"invalid_diff_percent"`
	BlankDiffP   float64 `json:"blank_diff_percent"`
	ValidDiffP   float64 `json:"valid_diff_percent"`

	StationsCounted int     `json:"stations_counted"`
	StationsTotal   int     `json:"stations_total"`
	PercentComplete float64 `json:"percent_complete"`
	ReportingPaused bool    `json:"reporting_paused"`

	RegisteredVoters       int64   `json:"registered_voters"`
	TurnoutOfRegisteredPct float64 `json:"turnout_of_registered_percent"`
}

// Bundle is the pipeline's output: five resolved per-constituency maps,
// each keyed by unit id. Every record is a pure function of its join
// inputs and never mutated after construction.
type Bundle struct {
	Winners    map[string]WinnerRecord      `json:"winners"`
	PartyList  map[string]PartyListSummary  `json:"party_list"`
	Referendum map[string]ReferendumSummary `json:"referendum"`
	Diffs      map[string]DiffRecord        `json:"diffs"`
	Forensics  map[string]ForensicsRecord   `json:"forensics"`
}

// EmptyBundle returns the whole-pipeline fallback used when any source
// fetch fails: five empty maps, all downstream statistics zero-valued.
func EmptyBundle() *Bundle {
	return &Bundle{
		Winners:    map[string]WinnerRecord{},
		PartyList:  map[string]PartyListSummary{},
		Referendum: map[string]ReferendumSummary{},
		Diffs:      map[string]DiffRecord{},
		Forensics:  map[string]ForensicsRecord{},
	}
}

// IsEmpty reports whether the bundle carries no resolved units at all.
func (b *Bundle) IsEmpty() bool {
	return len(b.Winners) == 0 && len(b.PartyList) == 0 &&
		len(b.Referendum) == 0 && len(b.Diffs) == 0 && len(b.Forensics) == 0
}
