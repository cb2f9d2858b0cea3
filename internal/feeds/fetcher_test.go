package feeds

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electionpulse/internal/config"
	apperrors "electionpulse/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const turnoutPayload = `{
	"provinces": {
		"CHU": {
			"units": {
				"CHU-1": {
					"unit_id": "CHU-1",
					"mp_turn_out": 1000, "mp_percent_turn_out": 51.2,
					"party_list_turn_out": 990, "party_list_percent_turn_out": 50.7,
					"mp_invalid_votes": 12, "mp_blank_votes": 5, "mp_valid_votes": 983,
					"pl_invalid_votes": 10, "pl_blank_votes": 6, "pl_valid_votes": 974,
					"candidates": [
						{"candidate_id": "C-1", "party_id": "P-1", "rank": 1, "votes": 520, "percent": 52.9}
					],
					"parties": [
						{"party_id": "P-1", "votes": 480, "percent": 49.3}
					],
					"stations_counted": 40, "stations_total": 40,
					"reporting_paused": false
				}
			}
		}
	}
}`

const referendumPayload = `{
	"provinces": {
		"CHU": {
			"units": {
				"CHU-1": {
					"questions": {
						"q1": {"yes": 600, "no": 300, "abstained": 50,
							"percent_yes": 63.2, "percent_no": 31.6, "percent_abstained": 5.2}
					}
				}
			}
		}
	}
}`

const candidatesPayload = `[{"candidate_id": "C-1", "name": "A. Example"}]`
const partiesPayload = `[{"party_id": "P-1", "name": "Unity", "color": "#d62728"}]`

// newTestSources serves the four payloads, with per-source overrides
func newTestSources(t *testing.T, overrides map[string]http.HandlerFunc) (config.SourcesConfig, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	serve := func(path, payload string) {
		if h, ok := overrides[path]; ok {
			mux.HandleFunc(path, h)
			return
		}
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(payload))
		})
	}
	serve("/turnout", turnoutPayload)
	serve("/referendum", referendumPayload)
	serve("/candidates", candidatesPayload)
	serve("/parties", partiesPayload)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return config.SourcesConfig{
		TurnoutURL:    server.URL + "/turnout",
		ReferendumURL: server.URL + "/referendum",
		CandidatesURL: server.URL + "/candidates",
		PartiesURL:    server.URL + "/parties",
		LiveTTL:       time.Minute,
		StaticTTL:     time.Hour,
		FetchTimeout:  5 * time.Second,
		RateLimit:     100,
	}, server
}

func newTestFetcher(t *testing.T, overrides map[string]http.HandlerFunc) *Fetcher {
	t.Helper()
	cfg, _ := newTestSources(t, overrides)
	client := NewClient(cfg.FetchTimeout, cfg.RateLimit, testLogger())
	return NewFetcher(client, cfg, testLogger())
}

func TestFetchAllSuccess(t *testing.T) {
	fetcher := newTestFetcher(t, nil)

	snapshot, statuses, err := fetcher.FetchAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	unit := snapshot.Turnout.Provinces["CHU"].Units["CHU-1"]
	assert.Equal(t, int64(1000), unit.MPTurnout)
	assert.Equal(t, int64(990), unit.PartyListTurnout)
	require.Len(t, unit.Candidates, 1)
	assert.Equal(t, 1, unit.Candidates[0].Rank)

	q := snapshot.Referendum.Provinces["CHU"].Units["CHU-1"].Questions["q1"]
	assert.Equal(t, int64(600), q.Yes)

	require.Len(t, snapshot.Candidates, 1)
	require.Len(t, snapshot.Parties, 1)
	assert.False(t, snapshot.FetchedAt.IsZero())

	require.Len(t, statuses, 4)
	for _, s := range statuses {
		assert.True(t, s.OK, "source %s", s.Source)
	}
}

func TestFetchAllFailsWhenOneSourceDown(t *testing.T) {
	fetcher := newTestFetcher(t, map[string]http.HandlerFunc{
		"/referendum": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	})

	snapshot, statuses, err := fetcher.FetchAll(context.Background())
	require.Error(t, err)
	assert.Nil(t, snapshot, "no partial snapshot on failure")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))

	bykey := map[Source]SourceStatus{}
	for _, s := range statuses {
		bykey[s.Source] = s
	}
	assert.False(t, bykey[SourceReferendum].OK)
	assert.Contains(t, bykey[SourceReferendum].Error, "status 502")
}

func TestFetchAllFailsOnMalformedPayload(t *testing.T) {
	fetcher := newTestFetcher(t, map[string]http.HandlerFunc{
		"/turnout": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"provinces": {{{`))
		},
	})

	snapshot, _, err := fetcher.FetchAll(context.Background())
	require.Error(t, err)
	assert.Nil(t, snapshot)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestFetchAllFailsSchemaValidation(t *testing.T) {
	// A unit with no unit_id violates the feed schema
	fetcher := newTestFetcher(t, map[string]http.HandlerFunc{
		"/turnout": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"provinces": {"CHU": {"units": {"CHU-1": {"mp_turn_out": 10}}}}}`))
		},
	})

	_, _, err := fetcher.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestFetchAllRespectsContextCancellation(t *testing.T) {
	fetcher := newTestFetcher(t, map[string]http.HandlerFunc{
		"/turnout": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := fetcher.FetchAll(ctx)
	require.Error(t, err)
}
