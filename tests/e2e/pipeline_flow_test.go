package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"electionpulse/internal/config"
	apperrors "electionpulse/internal/errors"
	"electionpulse/internal/feeds"
	"electionpulse/internal/geomatch"
	"electionpulse/internal/reconcile"
	"electionpulse/internal/services"
	handlers "electionpulse/internal/transport/http"
)

const turnoutPayload = `{
	"provinces": {
		"CHU": {
			"units": {
				"CHU-1": {
					"unit_id": "CHU-1",
					"mp_turn_out": 1000, "mp_percent_turn_out": 50.0,
					"party_list_turn_out": 990, "party_list_percent_turn_out": 49.5,
					"mp_invalid_votes": 12, "mp_blank_votes": 5, "mp_valid_votes": 983,
					"pl_invalid_votes": 10, "pl_blank_votes": 6, "pl_valid_votes": 974,
					"candidates": [
						{"candidate_id": "C-1", "party_id": "P-1", "rank": 1, "votes": 520, "percent": 52.9},
						{"candidate_id": "C-2", "party_id": "P-2", "rank": 2, "votes": 463, "percent": 47.1}
					],
					"parties": [
						{"party_id": "P-1", "votes": 480, "percent": 49.3},
						{"party_id": "P-2", "votes": 440, "percent": 45.2}
					],
					"stations_counted": 40, "stations_total": 40
				},
				"CHU-00": {
					"unit_id": "CHU-00",
					"mp_turn_out": 1000, "party_list_turn_out": 990
				}
			}
		},
		"OSH": {
			"units": {
				"OSH-1": {
					"unit_id": "OSH-1",
					"mp_turn_out": 800, "mp_percent_turn_out": 40.0,
					"party_list_turn_out": 810, "party_list_percent_turn_out": 40.5,
					"candidates": [
						{"candidate_id": "C-3", "party_id": "P-2", "rank": 1, "votes": 410, "percent": 51.2}
					],
					"parties": [
						{"party_id": "P-2", "votes": 400, "percent": 49.4}
					],
					"stations_counted": 28, "stations_total": 30
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

const candidatesPayload = `[
	{"candidate_id": "C-1", "name": "A. Example"},
	{"candidate_id": "C-2", "name": "B. Example"},
	{"candidate_id": "C-3", "name": "C. Example"}
]`

const partiesPayload = `[
	{"party_id": "P-1", "name": "Unity", "color": "#d62728"},
	{"party_id": "P-2", "name": "Progress", "color": "#1f77b4"}
]`

// PipelineFlowSuite runs the whole pipeline against real HTTP feed
// servers: fetch, reconcile, statistics, anomaly scoring, and exports,
// all through the mounted router.
type PipelineFlowSuite struct {
	suite.Suite
	feedServer *httptest.Server
	overrides  map[string]http.HandlerFunc
	logger     *slog.Logger
}

func TestPipelineFlowSuite(t *testing.T) {
	suite.Run(t, new(PipelineFlowSuite))
}

func (s *PipelineFlowSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.overrides = map[string]http.HandlerFunc{}

	mux := http.NewServeMux()
	serve := func(path, payload string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if h, ok := s.overrides[path]; ok {
				h(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(payload))
		})
	}
	serve("/turnout", turnoutPayload)
	serve("/referendum", referendumPayload)
	serve("/candidates", candidatesPayload)
	serve("/parties", partiesPayload)

	s.feedServer = httptest.NewServer(mux)
}

func (s *PipelineFlowSuite) TearDownTest() {
	s.feedServer.Close()
}

func (s *PipelineFlowSuite) newDashboard() *services.DashboardService {
	sources := config.SourcesConfig{
		TurnoutURL:    s.feedServer.URL + "/turnout",
		ReferendumURL: s.feedServer.URL + "/referendum",
		CandidatesURL: s.feedServer.URL + "/candidates",
		PartiesURL:    s.feedServer.URL + "/parties",
		LiveTTL:       time.Minute,
		StaticTTL:     time.Hour,
		FetchTimeout:  5 * time.Second,
		RateLimit:     100,
	}

	registry := []byte(`[
		{"unit_id": "CHU-1", "district_no": 1, "province_code": "CHU", "station_count": 40, "registered_voters": 2000},
		{"unit_id": "CHU-00", "district_no": 0, "province_code": "CHU", "station_count": 0},
		{"unit_id": "OSH-1", "district_no": 1, "province_code": "OSH", "station_count": 30, "registered_voters": 1500}
	]`)
	boundaries := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"province": "Chui", "district": 1}, "geometry": null},
			{"type": "Feature", "properties": {"province": "Osh", "district": 1}, "geometry": null}
		]
	}`)

	records, err := geomatch.ParseRegistry(registry)
	s.Require().NoError(err)
	features, err := geomatch.ParseBoundaries(boundaries)
	s.Require().NoError(err)

	table := geomatch.DefaultProvinceTable()
	matcher := geomatch.NewMatcher(table, s.logger)
	match := matcher.Match(features, matcher.BuildIndex(records))
	s.Require().Equal(2, match.Matched)

	client := feeds.NewClient(sources.FetchTimeout, sources.RateLimit, s.logger)
	fetcher := feeds.NewFetcher(client, sources, s.logger)

	return services.NewDashboardService(
		fetcher,
		reconcile.NewBuilder("00", s.logger),
		match,
		table,
		nil,
		nil,
		time.Minute,
		s.logger,
	)
}

func (s *PipelineFlowSuite) newRouter(dashboard *services.DashboardService) chi.Router {
	errorHandler := apperrors.NewErrorHandler(s.logger, false)
	r := chi.NewRouter()
	r.Mount("/api/dashboard", handlers.NewDashboardHandler(dashboard, errorHandler, s.logger).Routes())
	r.Mount("/api/stats", handlers.NewStatsHandler(dashboard, errorHandler, s.logger).Routes())
	r.Mount("/api/anomaly", handlers.NewAnomalyHandler(dashboard, errorHandler, s.logger).Routes())
	r.Mount("/api/export", handlers.NewExportHandler(dashboard, errorHandler, s.logger).Routes())

	health := services.NewHealthService("e2e", dashboard, nil, s.logger)
	r.Get("/api/healthz", handlers.NewHealthHandler(health, s.logger).Healthz)
	return r
}

func (s *PipelineFlowSuite) get(router chi.Router, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *PipelineFlowSuite) TestFullPipelineRound() {
	dashboard := s.newDashboard()
	state, err := dashboard.Refresh(context.Background())
	s.Require().NoError(err)
	s.False(state.Degraded)

	router := s.newRouter(dashboard)

	rec := s.get(router, "/api/dashboard/bundle")
	s.Require().Equal(http.StatusOK, rec.Code)

	var bundleResp struct {
		Bundle struct {
			Winners    map[string]reconcile.WinnerRecord      `json:"winners"`
			Diffs      map[string]reconcile.DiffRecord        `json:"diffs"`
			Referendum map[string]reconcile.ReferendumSummary `json:"referendum"`
		} `json:"bundle"`
		Matched int `json:"matched"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &bundleResp))

	s.Equal(2, bundleResp.Matched)
	s.Len(bundleResp.Bundle.Diffs, 2, "summary row CHU-00 must be skipped")

	winner := bundleResp.Bundle.Winners["CHU-1"]
	s.Equal("A. Example", winner.CandidateName)
	s.Equal("Unity", winner.PartyName)
	s.Equal("#d62728", winner.PartyColor)

	s.Equal(int64(10), bundleResp.Bundle.Diffs["CHU-1"].DiffCount)
	s.Equal(int64(-10), bundleResp.Bundle.Diffs["OSH-1"].DiffCount)

	s.Equal("q1", bundleResp.Bundle.Referendum["CHU-1"].QuestionKey)
	s.Equal(int64(950), bundleResp.Bundle.Referendum["CHU-1"].Ballots())

	rec = s.get(router, "/api/stats/regions")
	s.Require().Equal(http.StatusOK, rec.Code)
	var regions map[string]struct {
		Units      int   `json:"units"`
		SumAbsDiff int64 `json:"sum_abs_diff"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &regions))
	s.Equal(1, regions["North"].Units)
	s.Equal(int64(10), regions["North"].SumAbsDiff)
	s.Equal(1, regions["South"].Units)
	s.Equal(int64(10), regions["South"].SumAbsDiff)

	rec = s.get(router, "/api/anomaly/scores")
	s.Require().Equal(http.StatusOK, rec.Code)
	var scores []struct {
		UnitID string  `json:"unit_id"`
		Score  float64 `json:"score"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &scores))
	s.Require().Len(scores, 2)
	s.GreaterOrEqual(scores[0].Score, scores[1].Score)

	rec = s.get(router, "/api/export/diffs.csv")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.True(strings.Contains(rec.Body.String(), "CHU-1"))
	s.True(strings.Contains(rec.Body.String(), "OSH-1"))

	rec = s.get(router, "/api/healthz")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"healthy"`)
}

func (s *PipelineFlowSuite) TestSourceFailureDegradesWholeRound() {
	s.overrides["/referendum"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	dashboard := s.newDashboard()
	state, err := dashboard.Refresh(context.Background())
	s.Require().NoError(err, "a failed fetch degrades the round, it does not error")
	s.True(state.Degraded)

	router := s.newRouter(dashboard)

	rec := s.get(router, "/api/dashboard/bundle")
	s.Require().Equal(http.StatusOK, rec.Code)
	var bundleResp struct {
		Bundle struct {
			Diffs   map[string]reconcile.DiffRecord   `json:"diffs"`
			Winners map[string]reconcile.WinnerRecord `json:"winners"`
		} `json:"bundle"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &bundleResp))
	s.Empty(bundleResp.Bundle.Diffs, "all-or-nothing: no partial bundle")
	s.Empty(bundleResp.Bundle.Winners)

	rec = s.get(router, "/api/stats/national")
	s.Require().Equal(http.StatusOK, rec.Code)
	var national struct {
		Units      int   `json:"units"`
		SumAbsDiff int64 `json:"sum_abs_diff"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &national))
	s.Zero(national.Units)
	s.Zero(national.SumAbsDiff)

	rec = s.get(router, "/api/dashboard/status")
	s.Require().Equal(http.StatusOK, rec.Code)
	var status struct {
		Degraded bool                 `json:"degraded"`
		Sources  []feeds.SourceStatus `json:"sources"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	s.True(status.Degraded)

	byName := map[feeds.Source]feeds.SourceStatus{}
	for _, st := range status.Sources {
		byName[st.Source] = st
	}
	s.False(byName[feeds.SourceReferendum].OK)
	s.NotEmpty(byName[feeds.SourceReferendum].Error)

	rec = s.get(router, "/api/healthz")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"degraded"`)
}

func (s *PipelineFlowSuite) TestRecoveryAfterDegradedRound() {
	s.overrides["/turnout"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	dashboard := s.newDashboard()
	state, err := dashboard.Refresh(context.Background())
	s.Require().NoError(err)
	s.True(state.Degraded)

	delete(s.overrides, "/turnout")

	state, err = dashboard.Refresh(context.Background())
	s.Require().NoError(err)
	s.False(state.Degraded)

	bundle, err := dashboard.Bundle()
	s.Require().NoError(err)
	s.Len(bundle.Diffs, 2)
}
