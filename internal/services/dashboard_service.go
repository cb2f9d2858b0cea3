// Package services orchestrates the reconciliation pipeline and serves
// its derived views. The dashboard service runs the pipeline on a
// refresh interval, caches the latest immutable snapshot behind a
// read-write lock, and computes statistics and anomaly views on demand
// without re-fetching.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"electionpulse/internal/anomaly"
	"electionpulse/internal/feeds"
	"electionpulse/internal/geomatch"
	"electionpulse/internal/infrastructure"
	"electionpulse/internal/reconcile"
	"electionpulse/internal/stats"
	"electionpulse/pkg/contracts/domain"
)

// FeedFetcher is the slice of the feeds fetcher the service needs.
type FeedFetcher interface {
	FetchAll(ctx context.Context) (*feeds.Snapshot, []feeds.SourceStatus, error)
}

// RefreshNotifier receives a notification after each pipeline run.
type RefreshNotifier interface {
	NotifyRefresh(runID string, units int, fetchedAt time.Time)
}

// PipelineState is one immutable pipeline outcome. Degraded marks runs
// where a source fetch failed and the empty-bundle fallback applied.
type PipelineState struct {
	RunID     string               `json:"run_id"`
	Bundle    *reconcile.Bundle    `json:"bundle"`
	Statuses  []feeds.SourceStatus `json:"statuses"`
	FetchedAt time.Time            `json:"fetched_at"`
	Degraded  bool                 `json:"degraded"`
}

// DashboardService drives the pipeline and serves its outputs.
type DashboardService struct {
	fetcher  FeedFetcher
	builder  *reconcile.Builder
	notifier RefreshNotifier
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger

	// Resolved at startup from the registry and boundary files;
	// immutable afterwards.
	registry  map[string]domain.ResolvedUnit
	features  []domain.BoundaryFeature
	matched   int
	unmatched int
	table     *geomatch.ProvinceTable

	refreshInterval time.Duration

	mu    sync.RWMutex
	state *PipelineState
}

// NewDashboardService wires the service. The match result comes from
// the geo matcher run once at startup; notifier and metrics may be nil.
func NewDashboardService(
	fetcher FeedFetcher,
	builder *reconcile.Builder,
	match geomatch.MatchResult,
	table *geomatch.ProvinceTable,
	notifier RefreshNotifier,
	metrics *infrastructure.PipelineMetrics,
	refreshInterval time.Duration,
	logger *slog.Logger,
) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		fetcher:         fetcher,
		builder:         builder,
		notifier:        notifier,
		metrics:         metrics,
		registry:        match.Units(),
		features:        match.Features,
		matched:         match.Matched,
		unmatched:       match.Unmatched,
		table:           table,
		refreshInterval: refreshInterval,
		logger:          logger.With(slog.String("component", "dashboard_service")),
	}
}

// Refresh runs one pipeline round: fetch all four sources, build the
// lookup bundle, publish the new state. A fetch failure is not an
// error here; it produces a degraded state with an empty bundle.
func (s *DashboardService) Refresh(ctx context.Context) (*PipelineState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	runID := uuid.New().String()
	logger := s.logger.With(slog.String("run_id", runID))

	snapshot, statuses, err := s.fetcher.FetchAll(ctx)

	state := &PipelineState{
		RunID:     runID,
		Statuses:  statuses,
		FetchedAt: time.Now(),
	}

	outcome := "success"
	if err != nil {
		// All-or-nothing: any source failure yields the empty bundle.
		state.Bundle = reconcile.EmptyBundle()
		state.Degraded = true
		outcome = "degraded"
		logger.WarnContext(ctx, "source fetch failed, serving empty bundle",
			slog.String("error", err.Error()))
		for _, st := range statuses {
			if !st.OK {
				s.metrics.RecordFetchFailure(ctx, string(st.Source))
			}
		}
	} else {
		state.Bundle = s.builder.BuildBundle(snapshot, s.registry)
		state.FetchedAt = snapshot.FetchedAt
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.metrics.RecordRun(ctx, outcome, time.Since(started))
	s.metrics.RecordUnitsResolved(ctx, len(state.Bundle.Diffs))

	if s.notifier != nil {
		s.notifier.NotifyRefresh(runID, len(state.Bundle.Diffs), state.FetchedAt)
	}

	logger.InfoContext(ctx, "pipeline run completed",
		slog.String("outcome", outcome),
		slog.Int("units", len(state.Bundle.Diffs)),
		slog.Duration("elapsed", time.Since(started)))

	return state, nil
}

// Run refreshes immediately and then on every tick until the context
// is cancelled. A zero interval runs exactly once.
func (s *DashboardService) Run(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		return
	}
	if s.refreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh loop stopped")
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				return
			}
		}
	}
}

// State returns the latest pipeline state, ErrNotReady before the
// first run.
func (s *DashboardService) State() (*PipelineState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, ErrNotReady
	}
	return s.state, nil
}

// Bundle returns the latest lookup bundle.
func (s *DashboardService) Bundle() (*reconcile.Bundle, error) {
	state, err := s.State()
	if err != nil {
		return nil, err
	}
	return state.Bundle, nil
}

// MatchSummary reports the startup boundary-matching outcome.
func (s *DashboardService) MatchSummary() (matched, unmatched int) {
	return s.matched, s.unmatched
}

// Features returns the boundary features with their unit attachments.
func (s *DashboardService) Features() []domain.BoundaryFeature {
	return s.features
}

// NationalStats aggregates turnout diffs over every resolved unit.
func (s *DashboardService) NationalStats() (stats.GroupStats, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return stats.GroupStats{}, err
	}
	return stats.Group(bundle.Diffs), nil
}

// RegionStats aggregates per region. Units whose province cannot be
// mapped to a region drop out of the partition.
func (s *DashboardService) RegionStats() (map[string]stats.GroupStats, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return nil, err
	}
	return stats.GroupBy(bundle.Diffs, func(unitID string) string {
		unit, ok := s.registry[unitID]
		if !ok {
			return ""
		}
		return s.table.Region(unit.ProvinceID)
	}), nil
}

// SubsetStats aggregates an arbitrary unit subset, e.g. one province
// or one party's won units. Unknown ids are ignored.
func (s *DashboardService) SubsetStats(unitIDs []string) (stats.GroupStats, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return stats.GroupStats{}, err
	}
	subset := make(map[string]reconcile.DiffRecord, len(unitIDs))
	for _, id := range unitIDs {
		if d, ok := bundle.Diffs[id]; ok {
			subset[id] = d
		}
	}
	return stats.Group(subset), nil
}

// PartyStats summarizes diff distributions per winning party.
func (s *DashboardService) PartyStats() ([]stats.PartyDistribution, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return nil, err
	}
	return stats.PartyStats(bundle.Diffs, bundle.Winners), nil
}

// AnomalyScores computes the composite forensics scores, highest
// first.
func (s *DashboardService) AnomalyScores() ([]anomaly.AnomalyRecord, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return nil, err
	}
	return anomaly.CompositeScores(bundle.Forensics, bundle.Diffs, bundle.Referendum), nil
}

// GlobalZScores runs the global z-score test over signed diffs.
func (s *DashboardService) GlobalZScores() (anomaly.ZScoreReport, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return anomaly.ZScoreReport{}, err
	}
	return anomaly.GlobalZScores(bundle.Diffs), nil
}

// PartyZScores groups the global z-score flags by winning party.
func (s *DashboardService) PartyZScores() ([]anomaly.PartyZGroup, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return nil, err
	}
	return anomaly.PartyZScores(bundle.Diffs, bundle.Winners), nil
}

// DiffBoxPlot summarizes the signed diff distribution for box-plot
// display.
func (s *DashboardService) DiffBoxPlot() (anomaly.BoxPlot, error) {
	bundle, err := s.Bundle()
	if err != nil {
		return anomaly.BoxPlot{}, err
	}
	values := make([]float64, 0, len(bundle.Diffs))
	for _, d := range bundle.Diffs {
		values = append(values, float64(d.DiffCount))
	}
	return anomaly.Whiskers(values), nil
}
