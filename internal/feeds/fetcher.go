package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"electionpulse/internal/config"
	apperrors "electionpulse/internal/errors"
)

// Fetcher retrieves the four result feeds concurrently. The pipeline
// contract is all-or-nothing: if any fetch or parse fails, FetchAll
// returns a single error and the caller substitutes empty lookups for
// the whole run rather than mixing fresh and stale joins.
type Fetcher struct {
	client   *Client
	cfg      config.SourcesConfig
	validate *validator.Validate
	logger   *slog.Logger
}

// NewFetcher creates a fetcher over the configured sources.
func NewFetcher(client *Client, cfg config.SourcesConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:   client,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger.With("component", "source_fetcher"),
	}
}

// FetchAll fetches all four sources in parallel with join-all
// semantics: the first failure cancels the remaining fetches and the
// whole round fails. The per-source statuses are returned in both
// outcomes so callers can report which source broke.
func (f *Fetcher) FetchAll(ctx context.Context) (*Snapshot, []SourceStatus, error) {
	snapshot := &Snapshot{}

	var mu sync.Mutex
	statuses := make(map[Source]SourceStatus, 4)
	record := func(src Source, fromCache bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		status := SourceStatus{Source: src, OK: err == nil, FromCache: fromCache}
		if err != nil {
			status.Error = err.Error()
		} else {
			status.FetchedAt = time.Now()
		}
		statuses[src] = status
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fromCache, err := f.fetchTurnout(gctx, &snapshot.Turnout)
		record(SourceTurnout, fromCache, err)
		return err
	})
	g.Go(func() error {
		fromCache, err := f.fetchReferendum(gctx, &snapshot.Referendum)
		record(SourceReferendum, fromCache, err)
		return err
	})
	g.Go(func() error {
		fromCache, err := f.fetchCandidates(gctx, &snapshot.Candidates)
		record(SourceCandidates, fromCache, err)
		return err
	})
	g.Go(func() error {
		fromCache, err := f.fetchParties(gctx, &snapshot.Parties)
		record(SourceParties, fromCache, err)
		return err
	})

	err := g.Wait()
	ordered := orderedStatuses(statuses)

	if err != nil {
		f.logger.WarnContext(ctx, "source fetch round failed, pipeline falls back to empty lookups",
			"error", err,
		)
		return nil, ordered, fmt.Errorf("fetch sources: %w", err)
	}

	snapshot.FetchedAt = time.Now()
	f.logger.InfoContext(ctx, "source fetch round completed",
		"provinces", len(snapshot.Turnout.Provinces),
		"candidates", len(snapshot.Candidates),
		"parties", len(snapshot.Parties),
	)

	return snapshot, ordered, nil
}

func (f *Fetcher) fetchTurnout(ctx context.Context, out *TurnoutFeed) (bool, error) {
	fromCache, err := f.client.GetJSON(ctx, f.cfg.TurnoutURL, f.cfg.LiveTTL, out)
	if err != nil {
		return fromCache, err
	}
	if err := f.validate.Struct(out); err != nil {
		return fromCache, apperrors.NewParsingError("turnout feed failed schema validation", err)
	}
	return fromCache, nil
}

func (f *Fetcher) fetchReferendum(ctx context.Context, out *ReferendumFeed) (bool, error) {
	fromCache, err := f.client.GetJSON(ctx, f.cfg.ReferendumURL, f.cfg.LiveTTL, out)
	if err != nil {
		return fromCache, err
	}
	if err := f.validate.Struct(out); err != nil {
		return fromCache, apperrors.NewParsingError("referendum feed failed schema validation", err)
	}
	return fromCache, nil
}

func (f *Fetcher) fetchCandidates(ctx context.Context, out *[]CandidateInfo) (bool, error) {
	fromCache, err := f.client.GetJSON(ctx, f.cfg.CandidatesURL, f.cfg.StaticTTL, out)
	if err != nil {
		return fromCache, err
	}
	for i, c := range *out {
		if err := f.validate.Struct(c); err != nil {
			return fromCache, apperrors.NewParsingError(
				fmt.Sprintf("candidate directory row %d failed schema validation", i), err)
		}
	}
	return fromCache, nil
}

func (f *Fetcher) fetchParties(ctx context.Context, out *[]PartyInfo) (bool, error) {
	fromCache, err := f.client.GetJSON(ctx, f.cfg.PartiesURL, f.cfg.StaticTTL, out)
	if err != nil {
		return fromCache, err
	}
	for i, p := range *out {
		if err := f.validate.Struct(p); err != nil {
			return fromCache, apperrors.NewParsingError(
				fmt.Sprintf("party directory row %d failed schema validation", i), err)
		}
	}
	return fromCache, nil
}

// orderedStatuses returns statuses in the fixed source order. Sources
// cancelled before they finished have no entry and are reported as
// not-OK with a cancellation note.
func orderedStatuses(statuses map[Source]SourceStatus) []SourceStatus {
	order := []Source{SourceTurnout, SourceReferendum, SourceCandidates, SourceParties}
	out := make([]SourceStatus, 0, len(order))
	for _, src := range order {
		if s, ok := statuses[src]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, SourceStatus{Source: src, OK: false, Error: "cancelled before completion"})
	}
	return out
}
