// Command reconcile runs a single pipeline round without the server:
// fetch the four feeds, build the lookup bundle, and write the diff CSV
// and anomaly workbook to the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"electionpulse/internal/anomaly"
	"electionpulse/internal/config"
	"electionpulse/internal/exporter"
	"electionpulse/internal/feeds"
	"electionpulse/internal/geomatch"
	"electionpulse/internal/infrastructure"
	"electionpulse/internal/reconcile"
	"electionpulse/internal/stats"
)

func main() {
	outputDir := flag.String("out", "data/reports", "output directory for exports")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline for the run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, *outputDir); err != nil {
		logger.Error("Reconciliation run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, outputDir string) error {
	features, err := geomatch.ParseBoundaryFile(cfg.Sources.BoundaryFile)
	if err != nil {
		return fmt.Errorf("load boundaries: %w", err)
	}
	registry, err := geomatch.ParseRegistryFile(cfg.Sources.RegistryFile)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	matcher := geomatch.NewMatcher(geomatch.DefaultProvinceTable(), logger)
	match := matcher.Match(features, matcher.BuildIndex(registry))
	logger.Info("Geography resolved",
		"matched", match.Matched,
		"unmatched", match.Unmatched)

	client := feeds.NewClient(cfg.Sources.FetchTimeout, cfg.Sources.RateLimit, logger)
	fetcher := feeds.NewFetcher(client, cfg.Sources, logger)

	snapshot, statuses, err := fetcher.FetchAll(ctx)
	if err != nil {
		for _, status := range statuses {
			if !status.OK {
				logger.Error("Source failed", "source", status.Source, "error", status.Error)
			}
		}
		return fmt.Errorf("fetch feeds: %w", err)
	}

	builder := reconcile.NewBuilder(cfg.Pipeline.SummarySuffix, logger)
	bundle := builder.BuildBundle(snapshot, match.Units())
	logger.Info("Bundle built", "units", len(bundle.Diffs))

	national := stats.Group(bundle.Diffs)
	logger.Info("National turnout diff",
		"units", national.Units,
		"mismatched", national.Mismatched,
		"sum_abs_diff", national.SumAbsDiff,
		"max_abs_diff_unit", national.MaxAbsDiffUnitID)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	csvPath := filepath.Join(outputDir, "turnout_diffs.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	defer csvFile.Close()
	if err := exporter.WriteDiffsCSV(csvFile, bundle.Diffs); err != nil {
		return fmt.Errorf("write diff csv: %w", err)
	}
	logger.Info("Diff CSV written", "path", csvPath)

	scores := anomaly.CompositeScores(bundle.Forensics, bundle.Diffs, bundle.Referendum)
	parties := stats.PartyStats(bundle.Diffs, bundle.Winners)

	workbook, err := exporter.BuildAnomalyWorkbook(scores, parties)
	if err != nil {
		return fmt.Errorf("build anomaly workbook: %w", err)
	}
	defer workbook.Close()

	xlsxPath := filepath.Join(outputDir, "anomalies.xlsx")
	if err := workbook.SaveAs(xlsxPath); err != nil {
		return fmt.Errorf("write %s: %w", xlsxPath, err)
	}
	logger.Info("Anomaly workbook written", "path", xlsxPath)

	return nil
}
