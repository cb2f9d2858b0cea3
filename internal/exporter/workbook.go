package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"electionpulse/internal/anomaly"
	"electionpulse/internal/stats"
)

const (
	sheetScores  = "Anomaly Scores"
	sheetParties = "Party Distributions"
)

// BuildAnomalyWorkbook assembles the downloadable anomaly workbook:
// one sheet with composite scores (already sorted highest first by the
// scorer) and one with per-party diff distributions. The caller owns
// the returned file and should Close it after writing.
func BuildAnomalyWorkbook(records []anomaly.AnomalyRecord, parties []stats.PartyDistribution) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), sheetScores); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeScoresSheet(f, records); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetParties); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := writePartiesSheet(f, parties); err != nil {
		return nil, err
	}

	return f, nil
}

func writeScoresSheet(f *excelize.File, records []anomaly.AnomalyRecord) error {
	headers := []any{
		"Unit", "Score", "Invalid Diff", "Blank Diff",
		"Turnout Diff %", "Referendum Gap", "Complete %", "Penalized",
	}
	if err := f.SetSheetRow(sheetScores, "A1", &headers); err != nil {
		return fmt.Errorf("write score headers: %w", err)
	}

	for i, rec := range records {
		row := []any{
			rec.UnitID,
			rec.Score,
			rec.InvalidDiff,
			rec.BlankDiff,
			rec.TurnoutDiffPct,
			rec.ReferendumGap,
			rec.PercentComplete,
			rec.Penalized,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetScores, cell, &row); err != nil {
			return fmt.Errorf("write score row %d: %w", i, err)
		}
	}
	return nil
}

func writePartiesSheet(f *excelize.File, parties []stats.PartyDistribution) error {
	headers := []any{
		"Party", "Name", "Units Won", "Total |Diff|", "Mean Diff",
		"Mean |Diff|", "Median", "Std Dev", "Q1", "Q3", "Min", "Max",
	}
	if err := f.SetSheetRow(sheetParties, "A1", &headers); err != nil {
		return fmt.Errorf("write party headers: %w", err)
	}

	for i, p := range parties {
		row := []any{
			p.PartyID, p.PartyName, p.Units, p.TotalAbsDiff,
			p.MeanDiff, p.MeanAbsDiff,
		}
		if p.HasDistribution {
			row = append(row, p.Median, p.StdDev, p.Q1, p.Q3, p.Min, p.Max)
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetParties, cell, &row); err != nil {
			return fmt.Errorf("write party row %d: %w", i, err)
		}
	}
	return nil
}
