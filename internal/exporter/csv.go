// Package exporter renders pipeline outputs for download: a CSV diff
// table and an Excel workbook with anomaly scores and per-party
// distributions.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"electionpulse/internal/reconcile"
)

var diffHeaders = []string{
	"unit_id",
	"mp_turn_out",
	"mp_percent_turn_out",
	"party_list_turn_out",
	"party_list_percent_turn_out",
	"diff_count",
	"diff_percent",
}

// WriteDiffsCSV streams the turnout diff table as CSV, one row per
// unit, sorted by unit id. A UTF-8 BOM is prepended so Excel opens the
// file correctly.
func WriteDiffsCSV(w io.Writer, diffs map[string]reconcile.DiffRecord) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(diffHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	ids := make([]string, 0, len(diffs))
	for id := range diffs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		d := diffs[id]
		record := []string{
			d.UnitID,
			strconv.FormatInt(d.MPTurnout, 10),
			formatFloat(d.MPPercent),
			strconv.FormatInt(d.PLTurnout, 10),
			formatFloat(d.PLPercent),
			strconv.FormatInt(d.DiffCount, 10),
			formatFloat(d.DiffPercent),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %s: %w", id, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
