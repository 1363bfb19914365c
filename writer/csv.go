package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"fundingflow/logger"
	"fundingflow/models"
)

var csvHeader = []string{
	"timestamp_a",
	"timestamp_b",
	"rate_a_pct",
	"adjusted_a_pct",
	"rate_b_pct",
	"annualized_diff_pct",
}

// WriteCSV renders the comparison table to a local file, creating parent
// directories as needed. The layout mirrors the parquet schema minus the run
// metadata so the file is directly loadable into a spreadsheet.
func WriteCSV(path string, result models.ReconciliationResult) error {
	if path == "" {
		return &models.InvalidParameterError{Param: "csv_path", Reason: "output path is required"}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range result.Rows {
		record := []string{
			row.TimestampA,
			row.TimestampB,
			formatFloat(row.RateAPct),
			formatFloat(row.AdjustedAPct),
			formatFloat(row.RateBPct),
			formatFloat(row.AnnualizedDiff),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	logger.GetLogger().WithComponent("csv_writer").WithFields(logger.Fields{
		"path": path,
		"rows": len(result.Rows),
	}).Info("comparison table written")

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
