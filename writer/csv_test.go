package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"fundingflow/models"
)

func sampleResult() models.ReconciliationResult {
	return models.ReconciliationResult{
		RunID:   "run-1",
		SymbolA: "ENA",
		SymbolB: "ENAUSDT",
		Pairs: []models.AlignedPair{
			{
				A: models.FundingRecord{Venue: "hyperliquid", Symbol: "ENA", TimestampMs: 1000, Rate: 0.0001},
				B: models.FundingRecord{Venue: "binance", Symbol: "ENAUSDT", TimestampMs: 1100, Rate: 0.0003},
			},
		},
		Rows: []models.ComparisonRow{
			{
				TimestampA:     models.FormatTimestampMs(1000),
				TimestampB:     models.FormatTimestampMs(1100),
				RateAPct:       0.01,
				AdjustedAPct:   0.08,
				RateBPct:       0.03,
				AnnualizedDiff: 54.75,
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "comparison.csv")

	if err := WriteCSV(path, sampleResult()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "timestamp_a" || rows[0][5] != "annualized_diff_pct" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "1970-01-01 00:00:01.000" {
		t.Errorf("timestamp column = %q", rows[1][0])
	}
	if rows[1][5] != "54.75" {
		t.Errorf("annualized column = %q", rows[1][5])
	}
}

func TestWriteCSVEmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := WriteCSV(path, models.ReconciliationResult{}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("empty result must still write the header, got %d rows", len(rows))
	}
}

func TestWriteCSVRequiresPath(t *testing.T) {
	if err := WriteCSV("", sampleResult()); !models.IsInvalidParameter(err) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
}
