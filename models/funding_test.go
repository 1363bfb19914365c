package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRecordSeriesHelpers(t *testing.T) {
	s := RecordSeries{
		Venue:  "hyperliquid",
		Symbol: "ENA",
		Records: []FundingRecord{
			{TimestampMs: 1000, Rate: 0.0001},
			{TimestampMs: 2000, Rate: 0.0002},
			{TimestampMs: 3000, Rate: 0.0003},
		},
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	if s.FirstMs() != 1000 || s.LastMs() != 3000 {
		t.Errorf("range = [%d, %d], want [1000, 3000]", s.FirstMs(), s.LastMs())
	}
	if !s.IsSorted() {
		t.Error("expected sorted series")
	}

	s.Records[0].TimestampMs = 5000
	if s.IsSorted() {
		t.Error("expected unsorted series after mutation")
	}

	empty := RecordSeries{}
	if empty.FirstMs() != 0 || empty.LastMs() != 0 {
		t.Errorf("empty series range = [%d, %d], want [0, 0]", empty.FirstMs(), empty.LastMs())
	}
	if !empty.IsSorted() {
		t.Error("empty series should count as sorted")
	}
}

func TestFormatTimestampMs(t *testing.T) {
	// 2021-01-01T00:00:00.123Z
	got := FormatTimestampMs(1609459200123)
	want := "2021-01-01 00:00:00.123"
	if got != want {
		t.Errorf("FormatTimestampMs = %q, want %q", got, want)
	}
}

func TestErrorClassification(t *testing.T) {
	base := errors.New("connection reset")
	rbe := &RetryBudgetExhaustedError{Attempts: 6, LastErr: base}
	wrapped := fmt.Errorf("binance retrieval: %w", rbe)

	if !IsRetryBudgetExhausted(wrapped) {
		t.Error("expected wrapped retry budget error to be detected")
	}
	if !errors.Is(wrapped, base) {
		t.Error("expected Unwrap to expose the last transport error")
	}
	if IsRetryBudgetExhausted(base) {
		t.Error("plain error misclassified as retry budget exhaustion")
	}

	ipe := fmt.Errorf("load: %w", &InvalidParameterError{Param: "period_multiplier", Reason: "must be positive"})
	if !IsInvalidParameter(ipe) {
		t.Error("expected wrapped invalid parameter error to be detected")
	}
	if IsInvalidParameter(rbe) {
		t.Error("retry budget error misclassified as invalid parameter")
	}
}
