package models

import (
	"time"
)

// FundingRecord is a single funding-rate observation from one venue.
// Rate is the per-settlement-period fraction (0.0001 = 0.01%).
type FundingRecord struct {
	Venue       string  `json:"venue"`
	Symbol      string  `json:"symbol"`
	TimestampMs int64   `json:"timestamp_ms"`
	Rate        float64 `json:"rate"`
}

// Time returns the record's effective time in UTC.
func (r FundingRecord) Time() time.Time {
	return time.UnixMilli(r.TimestampMs).UTC()
}

// RecordSeries is a time-ordered funding-rate history for one venue covering
// the requested [StartMs, EndMs] window. Incomplete is set when retrieval
// stopped early on an exhausted retry budget; callers must not assume full
// window coverage in that case.
type RecordSeries struct {
	Venue      string          `json:"venue"`
	Symbol     string          `json:"symbol"`
	StartMs    int64           `json:"start_ms"`
	EndMs      int64           `json:"end_ms"`
	Records    []FundingRecord `json:"records"`
	Incomplete bool            `json:"incomplete"`
}

// Len returns the number of records in the series.
func (s RecordSeries) Len() int {
	return len(s.Records)
}

// FirstMs returns the timestamp of the earliest record, or 0 for an empty series.
func (s RecordSeries) FirstMs() int64 {
	if len(s.Records) == 0 {
		return 0
	}
	return s.Records[0].TimestampMs
}

// LastMs returns the timestamp of the latest record, or 0 for an empty series.
func (s RecordSeries) LastMs() int64 {
	if len(s.Records) == 0 {
		return 0
	}
	return s.Records[len(s.Records)-1].TimestampMs
}

// IsSorted reports whether timestamps are non-decreasing.
func (s RecordSeries) IsSorted() bool {
	for i := 1; i < len(s.Records); i++ {
		if s.Records[i].TimestampMs < s.Records[i-1].TimestampMs {
			return false
		}
	}
	return true
}

// AlignedPair joins one record from each venue whose timestamps fall within
// the reconciliation tolerance. Each source record appears in at most one pair.
type AlignedPair struct {
	A FundingRecord `json:"a"`
	B FundingRecord `json:"b"`
}

// ComparisonRow is one row of the externally consumed result table. Rates are
// expressed as percentages, the annualized difference as a yearly-equivalent
// percentage.
type ComparisonRow struct {
	TimestampA     string  `json:"timestamp_a"`
	TimestampB     string  `json:"timestamp_b"`
	RateAPct       float64 `json:"rate_a_pct"`
	AdjustedAPct   float64 `json:"adjusted_a_pct"`
	RateBPct       float64 `json:"rate_b_pct"`
	AnnualizedDiff float64 `json:"annualized_diff_pct"`
}

// ReconciliationResult is the output of one reconciliation run. Pairs and Rows
// are parallel and ordered by the venue-A timestamp. The incompleteness flags
// carry through from retrieval so a partial comparison is never presented as
// complete.
type ReconciliationResult struct {
	RunID          string          `json:"run_id"`
	SymbolA        string          `json:"symbol_a"`
	SymbolB        string          `json:"symbol_b"`
	Pairs          []AlignedPair   `json:"pairs"`
	Rows           []ComparisonRow `json:"rows"`
	IncompleteA    bool            `json:"incomplete_a"`
	IncompleteB    bool            `json:"incomplete_b"`
	CoveredStartMs int64           `json:"covered_start_ms"`
	CoveredEndMs   int64           `json:"covered_end_ms"`
}

// Incomplete reports whether either input series terminated early.
func (r ReconciliationResult) Incomplete() bool {
	return r.IncompleteA || r.IncompleteB
}

// FormatTimestampMs renders a millisecond timestamp the way the result table
// expects it, millisecond precision included.
func FormatTimestampMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05.000")
}
