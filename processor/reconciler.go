package processor

import (
	"fmt"

	"github.com/google/uuid"

	"fundingflow/logger"
	"fundingflow/models"
)

// hoursPerYear converts a per-period rate difference into a yearly-equivalent
// figure: 24/multiplier settlement periods per day, 365 days per year.
const (
	hoursPerDay   = 24.0
	daysPerYear   = 365.0
	fractionToPct = 100.0
)

// Reconciler aligns two funding-rate series in time and derives the annualized
// spread between them. Tolerance and the period multiplier come from
// configuration, never from package constants.
type Reconciler struct {
	toleranceMs int64
	multiplier  float64
	log         *logger.Log
}

// NewReconciler creates a Reconciler. toleranceMs is the maximum timestamp
// distance for two records to count as the same settlement; multiplier scales
// venue A's rate onto venue B's settlement period (e.g. 8 when A settles
// hourly and B every eight hours).
func NewReconciler(toleranceMs int64, multiplier float64) (*Reconciler, error) {
	if toleranceMs < 0 {
		return nil, &models.InvalidParameterError{Param: "tolerance_ms", Reason: "must not be negative"}
	}
	if multiplier <= 0 {
		return nil, &models.InvalidParameterError{Param: "period_multiplier", Reason: "must be greater than 0"}
	}
	return &Reconciler{
		toleranceMs: toleranceMs,
		multiplier:  multiplier,
		log:         logger.GetLogger(),
	}, nil
}

// Reconcile pairs records from the two series whose timestamps fall within the
// tolerance. The matcher is a greedy two-pointer walk over the sorted inputs:
// each side's pointer only moves forward, so every record lands in at most one
// pair and the pairs come out ordered. A candidate that misses the tolerance
// advances whichever side is behind.
//
// Both inputs must be sorted ascending; an unsorted series is a precondition
// violation, not data to be repaired here.
func (r *Reconciler) Reconcile(a, b models.RecordSeries) ([]models.AlignedPair, error) {
	if !a.IsSorted() {
		return nil, fmt.Errorf("series %s/%s: %w", a.Venue, a.Symbol, models.ErrUnsortedSeries)
	}
	if !b.IsSorted() {
		return nil, fmt.Errorf("series %s/%s: %w", b.Venue, b.Symbol, models.ErrUnsortedSeries)
	}

	var pairs []models.AlignedPair
	i, j := 0, 0
	for i < len(a.Records) && j < len(b.Records) {
		ra, rb := a.Records[i], b.Records[j]
		diff := ra.TimestampMs - rb.TimestampMs
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff <= r.toleranceMs:
			pairs = append(pairs, models.AlignedPair{A: ra, B: rb})
			i++
			j++
		case ra.TimestampMs < rb.TimestampMs:
			i++
		default:
			j++
		}
	}

	r.log.WithComponent("reconciler").WithFields(logger.Fields{
		"venue_a":      a.Venue,
		"venue_b":      b.Venue,
		"records_a":    a.Len(),
		"records_b":    b.Len(),
		"pairs":        len(pairs),
		"tolerance_ms": r.toleranceMs,
	}).Info("series reconciled")

	return pairs, nil
}

// Annualize computes the yearly-equivalent percentage spread for one aligned
// pair. Venue A's rate is scaled by the period multiplier before differencing
// so both sides describe the same settlement interval.
func (r *Reconciler) Annualize(pair models.AlignedPair) float64 {
	periodDiff := pair.A.Rate*r.multiplier - pair.B.Rate
	periodsPerYear := hoursPerDay / r.multiplier * daysPerYear
	return periodDiff * periodsPerYear * fractionToPct
}

// BuildResult assembles the externally consumed comparison table from the
// aligned pairs. Incompleteness flags carry through from retrieval so a
// partial run is never presented as complete.
func (r *Reconciler) BuildResult(a, b models.RecordSeries, pairs []models.AlignedPair) models.ReconciliationResult {
	result := models.ReconciliationResult{
		RunID:       uuid.New().String(),
		SymbolA:     a.Symbol,
		SymbolB:     b.Symbol,
		Pairs:       pairs,
		IncompleteA: a.Incomplete,
		IncompleteB: b.Incomplete,
	}

	result.Rows = make([]models.ComparisonRow, 0, len(pairs))
	for _, pair := range pairs {
		result.Rows = append(result.Rows, models.ComparisonRow{
			TimestampA:     models.FormatTimestampMs(pair.A.TimestampMs),
			TimestampB:     models.FormatTimestampMs(pair.B.TimestampMs),
			RateAPct:       pair.A.Rate * fractionToPct,
			AdjustedAPct:   pair.A.Rate * r.multiplier * fractionToPct,
			RateBPct:       pair.B.Rate * fractionToPct,
			AnnualizedDiff: r.Annualize(pair),
		})
	}

	if len(pairs) > 0 {
		first, last := pairs[0], pairs[len(pairs)-1]
		result.CoveredStartMs = minInt64(first.A.TimestampMs, first.B.TimestampMs)
		result.CoveredEndMs = maxInt64(last.A.TimestampMs, last.B.TimestampMs)
	}

	logger.LogDataFlowEntry(r.log.WithComponent("reconciler"), "aligned_pairs", "comparison_table", len(result.Rows), "rows")

	return result
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
