package reader

import (
	"context"
	"sort"
	"time"

	"fundingflow/logger"
	"fundingflow/models"
)

// Params carries the retrieval knobs. All values are explicit per call; the
// Retriever has no package-level tuning constants.
type Params struct {
	PageLimit              int
	InterRequestDelay      time.Duration
	FailureCooldown        time.Duration
	GapProbe               time.Duration
	MaxConsecutiveFailures int
}

const defaultGapProbe = 24 * time.Hour

// retrievalState names the phases of the pagination loop so the termination
// conditions stay auditable: Fetching requests the next page, GapSkipping
// probes past an empty stretch of history, Backoff waits out a transport
// failure, Exhausted ends the walk with the retry budget spent, Done ends it
// normally.
type retrievalState int

const (
	stateFetching retrievalState = iota
	stateGapSkipping
	stateBackoff
	stateExhausted
	stateDone
)

func (s retrievalState) String() string {
	switch s {
	case stateFetching:
		return "fetching"
	case stateGapSkipping:
		return "gap_skipping"
	case stateBackoff:
		return "backoff"
	case stateExhausted:
		return "exhausted"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Retriever drives a FundingSource to exhaustion over a bounded time window,
// turning a rate-limited, possibly-gappy paged API into a complete sorted
// series. A fresh Retriever starts every run with a zeroed failure counter.
type Retriever struct {
	source FundingSource
	params Params
	log    *logger.Log

	// sleep is injected so tests can run the loop without wall-clock waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetriever creates a Retriever for the given source. GapProbe defaults to
// one day when unset, matching the original forward-probe interval.
func NewRetriever(source FundingSource, params Params) *Retriever {
	if params.GapProbe <= 0 {
		params.GapProbe = defaultGapProbe
	}
	return &Retriever{
		source: source,
		params: params,
		log:    logger.GetLogger(),
		sleep:  sleepContext,
	}
}

// Retrieve walks [startMs, endMs] and returns the accumulated series, sorted
// ascending and de-duplicated by exact timestamp (last seen wins).
//
// Empty pages are data gaps, not errors: the cursor probes forward by GapProbe
// without consuming the retry budget. Transport failures are retried at the
// same cursor after FailureCooldown; once the consecutive-failure count
// exceeds MaxConsecutiveFailures the partial series is returned flagged
// Incomplete together with a RetryBudgetExhaustedError.
func (r *Retriever) Retrieve(ctx context.Context, startMs, endMs int64) (models.RecordSeries, error) {
	series := models.RecordSeries{
		Venue:   r.source.Venue(),
		Symbol:  r.source.Symbol(),
		StartMs: startMs,
		EndMs:   endMs,
	}

	if startMs > endMs {
		return series, &models.InvalidParameterError{Param: "start_time_ms", Reason: "start must not exceed end"}
	}
	if r.params.PageLimit <= 0 {
		return series, &models.InvalidParameterError{Param: "page_limit", Reason: "must be greater than 0"}
	}

	log := r.log.WithComponent("retriever").WithFields(logger.Fields{
		"venue":  series.Venue,
		"symbol": series.Symbol,
		"mode":   r.source.PaginationMode().String(),
	})
	log.WithFields(logger.Fields{"start_ms": startMs, "end_ms": endMs}).Info("starting paginated retrieval")

	var (
		acc      []models.FundingRecord
		cursor   = startMs
		failures = 0
		lastErr  error
		st       = stateFetching
		pages    = 0
	)

	gapProbeMs := r.params.GapProbe.Milliseconds()

	for st != stateDone && st != stateExhausted {
		if err := ctx.Err(); err != nil {
			series.Records = sortDedupe(acc)
			series.Incomplete = true
			return series, err
		}

		switch st {
		case stateFetching:
			if cursor > endMs {
				st = stateDone
				continue
			}

			start := time.Now()
			page, err := r.source.FetchFundingPage(ctx, cursor, endMs, r.params.PageLimit)
			if err != nil {
				lastErr = err
				failures++
				log.WithError(err).WithFields(logger.Fields{
					"cursor_ms": cursor,
					"failures":  failures,
				}).Warn("page fetch failed")
				if failures > r.params.MaxConsecutiveFailures {
					st = stateExhausted
				} else {
					st = stateBackoff
				}
				continue
			}
			logger.LogPerformanceEntry(log, "retriever", "fetch_page", time.Since(start), logger.Fields{
				"cursor_ms": cursor,
				"records":   len(page),
			})

			failures = 0
			pages++

			if len(page) == 0 {
				st = stateGapSkipping
				continue
			}

			acc = append(acc, page...)
			last := page[len(page)-1].TimestampMs

			if r.source.PaginationMode() == FullPageTerminated && len(page) < r.params.PageLimit {
				st = stateDone
				continue
			}

			cursor = last + 1
			if cursor > endMs {
				st = stateDone
				continue
			}
			if r.params.InterRequestDelay > 0 {
				if err := r.sleep(ctx, r.params.InterRequestDelay); err != nil {
					series.Records = sortDedupe(acc)
					series.Incomplete = true
					return series, err
				}
			}

		case stateGapSkipping:
			log.WithFields(logger.Fields{
				"cursor_ms": cursor,
				"probe_ms":  gapProbeMs,
			}).Debug("empty page, probing past data gap")
			cursor += gapProbeMs
			st = stateFetching

		case stateBackoff:
			if err := r.sleep(ctx, r.params.FailureCooldown); err != nil {
				series.Records = sortDedupe(acc)
				series.Incomplete = true
				return series, err
			}
			st = stateFetching
		}
	}

	series.Records = sortDedupe(acc)

	if st == stateExhausted {
		series.Incomplete = true
		log.WithFields(logger.Fields{
			"attempts": failures,
			"records":  len(series.Records),
		}).Warn("retry budget exhausted, returning partial series")
		return series, &models.RetryBudgetExhaustedError{Attempts: failures, LastErr: lastErr}
	}

	logger.LogDataFlowEntry(log, series.Venue+"_api", "record_series", len(series.Records), "funding_records")
	log.WithFields(logger.Fields{
		"pages":    pages,
		"records":  len(series.Records),
		"first_ms": series.FirstMs(),
		"last_ms":  series.LastMs(),
	}).Info("retrieval complete")

	return series, nil
}

// sortDedupe orders records by timestamp and collapses exact-timestamp
// duplicates, keeping the last occurrence.
func sortDedupe(records []models.FundingRecord) []models.FundingRecord {
	if len(records) == 0 {
		return records
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TimestampMs < records[j].TimestampMs
	})

	out := records[:0]
	for _, rec := range records {
		if n := len(out); n > 0 && out[n-1].TimestampMs == rec.TimestampMs {
			out[n-1] = rec
			continue
		}
		out = append(out, rec)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
