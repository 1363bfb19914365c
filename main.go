package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundingflow/config"
	"fundingflow/logger"
	"fundingflow/models"
	"fundingflow/processor"
	"fundingflow/reader"
	_ "fundingflow/reader/binance"
	_ "fundingflow/reader/hyperliquid"
	"fundingflow/writer"
)

const dateLayout = "2006-01-02"

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	coin := flag.String("coin", "ENA", "Hyperliquid coin name")
	binanceSymbol := flag.String("binance-symbol", "", "Binance futures symbol (defaults to <coin>USDT)")
	days := flag.Int("days", 7, "Days of history ending now, ignored when -start is given")
	startDate := flag.String("start", "", "Window start date (YYYY-MM-DD, UTC)")
	endDate := flag.String("end", "", "Window end date (YYYY-MM-DD, UTC), defaults to now")
	multiplier := flag.Float64("multiplier", 0, "Settlement period multiplier, overrides config when > 0")
	csvOut := flag.String("out", "", "CSV output path, overrides config when set")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Fundingflow.Name,
		"version": cfg.Fundingflow.Version,
	}).Info("starting fundingflow")

	symbolB := *binanceSymbol
	if symbolB == "" {
		symbolB = *coin + "USDT"
	}

	startMs, endMs, err := resolveWindow(*startDate, *endDate, *days)
	if err != nil {
		log.WithError(err).Error("invalid time window")
		os.Exit(1)
	}

	periodMultiplier := cfg.Reconcile.PeriodMultiplier
	if *multiplier > 0 {
		periodMultiplier = *multiplier
	}

	hlVenue, err := reader.New("hyperliquid", cfg, *coin)
	if err != nil {
		log.WithError(err).Error("failed to create hyperliquid reader")
		os.Exit(1)
	}
	bnVenue, err := reader.New("binance", cfg, symbolB)
	if err != nil {
		log.WithError(err).Error("failed to create binance reader")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	hlRetriever := reader.NewRetriever(hlVenue, reader.Params{
		PageLimit:              cfg.Venues.Hyperliquid.PageLimit,
		InterRequestDelay:      cfg.Retrieval.InterRequestDelay,
		FailureCooldown:        cfg.Retrieval.FailureCooldown,
		GapProbe:               cfg.Retrieval.GapProbe,
		MaxConsecutiveFailures: cfg.Retrieval.MaxConsecutiveFailures,
	})
	bnRetriever := reader.NewRetriever(bnVenue, reader.Params{
		PageLimit:              cfg.Venues.Binance.PageLimit,
		InterRequestDelay:      cfg.Retrieval.InterRequestDelay,
		FailureCooldown:        cfg.Retrieval.FailureCooldown,
		GapProbe:               cfg.Retrieval.GapProbe,
		MaxConsecutiveFailures: cfg.Retrieval.MaxConsecutiveFailures,
	})

	// The two venue walks are independent; run them concurrently and join
	// before reconciliation.
	var (
		wg       sync.WaitGroup
		hlSeries models.RecordSeries
		bnSeries models.RecordSeries
		hlErr    error
		bnErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		hlSeries, hlErr = hlRetriever.Retrieve(ctx, startMs, endMs)
	}()
	go func() {
		defer wg.Done()
		bnSeries, bnErr = bnRetriever.Retrieve(ctx, startMs, endMs)
	}()
	wg.Wait()

	// An exhausted retry budget still yields a usable partial series; anything
	// else is fatal.
	if hlErr != nil && !models.IsRetryBudgetExhausted(hlErr) {
		log.WithError(hlErr).Error("hyperliquid retrieval failed")
		os.Exit(1)
	}
	if bnErr != nil && !models.IsRetryBudgetExhausted(bnErr) {
		log.WithError(bnErr).Error("binance retrieval failed")
		os.Exit(1)
	}

	reconciler, err := processor.NewReconciler(cfg.Reconcile.ToleranceMs, periodMultiplier)
	if err != nil {
		log.WithError(err).Error("failed to create reconciler")
		os.Exit(1)
	}

	pairs, err := reconciler.Reconcile(hlSeries, bnSeries)
	if err != nil {
		log.WithError(err).Error("reconciliation failed")
		os.Exit(1)
	}

	result := reconciler.BuildResult(hlSeries, bnSeries, pairs)
	if result.Incomplete() {
		log.WithFields(logger.Fields{
			"incomplete_a": result.IncompleteA,
			"incomplete_b": result.IncompleteB,
		}).Warn("comparison built from partial retrieval")
	}

	log.WithFields(logger.Fields{
		"run_id":     result.RunID,
		"pairs":      len(result.Pairs),
		"records_a":  hlSeries.Len(),
		"records_b":  bnSeries.Len(),
		"covered_ms": result.CoveredEndMs - result.CoveredStartMs,
	}).Info("comparison complete")
	log.LogMetric("main", "aligned_pairs", len(result.Pairs), "gauge", nil)

	csvPath := cfg.Output.CSVPath
	if *csvOut != "" {
		csvPath = *csvOut
	}
	if csvPath != "" {
		if err := writer.WriteCSV(csvPath, result); err != nil {
			log.WithError(err).Error("failed to write csv output")
			os.Exit(1)
		}
	}

	if cfg.Storage.S3.Enabled {
		s3Writer, err := writer.NewS3Writer(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create S3 writer")
			os.Exit(1)
		}
		if err := s3Writer.Write(ctx, result); err != nil {
			log.WithError(err).Error("failed to upload result")
			os.Exit(1)
		}
	}

	log.Info("fundingflow finished")
}

// resolveWindow turns the date flags into a [startMs, endMs] pair. An explicit
// start date wins over the rolling -days window.
func resolveWindow(startDate, endDate string, days int) (int64, int64, error) {
	end := time.Now().UTC()
	if endDate != "" {
		parsed, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return 0, 0, &models.InvalidParameterError{Param: "end", Reason: err.Error()}
		}
		end = parsed
	}

	var start time.Time
	if startDate != "" {
		parsed, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return 0, 0, &models.InvalidParameterError{Param: "start", Reason: err.Error()}
		}
		start = parsed
	} else {
		if days <= 0 {
			return 0, 0, &models.InvalidParameterError{Param: "days", Reason: "must be greater than 0"}
		}
		start = end.AddDate(0, 0, -days)
	}

	if !start.Before(end) {
		return 0, 0, &models.InvalidParameterError{Param: "start", Reason: "start must precede end"}
	}

	return start.UnixMilli(), end.UnixMilli(), nil
}
