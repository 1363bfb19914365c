package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"fundingflow/config"
	"fundingflow/logger"
	"fundingflow/models"
	"fundingflow/reader"

	futures "github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

func init() {
	reader.Register("binance", func(cfg *config.Config, symbol string) (reader.Venue, error) {
		return NewReader(cfg, symbol)
	})
}

// Reader fetches funding-rate and kline history from Binance USDT-M futures
// through the go-binance client. Binance pages are cursor-advancing: the
// walk continues until the cursor passes the window end.
type Reader struct {
	config  *config.Config
	client  *futures.Client
	symbol  string
	limiter *rate.Limiter
	log     *logger.Log
}

// NewReader creates a Binance reader bound to one symbol.
func NewReader(cfg *config.Config, symbol string) (*Reader, error) {
	if symbol == "" {
		return nil, &models.InvalidParameterError{Param: "symbol", Reason: "binance symbol is required"}
	}

	log := logger.GetLogger()
	venueCfg := cfg.Venues.Binance

	transport := &http.Transport{
		MaxIdleConns:        venueCfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: venueCfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     venueCfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     venueCfg.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   venueCfg.Timeout,
	}

	client := futures.NewClient("", "")
	client.HTTPClient = httpClient

	if venueCfg.URL != "" {
		if parsed, err := url.Parse(venueCfg.URL); err == nil && parsed.Host != "" {
			client.SetApiEndpoint(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host))
		}
	}

	r := &Reader{
		config:  cfg,
		client:  client,
		symbol:  symbol,
		limiter: newLimiter(venueCfg.RateLimit),
		log:     log,
	}

	log.WithComponent("binance_reader").WithFields(logger.Fields{
		"symbol":  symbol,
		"timeout": venueCfg.Timeout,
	}).Info("binance reader initialized")

	return r, nil
}

func newLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Venue implements reader.FundingSource.
func (r *Reader) Venue() string { return "binance" }

// Symbol implements reader.FundingSource.
func (r *Reader) Symbol() string { return r.symbol }

// PaginationMode implements reader.FundingSource.
func (r *Reader) PaginationMode() reader.PaginationMode { return reader.CursorAdvance }

// FetchFundingPage requests one page of funding-rate history for
// [startMs, endMs], capped at limit records.
func (r *Reader) FetchFundingPage(ctx context.Context, startMs, endMs int64, limit int) ([]models.FundingRecord, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	rates, err := r.client.NewFundingRateService().
		Symbol(r.symbol).
		StartTime(startMs).
		EndTime(endMs).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance funding rate request: %w", err)
	}

	records := make([]models.FundingRecord, 0, len(rates))
	for _, fr := range rates {
		value, err := strconv.ParseFloat(fr.FundingRate, 64)
		if err != nil {
			return nil, fmt.Errorf("binance funding rate %q for %s: %w", fr.FundingRate, fr.Symbol, err)
		}
		records = append(records, models.FundingRecord{
			Venue:       "binance",
			Symbol:      fr.Symbol,
			TimestampMs: fr.FundingTime,
			Rate:        value,
		})
	}
	return records, nil
}

// FetchKlines requests one page of OHLCV history.
func (r *Reader) FetchKlines(ctx context.Context, interval string, startMs, endMs int64, limit int) ([]models.Kline, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	klines, err := r.client.NewKlinesService().
		Symbol(r.symbol).
		Interval(interval).
		StartTime(startMs).
		EndTime(endMs).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines request: %w", err)
	}

	out := make([]models.Kline, 0, len(klines))
	for _, k := range klines {
		kline := models.Kline{
			Venue:       "binance",
			Symbol:      r.symbol,
			TimestampMs: k.OpenTime,
		}
		var err error
		if kline.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
			return nil, fmt.Errorf("binance kline open %q: %w", k.Open, err)
		}
		if kline.High, err = strconv.ParseFloat(k.High, 64); err != nil {
			return nil, fmt.Errorf("binance kline high %q: %w", k.High, err)
		}
		if kline.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
			return nil, fmt.Errorf("binance kline low %q: %w", k.Low, err)
		}
		if kline.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
			return nil, fmt.Errorf("binance kline close %q: %w", k.Close, err)
		}
		if kline.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
			return nil, fmt.Errorf("binance kline volume %q: %w", k.Volume, err)
		}
		out = append(out, kline)
	}
	return out, nil
}

// PlaceOrder is declared for a future execution layer; Binance trading is not
// wired into this service.
func (r *Reader) PlaceOrder(context.Context, models.OrderRequest) (models.Order, error) {
	return models.Order{}, models.ErrNotSupported
}

// Position is declared for a future execution layer.
func (r *Reader) Position(context.Context, string) (models.Position, error) {
	return models.Position{}, models.ErrNotSupported
}

// ClosePosition is declared for a future execution layer.
func (r *Reader) ClosePosition(context.Context, string) (models.Order, error) {
	return models.Order{}, models.ErrNotSupported
}
