package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"fundingflow/config"
	"fundingflow/logger"
	"fundingflow/models"
	"fundingflow/reader"

	"golang.org/x/time/rate"
)

const defaultInfoURL = "https://api.hyperliquid.xyz/info"

func init() {
	reader.Register("hyperliquid", func(cfg *config.Config, symbol string) (reader.Venue, error) {
		return NewReader(cfg, symbol)
	})
}

// Reader fetches funding-rate and candle history from the Hyperliquid info
// endpoint. The API is full-page-terminated: a response shorter than the
// server page cap means history is exhausted.
type Reader struct {
	config  *config.Config
	client  *http.Client
	url     string
	coin    string
	limiter *rate.Limiter
	log     *logger.Log
}

// NewReader creates a Hyperliquid reader bound to one coin.
func NewReader(cfg *config.Config, coin string) (*Reader, error) {
	if coin == "" {
		return nil, &models.InvalidParameterError{Param: "symbol", Reason: "hyperliquid coin is required"}
	}

	venueCfg := cfg.Venues.Hyperliquid
	url := venueCfg.URL
	if url == "" {
		url = defaultInfoURL
	}

	rl := venueCfg.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}

	r := &Reader{
		config:  cfg,
		client:  &http.Client{Timeout: venueCfg.Timeout},
		url:     url,
		coin:    coin,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}

	r.log.WithComponent("hyperliquid_reader").WithFields(logger.Fields{
		"coin":    coin,
		"url":     url,
		"timeout": venueCfg.Timeout,
	}).Info("hyperliquid reader initialized")

	return r, nil
}

// Venue implements reader.FundingSource.
func (r *Reader) Venue() string { return "hyperliquid" }

// Symbol implements reader.FundingSource.
func (r *Reader) Symbol() string { return r.coin }

// PaginationMode implements reader.FundingSource.
func (r *Reader) PaginationMode() reader.PaginationMode { return reader.FullPageTerminated }

type fundingHistoryRequest struct {
	Type      string `json:"type"`
	Coin      string `json:"coin"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

type fundingHistoryEntry struct {
	Coin        string `json:"coin"`
	FundingRate string `json:"fundingRate"`
	Premium     string `json:"premium"`
	Time        int64  `json:"time"`
}

// FetchFundingPage requests one page of funding history for [startMs, endMs].
// The server caps page size itself; the limit argument only informs the
// caller's exhaustion check.
func (r *Reader) FetchFundingPage(ctx context.Context, startMs, endMs int64, limit int) ([]models.FundingRecord, error) {
	payload := fundingHistoryRequest{
		Type:      "fundingHistory",
		Coin:      r.coin,
		StartTime: startMs,
		EndTime:   endMs,
	}

	body, err := r.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	var entries []fundingHistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("hyperliquid funding history payload: %w", err)
	}

	records := make([]models.FundingRecord, 0, len(entries))
	for _, e := range entries {
		value, err := strconv.ParseFloat(e.FundingRate, 64)
		if err != nil {
			return nil, fmt.Errorf("hyperliquid funding rate %q for %s: %w", e.FundingRate, e.Coin, err)
		}
		records = append(records, models.FundingRecord{
			Venue:       "hyperliquid",
			Symbol:      e.Coin,
			TimestampMs: e.Time,
			Rate:        value,
		})
	}
	return records, nil
}

type candleSnapshotRequest struct {
	Type string         `json:"type"`
	Req  candleSnapshot `json:"req"`
}

type candleSnapshot struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

type candleEntry struct {
	OpenTime int64  `json:"t"`
	Symbol   string `json:"s"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
}

// FetchKlines requests one page of candle history.
func (r *Reader) FetchKlines(ctx context.Context, interval string, startMs, endMs int64, _ int) ([]models.Kline, error) {
	payload := candleSnapshotRequest{
		Type: "candleSnapshot",
		Req: candleSnapshot{
			Coin:      r.coin,
			Interval:  interval,
			StartTime: startMs,
			EndTime:   endMs,
		},
	}

	body, err := r.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	var entries []candleEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("hyperliquid candle payload: %w", err)
	}

	out := make([]models.Kline, 0, len(entries))
	for _, e := range entries {
		kline := models.Kline{
			Venue:       "hyperliquid",
			Symbol:      e.Symbol,
			TimestampMs: e.OpenTime,
		}
		var err error
		if kline.Open, err = strconv.ParseFloat(e.Open, 64); err != nil {
			return nil, fmt.Errorf("hyperliquid candle open %q: %w", e.Open, err)
		}
		if kline.High, err = strconv.ParseFloat(e.High, 64); err != nil {
			return nil, fmt.Errorf("hyperliquid candle high %q: %w", e.High, err)
		}
		if kline.Low, err = strconv.ParseFloat(e.Low, 64); err != nil {
			return nil, fmt.Errorf("hyperliquid candle low %q: %w", e.Low, err)
		}
		if kline.Close, err = strconv.ParseFloat(e.Close, 64); err != nil {
			return nil, fmt.Errorf("hyperliquid candle close %q: %w", e.Close, err)
		}
		if kline.Volume, err = strconv.ParseFloat(e.Volume, 64); err != nil {
			return nil, fmt.Errorf("hyperliquid candle volume %q: %w", e.Volume, err)
		}
		out = append(out, kline)
	}
	return out, nil
}

// post issues a JSON request against the info endpoint and returns the raw
// response body. Non-2xx statuses are transport failures.
func (r *Reader) post(ctx context.Context, payload interface{}) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hyperliquid API error: %s %s", resp.Status, string(body))
	}

	return body, nil
}

// PlaceOrder is declared for a future execution layer; Hyperliquid trading is
// not wired into this service.
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
