package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fundingflow/config"
	"fundingflow/models"
	"fundingflow/reader"
)

func minimalConfig(url string) *config.Config {
	return &config.Config{
		Venues: config.VenuesConfig{
			Binance: config.BinanceVenueConfig{
				URL:       url,
				PageLimit: 1000,
				Timeout:   time.Second,
				RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10},
				ConnectionPool: config.ConnectionPoolConfig{
					MaxIdleConns:    1,
					MaxConnsPerHost: 1,
					IdleConnTimeout: time.Second,
				},
			},
		},
	}
}

func TestNewReaderRequiresSymbol(t *testing.T) {
	if _, err := NewReader(minimalConfig(""), ""); !models.IsInvalidParameter(err) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
}

func TestFetchFundingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/fundingRate" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("symbol") != "ENAUSDT" {
			t.Errorf("unexpected symbol %s", q.Get("symbol"))
		}
		if q.Get("startTime") != "1000" || q.Get("endTime") != "9000" {
			t.Errorf("unexpected window %s-%s", q.Get("startTime"), q.Get("endTime"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"ENAUSDT","fundingTime":2000,"fundingRate":"0.00010000","markPrice":"1.0"},
			{"symbol":"ENAUSDT","fundingTime":5000,"fundingRate":"-0.00020000","markPrice":"1.1"}
		]`))
	}))
	defer srv.Close()

	r, err := NewReader(minimalConfig(srv.URL), "ENAUSDT")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	records, err := r.FetchFundingPage(context.Background(), 1000, 9000, 1000)
	if err != nil {
		t.Fatalf("FetchFundingPage: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].TimestampMs != 2000 || records[0].Rate != 0.0001 {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].TimestampMs != 5000 || records[1].Rate != -0.0002 {
		t.Errorf("record 1 = %+v", records[1])
	}
	if records[0].Venue != "binance" {
		t.Errorf("venue = %q, want binance", records[0].Venue)
	}
}

func TestFetchFundingPageMalformedRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"ENAUSDT","fundingTime":2000,"fundingRate":"not-a-number"}]`))
	}))
	defer srv.Close()

	r, err := NewReader(minimalConfig(srv.URL), "ENAUSDT")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.FetchFundingPage(context.Background(), 0, 9000, 1000); err == nil {
		t.Fatal("expected error for malformed rate payload")
	}
}

func TestFetchFundingPageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code":-1003,"msg":"Too many requests"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r, err := NewReader(minimalConfig(srv.URL), "ENAUSDT")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.FetchFundingPage(context.Background(), 0, 9000, 1000); err == nil {
		t.Fatal("expected transport error for non-2xx status")
	}
}

func TestTradingCapabilitiesNotSupported(t *testing.T) {
	r, err := NewReader(minimalConfig(""), "BTCUSDT")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.PlaceOrder(context.Background(), models.OrderRequest{}); !errors.Is(err, models.ErrNotSupported) {
		t.Errorf("PlaceOrder err = %v, want ErrNotSupported", err)
	}
	if _, err := r.Position(context.Background(), "BTCUSDT"); !errors.Is(err, models.ErrNotSupported) {
		t.Errorf("Position err = %v, want ErrNotSupported", err)
	}
	if _, err := r.ClosePosition(context.Background(), "BTCUSDT"); !errors.Is(err, models.ErrNotSupported) {
		t.Errorf("ClosePosition err = %v, want ErrNotSupported", err)
	}
}

func TestReaderImplementsVenue(t *testing.T) {
	var _ reader.Venue = (*Reader)(nil)

	r, err := NewReader(minimalConfig(""), "BTCUSDT")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.PaginationMode() != reader.CursorAdvance {
		t.Errorf("mode = %v, want cursor advance", r.PaginationMode())
	}
}
