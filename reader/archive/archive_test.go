package archive

import (
	"testing"
	"time"

	"fundingflow/logger"
)

func TestSnapshotKey(t *testing.T) {
	r := &Reader{prefix: "orderbook", log: logger.GetLogger()}

	at := time.Date(2024, 3, 7, 13, 45, 0, 0, time.UTC)
	got := r.SnapshotKey("binance", "ENAUSDT", at)
	want := "orderbook/binance/ENAUSDT/20240307/13.json.gz"
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}
}

func TestSnapshotKeyNoPrefix(t *testing.T) {
	r := &Reader{log: logger.GetLogger()}

	at := time.Date(2024, 3, 7, 5, 0, 0, 0, time.UTC)
	got := r.SnapshotKey("hyperliquid", "ENA", at)
	want := "hyperliquid/ENA/20240307/05.json.gz"
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}
}

func TestSnapshotKeyNormalizesToUTC(t *testing.T) {
	r := &Reader{log: logger.GetLogger()}

	loc := time.FixedZone("UTC+3", 3*3600)
	at := time.Date(2024, 3, 7, 2, 0, 0, 0, loc) // 23:00 the previous day in UTC
	got := r.SnapshotKey("binance", "BTCUSDT", at)
	want := "binance/BTCUSDT/20240306/23.json.gz"
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}
}
