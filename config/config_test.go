package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

const minimalYAML = `fundingflow:
  name: "TestApp"
  version: "1.0"
venues:
  binance:
    url: "https://fapi.binance.com"
    page_limit: 1000
  hyperliquid:
    url: "https://api.hyperliquid.xyz/info"
    page_limit: 500
retrieval:
  max_consecutive_failures: 5
reconcile:
  tolerance_ms: 300000
  period_multiplier: 8
storage:
  s3:
    enabled: false
`

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	path := writeTempConfig(t, minimalYAML)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Fundingflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Fundingflow.Name)
	}
	if cfg.Reconcile.ToleranceMs != 300000 {
		t.Errorf("unexpected tolerance: %d", cfg.Reconcile.ToleranceMs)
	}
	if cfg.Reconcile.PeriodMultiplier != 8 {
		t.Errorf("unexpected multiplier: %f", cfg.Reconcile.PeriodMultiplier)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	path := writeTempConfig(t, minimalYAML)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Retrieval.InterRequestDelay != 200*time.Millisecond {
		t.Errorf("unexpected inter_request_delay default: %v", cfg.Retrieval.InterRequestDelay)
	}
	if cfg.Retrieval.FailureCooldown != 2*time.Second {
		t.Errorf("unexpected failure_cooldown default: %v", cfg.Retrieval.FailureCooldown)
	}
	if cfg.Retrieval.GapProbe != 24*time.Hour {
		t.Errorf("unexpected gap_probe default: %v", cfg.Retrieval.GapProbe)
	}
	if cfg.Venues.Binance.Timeout != 10*time.Second {
		t.Errorf("unexpected binance timeout default: %v", cfg.Venues.Binance.Timeout)
	}
}

func TestLoadConfigRejectsBadMultiplier(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	content := `fundingflow:
  name: "TestApp"
  version: "1.0"
venues:
  binance:
    page_limit: 1000
  hyperliquid:
    page_limit: 500
reconcile:
  tolerance_ms: 300000
  period_multiplier: 0
`
	path := writeTempConfig(t, content)
	defer os.Remove(path)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for period_multiplier = 0")
	}
}

func TestLoadConfigRejectsZeroPageLimit(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	content := `fundingflow:
  name: "TestApp"
  version: "1.0"
venues:
  binance:
    page_limit: 0
  hyperliquid:
    page_limit: 500
reconcile:
  tolerance_ms: 300000
  period_multiplier: 8
`
	path := writeTempConfig(t, content)
	defer os.Remove(path)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for page_limit = 0")
	}
}

func TestProductionRequiresOutput(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	path := writeTempConfig(t, minimalYAML)
	defer os.Remove(path)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error when production config lacks any output")
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	cases := []struct {
		env  string
		want string
	}{
		{"", environmentDevelopment},
		{"prod", environmentProduction},
		{"stag", environmentStaging},
		{"production", environmentProduction},
	}
	for _, c := range cases {
		t.Setenv("APP_ENV", c.env)
		if got := AppEnvironment(); got != c.want {
			t.Errorf("AppEnvironment(%q) = %q, want %q", c.env, got, c.want)
		}
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
