package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fundingflow FundingflowConfig `yaml:"fundingflow"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Venues      VenuesConfig      `yaml:"venues"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Storage     StorageConfig     `yaml:"storage"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Output      OutputConfig      `yaml:"output"`
}

type FundingflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type VenuesConfig struct {
	Binance     BinanceVenueConfig     `yaml:"binance"`
	Hyperliquid HyperliquidVenueConfig `yaml:"hyperliquid"`
}

type BinanceVenueConfig struct {
	URL            string               `yaml:"url"`
	PageLimit      int                  `yaml:"page_limit"`
	Timeout        time.Duration        `yaml:"timeout"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type HyperliquidVenueConfig struct {
	URL       string          `yaml:"url"`
	PageLimit int             `yaml:"page_limit"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// RetrievalConfig carries the paginated retrieval knobs. They are explicit
// configuration rather than package constants so edge values can be exercised
// deterministically in tests.
type RetrievalConfig struct {
	InterRequestDelay      time.Duration `yaml:"inter_request_delay"`
	FailureCooldown        time.Duration `yaml:"failure_cooldown"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	GapProbe               time.Duration `yaml:"gap_probe"`
}

type ReconcileConfig struct {
	ToleranceMs      int64   `yaml:"tolerance_ms"`
	PeriodMultiplier float64 `yaml:"period_multiplier"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	KeyPrefix       string `yaml:"key_prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// ArchiveConfig points at the read-only order-book snapshot archive. The
// archive shares the storage credentials but lives in its own bucket/prefix.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

type OutputConfig struct {
	CSVPath string `yaml:"csv_path"`
}

const (
	defaultInterRequestDelay = 200 * time.Millisecond
	defaultFailureCooldown   = 2 * time.Second
	defaultGapProbe          = 24 * time.Hour
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Retrieval.InterRequestDelay <= 0 {
		cfg.Retrieval.InterRequestDelay = defaultInterRequestDelay
	}
	if cfg.Retrieval.FailureCooldown <= 0 {
		cfg.Retrieval.FailureCooldown = defaultFailureCooldown
	}
	if cfg.Retrieval.GapProbe <= 0 {
		cfg.Retrieval.GapProbe = defaultGapProbe
	}
	if cfg.Venues.Binance.Timeout <= 0 {
		cfg.Venues.Binance.Timeout = 10 * time.Second
	}
	if cfg.Venues.Hyperliquid.Timeout <= 0 {
		cfg.Venues.Hyperliquid.Timeout = 10 * time.Second
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Fundingflow.Name == "" {
		return fmt.Errorf("fundingflow.name is required")
	}

	if cfg.Fundingflow.Version == "" {
		return fmt.Errorf("fundingflow.version is required")
	}

	if cfg.Venues.Binance.PageLimit <= 0 {
		return fmt.Errorf("venues.binance.page_limit must be greater than 0")
	}
	if cfg.Venues.Hyperliquid.PageLimit <= 0 {
		return fmt.Errorf("venues.hyperliquid.page_limit must be greater than 0")
	}

	if cfg.Retrieval.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("retrieval.max_consecutive_failures must not be negative")
	}

	if cfg.Reconcile.ToleranceMs < 0 {
		return fmt.Errorf("reconcile.tolerance_ms must not be negative")
	}
	if cfg.Reconcile.PeriodMultiplier <= 0 {
		return fmt.Errorf("reconcile.period_multiplier must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	if cfg.Archive.Enabled && cfg.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when the archive is enabled")
	}

	if IsProductionLike(AppEnvironment()) && cfg.Output.CSVPath == "" && !cfg.Storage.S3.Enabled {
		return fmt.Errorf("output.csv_path or storage.s3 must be configured in %s", AppEnvironment())
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
