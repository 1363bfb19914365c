package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "fundingflow/config"
	"fundingflow/logger"
	"fundingflow/models"
)

type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, io.EOF }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// comparisonRecord defines the schema for comparison rows stored in parquet.
type comparisonRecord struct {
	RunID          string  `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SymbolA        string  `parquet:"name=symbol_a, type=BYTE_ARRAY, convertedtype=UTF8"`
	SymbolB        string  `parquet:"name=symbol_b, type=BYTE_ARRAY, convertedtype=UTF8"`
	TimestampA     int64   `parquet:"name=timestamp_a, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	TimestampB     int64   `parquet:"name=timestamp_b, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	RateAPct       float64 `parquet:"name=rate_a_pct, type=DOUBLE"`
	AdjustedAPct   float64 `parquet:"name=adjusted_a_pct, type=DOUBLE"`
	RateBPct       float64 `parquet:"name=rate_b_pct, type=DOUBLE"`
	AnnualizedDiff float64 `parquet:"name=annualized_diff_pct, type=DOUBLE"`
	Incomplete     bool    `parquet:"name=incomplete, type=BOOLEAN"`
}

// S3Writer persists comparison results to S3 as snappy-compressed parquet
// files, one object per run.
type S3Writer struct {
	cfg      *appconfig.Config
	s3Client *s3.Client
	bucket   string
	log      *logger.Log
	now      func() time.Time
}

// NewS3Writer initializes the writer using S3 credentials from config.
func NewS3Writer(cfg *appconfig.Config) (*S3Writer, error) {
	log := logger.GetLogger()
	if !cfg.Storage.S3.Enabled {
		return nil, fmt.Errorf("s3 storage is disabled")
	}

	bucket := strings.TrimSpace(cfg.Storage.S3.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket not configured")
	}

	ctx := context.Background()
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	w := &S3Writer{
		cfg:      cfg,
		s3Client: s3Client,
		bucket:   bucket,
		log:      log,
		now:      time.Now,
	}

	log.WithComponent("s3_writer").WithFields(logger.Fields{
		"bucket":     bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("s3 writer initialized")

	return w, nil
}

// Write uploads one reconciliation run.
func (w *S3Writer) Write(ctx context.Context, result models.ReconciliationResult) error {
	data, err := w.createParquet(result)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}

	key := w.objectKey(result)
	_, err = w.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"s3_key":  key,
		"records": len(result.Rows),
		"bytes":   len(data),
	}).Info("comparison result uploaded")

	return nil
}

func (w *S3Writer) createParquet(result models.ReconciliationResult) ([]byte, error) {
	mf := newMemFile()
	pw, err := writer.NewParquetWriter(mf, new(comparisonRecord), 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range result.Rows {
		rec := comparisonRecord{
			RunID:          result.RunID,
			SymbolA:        strings.ToUpper(result.SymbolA),
			SymbolB:        strings.ToUpper(result.SymbolB),
			RateAPct:       row.RateAPct,
			AdjustedAPct:   row.AdjustedAPct,
			RateBPct:       row.RateBPct,
			AnnualizedDiff: row.AnnualizedDiff,
			Incomplete:     result.Incomplete(),
		}
		if i < len(result.Pairs) {
			rec.TimestampA = result.Pairs[i].A.TimestampMs
			rec.TimestampB = result.Pairs[i].B.TimestampMs
		}
		if err := pw.Write(rec); err != nil {
			return nil, err
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, err
	}

	return mf.Bytes(), nil
}

// objectKey partitions runs hive-style by symbol pair and run date so the
// results stay queryable in place.
func (w *S3Writer) objectKey(result models.ReconciliationResult) string {
	ts := w.now().UTC()
	parts := []string{
		fmt.Sprintf("symbol_a=%s", strings.ToUpper(result.SymbolA)),
		fmt.Sprintf("symbol_b=%s", strings.ToUpper(result.SymbolB)),
		ts.Format("year=2006/month=01/day=02"),
		fmt.Sprintf("funding_comparison_%s.parquet", result.RunID),
	}
	key := strings.Join(parts, "/")
	if prefix := strings.Trim(w.cfg.Storage.S3.KeyPrefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}
