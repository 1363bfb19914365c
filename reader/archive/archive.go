package archive

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "fundingflow/config"
	"fundingflow/logger"
	"fundingflow/models"
)

// Snapshot is one archived order-book capture: top-of-book levels recorded by
// the collectors at capture time.
type Snapshot struct {
	Venue       string      `json:"venue"`
	Symbol      string      `json:"symbol"`
	TimestampMs int64       `json:"timestamp_ms"`
	Bids        [][]float64 `json:"bids"`
	Asks        [][]float64 `json:"asks"`
}

// Reader fetches historical order-book snapshots from the S3 archive the
// collectors populate. Snapshots are stored gzipped, one hour of captures per
// object, under {prefix}/{venue}/{symbol}/{YYYYMMDD}/{HH}.json.gz.
type Reader struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Log
}

// NewReader builds an archive reader sharing the storage credentials.
func NewReader(cfg *appconfig.Config) (*Reader, error) {
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("archive is disabled")
	}
	bucket := strings.TrimSpace(cfg.Archive.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket not configured")
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

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	r := &Reader{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(cfg.Archive.Prefix, "/"),
		log:    logger.GetLogger(),
	}

	r.log.WithComponent("archive_reader").WithFields(logger.Fields{
		"bucket": bucket,
		"prefix": r.prefix,
	}).Info("archive reader initialized")

	return r, nil
}

// SnapshotKey builds the object key for one hour of captures.
func (r *Reader) SnapshotKey(venue, symbol string, at time.Time) string {
	at = at.UTC()
	key := fmt.Sprintf("%s/%s/%s/%02d.json.gz",
		venue, symbol, at.Format("20060102"), at.Hour())
	if r.prefix != "" {
		key = r.prefix + "/" + key
	}
	return key
}

// Snapshots fetches and decodes the archived captures for the hour containing
// the given instant.
func (r *Reader) Snapshots(ctx context.Context, venue, symbol string, at time.Time) ([]Snapshot, error) {
	if venue == "" || symbol == "" {
		return nil, &models.InvalidParameterError{Param: "venue", Reason: "venue and symbol are required"}
	}

	key := r.SnapshotKey(venue, symbol, at)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get archive object %s: %w", key, err)
	}
	defer out.Body.Close()

	gz, err := gzip.NewReader(out.Body)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream for %s: %w", key, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("read archive object %s: %w", key, err)
	}

	var snapshots []Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("decode archive object %s: %w", key, err)
	}

	r.log.WithComponent("archive_reader").WithFields(logger.Fields{
		"key":       key,
		"snapshots": len(snapshots),
	}).Debug("archive hour loaded")

	return snapshots, nil
}
