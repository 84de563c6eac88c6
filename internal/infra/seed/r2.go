package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// R2Source reads the seed CSV from an S3-compatible bucket (Cloudflare R2, MinIO, S3).
type R2Source struct {
	client *minio.Client
	bucket string
	key    string
	logger *slog.Logger
}

// R2Options locates the seed object.
type R2Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Key       string
}

// NewR2Source constructs the source. No request is made until Open.
func NewR2Source(opts R2Options, logger *slog.Logger) (*R2Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Bucket == "" || opts.Key == "" {
		return nil, fmt.Errorf("seed bucket and key are required")
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(opts.Endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       useSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Source{
		client: client,
		bucket: opts.Bucket,
		key:    opts.Key,
		logger: logger.With("component", "seed.r2"),
	}, nil
}

// Open implements faq.SeedSource. The object is stat'ed first so a missing key fails here.
func (s *R2Source) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get seed object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat seed object: %w", err)
	}
	s.logger.Info("seed object opened", "bucket", s.bucket, "key", s.key, "size", info.Size)
	return obj, nil
}

// Describe implements faq.SeedSource.
func (s *R2Source) Describe() string {
	return fmt.Sprintf("r2://%s/%s", s.bucket, s.key)
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

var _ faq.SeedSource = (*R2Source)(nil)
