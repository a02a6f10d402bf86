package receiver

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/casaops/go-smarther/internal/config"
)

// ObjectSink archives events to an S3-compatible bucket, one JSON object per
// event under a date-based key.
type ObjectSink struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

// NewObjectSink initializes the archive sink and ensures the target bucket
// exists.
func NewObjectSink(ctx context.Context, cfg config.ArchiveConfig) (*ObjectSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	accessKey := strings.TrimSpace(cfg.AccessKey)
	secretKey := strings.TrimSpace(cfg.SecretKey)
	prefix := strings.Trim(cfg.Prefix, "/")

	if endpoint == "" {
		return nil, fmt.Errorf("archive sink: endpoint is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("archive sink: bucket is required")
	}
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("archive sink: access key and secret key are required")
	}

	options := &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("archive sink: create client: %w", err)
	}

	s := &ObjectSink{client: client, bucket: bucket, region: cfg.Region, prefix: prefix}
	if err = s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Name implements Sink.
func (s *ObjectSink) Name() string { return "archive" }

func (s *ObjectSink) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("archive sink: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("archive sink: create bucket: %w", err)
	}
	return nil
}

// Store implements Sink.
func (s *ObjectSink) Store(ctx context.Context, event *Event) error {
	key := s.objectKey(event)
	reader := bytes.NewReader(event.Raw)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(event.Raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("archive sink: put object %s: %w", key, err)
	}
	return nil
}

// Close implements Sink.
func (s *ObjectSink) Close() error { return nil }

func (s *ObjectSink) objectKey(event *Event) string {
	key := fmt.Sprintf("events/%s/%s.json", event.ReceivedAt.UTC().Format("2006/01/02"), event.ID)
	if s.prefix != "" {
		return s.prefix + "/" + key
	}
	return key
}
