package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"

	"prsummarizer/pkg/config"
	"prsummarizer/pkg/logger"
	"prsummarizer/pkg/metrics"
)

const jsonContentType = "application/json"

// GCSSink uploads indented JSON objects to a Cloud Storage bucket.
type GCSSink struct {
	svc    *gcs.Service
	bucket string
	prefix string
	logger *zap.Logger
}

func NewGCSSink(ctx context.Context, cfg config.StorageConfig, log *zap.Logger, opts ...option.ClientOption) (*GCSSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	return &GCSSink{svc: svc, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: log}, nil
}

func (s *GCSSink) Save(ctx context.Context, record any, key string) bool {
	name := s.prefix + key
	log := logger.WithTrace(ctx, s.logger).With(
		zap.String("bucket", s.bucket),
		zap.String("object", name),
	)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		log.Error("Failed to encode result", zap.Error(err))
		metrics.IncrementStorageWrite("gcs", "encode_error")
		return false
	}

	obj := &gcs.Object{Name: name, ContentType: jsonContentType}
	_, err = s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(jsonContentType)).
		Context(ctx).
		Do()
	if err != nil {
		log.Error("Failed to save to GCS", zap.Error(err))
		metrics.IncrementStorageWrite("gcs", "error")
		return false
	}

	log.Info("Successfully saved result", zap.Int("size", len(data)))
	metrics.IncrementStorageWrite("gcs", "success")
	return true
}
