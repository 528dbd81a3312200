// Package gcs uploads serialized batches to Google Cloud Storage.
package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
)

// chunkSize is the resumable upload chunk size
const chunkSize = 8 * 1024 * 1024

// OpenFunc opens a writer for one object key. The writer commits on Close.
type OpenFunc func(ctx context.Context, key string, obj core.Object) io.WriteCloser

// Destination writes each object under bucket/prefix
type Destination struct {
	client   *storage.Client
	open     OpenFunc
	bucket   string
	prefix   string
	uploaded int
	logger   *zap.Logger
}

// New creates a storage client for cfg.Bucket
func New(ctx context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}

	d := NewWithOpener(BucketOpener(client.Bucket(cfg.Bucket)), cfg, log)
	d.client = client
	return d, nil
}

// BucketOpener returns an OpenFunc writing to bucket with the object's
// content type, encoding and metadata.
func BucketOpener(bucket *storage.BucketHandle) OpenFunc {
	return func(ctx context.Context, key string, obj core.Object) io.WriteCloser {
		w := bucket.Object(key).NewWriter(ctx)
		w.ChunkSize = chunkSize
		w.ContentType = obj.ContentType
		w.ContentEncoding = obj.ContentEncoding
		w.Metadata = obj.Metadata
		return w
	}
}

// NewWithOpener creates a destination writing through open
func NewWithOpener(open OpenFunc, cfg config.DestinationConfig, log *zap.Logger) *Destination {
	return &Destination{
		open:   open,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger.OrNop(log).With(zap.String("component", "gcs_destination"), zap.String("bucket", cfg.Bucket)),
	}
}

// Write implements core.Destination
func (d *Destination) Write(ctx context.Context, obj core.Object) error {
	key := obj.Key(d.prefix)
	w := d.open(ctx, key, obj)

	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close() // Ignore close error
		return errors.Wrap(err, errors.ErrorTypeDestination, "failed to write to GCS").
			WithDetail("bucket", d.bucket).
			WithDetail("key", key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDestination, "failed to finalize GCS object").
			WithDetail("bucket", d.bucket).
			WithDetail("key", key)
	}

	d.uploaded++
	d.logger.Debug("object uploaded", zap.String("key", key), zap.Int("bytes", len(obj.Data)))
	return nil
}

// Close implements core.Destination
func (d *Destination) Close(context.Context) error {
	d.logger.Info("gcs destination closed", zap.Int("objects", d.uploaded))
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
