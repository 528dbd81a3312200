// Package s3 uploads serialized batches to Amazon S3 or an S3-compatible
// endpoint.
package s3

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
)

const (
	// Multipart upload tuning
	uploadPartSize    = 16 * 1024 * 1024
	uploadConcurrency = 4
)

// Uploader is the part of manager.Uploader the destination needs
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Destination uploads each object under bucket/prefix
type Destination struct {
	uploader Uploader
	bucket   string
	prefix   string
	uploaded int
	logger   *zap.Logger
}

// New loads the default AWS configuration and creates an uploader
func New(ctx context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.CredentialsFile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedCredentialsFiles([]string{cfg.CredentialsFile}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = uploadPartSize
		u.Concurrency = uploadConcurrency
	})

	return NewWithUploader(uploader, cfg, log), nil
}

// NewWithUploader creates a destination around an existing uploader
func NewWithUploader(uploader Uploader, cfg config.DestinationConfig, log *zap.Logger) *Destination {
	return &Destination{
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		logger:   logger.OrNop(log).With(zap.String("component", "s3_destination"), zap.String("bucket", cfg.Bucket)),
	}
}

// Write implements core.Destination
func (d *Destination) Write(ctx context.Context, obj core.Object) error {
	key := obj.Key(d.prefix)
	input := &s3.PutObjectInput{
		Bucket:   aws.String(d.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(obj.Data),
		Metadata: obj.Metadata,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.ContentEncoding != "" {
		input.ContentEncoding = aws.String(obj.ContentEncoding)
	}

	result, err := d.uploader.Upload(ctx, input)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeDestination, "failed to upload to S3").
			WithDetail("bucket", d.bucket).
			WithDetail("key", key)
	}

	d.uploaded++
	d.logger.Debug("object uploaded",
		zap.String("key", key),
		zap.String("location", result.Location),
		zap.Int("bytes", len(obj.Data)))
	return nil
}

// Close implements core.Destination
func (d *Destination) Close(context.Context) error {
	d.logger.Info("s3 destination closed", zap.Int("objects", d.uploaded))
	return nil
}
