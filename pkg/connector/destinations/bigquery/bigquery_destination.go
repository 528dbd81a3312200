// Package bigquery loads serialized Parquet or Avro batches into a BigQuery
// table with load jobs.
package bigquery

import (
	"bytes"
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/formats/columnar"
	"github.com/ajitpratap0/docarrow/pkg/logger"
)

// jobTimeout bounds the wait for one load job
const jobTimeout = 10 * time.Minute

// LoadFunc runs one load job to completion
type LoadFunc func(ctx context.Context, src *bigquery.ReaderSource) error

// Destination appends every object to one table
type Destination struct {
	client *bigquery.Client
	load   LoadFunc
	table  string
	loaded int
	logger *zap.Logger
}

// New creates a BigQuery client for cfg.Project
func New(ctx context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create BigQuery client")
	}

	table := client.Dataset(cfg.Dataset).Table(cfg.Table)
	d := NewWithLoader(TableLoader(table), cfg, log)
	d.client = client
	return d, nil
}

// TableLoader returns a LoadFunc appending to table, creating it if needed
func TableLoader(table *bigquery.Table) LoadFunc {
	return func(ctx context.Context, src *bigquery.ReaderSource) error {
		loader := table.LoaderFrom(src)
		loader.WriteDisposition = bigquery.WriteAppend
		loader.CreateDisposition = bigquery.CreateIfNeeded

		job, err := loader.Run(ctx)
		if err != nil {
			return err
		}

		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		status, err := job.Wait(jobCtx)
		if err != nil {
			return err
		}
		return status.Err()
	}
}

// NewWithLoader creates a destination running load jobs through load
func NewWithLoader(load LoadFunc, cfg config.DestinationConfig, log *zap.Logger) *Destination {
	table := cfg.Project + "." + cfg.Dataset + "." + cfg.Table
	return &Destination{
		load:   load,
		table:  table,
		logger: logger.OrNop(log).With(zap.String("component", "bigquery_destination"), zap.String("table", table)),
	}
}

// ReaderSourceFor builds the load source for obj. Only uncompressed Parquet
// and Avro objects can be loaded.
func ReaderSourceFor(obj core.Object) (*bigquery.ReaderSource, error) {
	if obj.ContentEncoding != "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "bigquery cannot load %s-compressed objects", obj.ContentEncoding)
	}

	src := bigquery.NewReaderSource(bytes.NewReader(obj.Data))
	switch format := columnar.Format(obj.Metadata[core.MetaFormat]); format {
	case columnar.Parquet:
		src.SourceFormat = bigquery.Parquet
		src.ParquetOptions = &bigquery.ParquetOptions{EnableListInference: true}
	case columnar.Avro:
		src.SourceFormat = bigquery.Avro
		src.AvroOptions = &bigquery.AvroOptions{UseAvroLogicalTypes: true}
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "bigquery loads parquet or avro, got %q", format)
	}
	return src, nil
}

// Write implements core.Destination
func (d *Destination) Write(ctx context.Context, obj core.Object) error {
	src, err := ReaderSourceFor(obj)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := d.load(ctx, src); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDestination, "bigquery load job failed").
			WithDetail("table", d.table).
			WithDetail("object", obj.Name)
	}

	d.loaded++
	d.logger.Debug("batch loaded",
		zap.String("object", obj.Name),
		zap.String("rows", obj.Metadata[core.MetaRows]),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Close implements core.Destination
func (d *Destination) Close(context.Context) error {
	d.logger.Info("bigquery destination closed", zap.Int("load_jobs", d.loaded))
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
