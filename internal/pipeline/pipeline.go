// Package pipeline runs a conversion end to end: records are pulled from a
// source, encoded into Arrow batches, serialized, optionally compressed and
// handed to a destination, one object per batch.
//
// # Architecture
//
// Two stages connected by a bounded channel:
//   - Encode: reads BatchSize records with EncodeSource and converts them
//   - Write: serializes, compresses and writes each batch, then releases it
//
// The channel capacity bounds the number of live batches, so a slow
// destination throttles the source. Cancellation is checked between
// batches only.
//
// # Basic Usage
//
//	p := pipeline.New(src, dst, enc, pipeline.Config{
//	    BatchSize:  10000,
//	    Format:     columnar.Parquet,
//	    OutputPath: "users.parquet",
//	}, logger)
//	stats, err := p.Run(ctx)
package pipeline

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	arrowbatch "github.com/ajitpratap0/docarrow/pkg/columnar"
	"github.com/ajitpratap0/docarrow/pkg/compression"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/encoder"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/formats/columnar"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/metrics"
	"github.com/ajitpratap0/docarrow/pkg/observability"
	"github.com/ajitpratap0/docarrow/pkg/pool"
)

// Config controls batching and the shape of written objects
type Config struct {
	// Name identifies the run in object metadata
	Name      string
	BatchSize int
	// QueueSize is the number of encoded batches waiting to be written
	QueueSize int

	Format columnar.Format
	// Codec is the format-internal compression, see columnar.WriterConfig
	Codec            string
	Compression      compression.Algorithm
	CompressionLevel compression.Level

	// OutputPath names the first object; later objects get a -NNNNN suffix
	OutputPath string

	// Retry applies to destination writes
	Retry RetryPolicy

	// Metric labels
	SourceType      string
	DestinationType string
}

// DefaultConfig returns the configuration of a single Arrow file run
func DefaultConfig() Config {
	return Config{
		Name:             "docarrow",
		BatchSize:        10000,
		QueueSize:        2,
		Format:           columnar.Arrow,
		Compression:      compression.None,
		CompressionLevel: compression.Default,
		OutputPath:       "output.arrow",
		Retry:            DefaultRetryPolicy(),
		SourceType:       "memory",
		DestinationType:  "memory",
	}
}

// Stats summarizes a finished run
type Stats struct {
	Batches     int
	Records     int64
	Failures    int64
	Diagnostics int64
	Bytes       int64
	Duration    time.Duration
}

// Pipeline moves records from one source to one destination
type Pipeline struct {
	source      core.RecordSource
	destination core.Destination
	encoder     *encoder.Encoder
	cfg         Config
	logger      *zap.Logger

	records     atomic.Int64
	failures    atomic.Int64
	diagnostics atomic.Int64
	bytes       atomic.Int64
}

// New creates a pipeline. Zero values in cfg take DefaultConfig values.
func New(src core.RecordSource, dst core.Destination, enc *encoder.Encoder, cfg Config, log *zap.Logger) *Pipeline {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.Compression == "" {
		cfg.Compression = def.Compression
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = def.CompressionLevel
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = def.OutputPath
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = def.Retry
	}
	if cfg.SourceType == "" {
		cfg.SourceType = def.SourceType
	}
	if cfg.DestinationType == "" {
		cfg.DestinationType = def.DestinationType
	}

	return &Pipeline{
		source:      src,
		destination: dst,
		encoder:     enc,
		cfg:         cfg,
		logger:      logger.OrNop(log).With(zap.String("component", "pipeline"), zap.String("run", cfg.Name)),
	}
}

// Run converts the whole source. The source and destination are closed
// before Run returns.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	p.logger.Info("starting pipeline",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.String("format", string(p.cfg.Format)),
		zap.String("compression", string(p.cfg.Compression)),
		zap.String("source", p.cfg.SourceType),
		zap.String("destination", p.cfg.DestinationType))

	throughput := metrics.NewThroughputTracker(p.cfg.SourceType, p.cfg.DestinationType)
	batches := make(chan *arrowbatch.Batch, p.cfg.QueueSize)
	var written int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		return p.encodeLoop(gctx, batches)
	})
	g.Go(func() error {
		for b := range batches {
			err := p.writeBatch(gctx, written, b)
			throughput.Increment(int64(b.NumRows))
			b.Release()
			if err != nil {
				return err
			}
			written++
		}
		return nil
	})
	runErr := g.Wait()
	drain(batches)

	if err := p.source.Close(); err != nil {
		p.logger.Warn("failed to close source", zap.Error(err))
	}
	if err := p.destination.Close(ctx); err != nil && runErr == nil {
		runErr = errors.Wrap(err, errors.ErrorTypeDestination, "failed to close destination")
	}

	throughput.GetAndReset()
	stats := Stats{
		Batches:     written,
		Records:     p.records.Load(),
		Failures:    p.failures.Load(),
		Diagnostics: p.diagnostics.Load(),
		Bytes:       p.bytes.Load(),
		Duration:    time.Since(start),
	}

	if runErr != nil {
		p.logger.Error("pipeline failed", zap.Error(runErr), zap.Int("batches", stats.Batches))
		return stats, runErr
	}
	p.logger.Info("pipeline completed",
		zap.Int("batches", stats.Batches),
		zap.Int64("records", stats.Records),
		zap.Int64("failures", stats.Failures),
		zap.Int64("diagnostics", stats.Diagnostics),
		zap.Int64("bytes", stats.Bytes),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// encodeLoop reads and encodes batches until the source is exhausted. Empty
// batches are dropped, except that an empty source still yields one empty
// batch so the output exists.
func (p *Pipeline) encodeLoop(ctx context.Context, out chan<- *arrowbatch.Batch) error {
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, done, err := p.encoder.EncodeSource(ctx, p.source, p.cfg.BatchSize)
		if err != nil {
			return err
		}
		p.failures.Add(int64(len(b.Failures)))
		p.diagnostics.Add(int64(len(b.Diagnostics)))

		if b.NumRows == 0 && !(done && sent == 0) {
			b.Release()
			if done {
				return nil
			}
			continue
		}

		select {
		case out <- b:
			sent++
		case <-ctx.Done():
			b.Release()
			return ctx.Err()
		}
		if done {
			return nil
		}
	}
}

// writeBatch serializes b and writes it as the index-th object
func (p *Pipeline) writeBatch(ctx context.Context, index int, b *arrowbatch.Batch) (err error) {
	ctx, span := observability.StartSpan(ctx, "docarrow.write_batch",
		attribute.Int("batch.index", index),
		attribute.Int("batch.rows", b.NumRows),
		attribute.String("batch.format", string(p.cfg.Format)))
	defer func() { observability.EndSpan(span, err) }()

	timer := metrics.NewTimer(metrics.StageSerialize)
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	ser, err := columnar.NewSerializer(buf, &columnar.WriterConfig{Format: p.cfg.Format, Codec: p.cfg.Codec})
	if err != nil {
		return err
	}
	if err := ser.WriteBatch(b); err != nil {
		_ = ser.Close()
		return err
	}
	if err := ser.Close(); err != nil {
		return err
	}

	data, err := compression.Compress(buf.Bytes(), p.cfg.Compression, p.cfg.CompressionLevel)
	if err != nil {
		return err
	}
	timer.ObserveStage()

	obj := p.object(index, b, data)
	timer = metrics.NewTimer(metrics.StageWrite)
	err = p.cfg.Retry.retry(ctx, p.logger, func() error {
		return p.destination.Write(ctx, obj)
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeDestination, "failed to write batch").
			WithDetail("object", obj.Name)
	}
	timer.ObserveStage()

	p.records.Add(int64(b.NumRows))
	p.bytes.Add(int64(len(data)))
	metrics.BytesWritten.WithLabelValues(string(p.cfg.Format), p.cfg.DestinationType).Add(float64(len(data)))

	p.logger.Info("batch written",
		zap.String("object", obj.Name),
		zap.Int("rows", b.NumRows),
		zap.Int("columns", b.NumCols()),
		zap.Int("bytes", len(data)))
	return nil
}

func (p *Pipeline) object(index int, b *arrowbatch.Batch, data []byte) core.Object {
	info := columnar.GetFormatInfo(p.cfg.Format)
	contentType := ""
	ext := ""
	if info != nil {
		contentType = info.MIMEType
		ext = info.FileExtension
	}

	return core.Object{
		Name:            ObjectName(p.cfg.OutputPath, ext, index) + p.cfg.Compression.Extension(),
		ContentType:     contentType,
		ContentEncoding: p.cfg.Compression.ContentEncoding(),
		Data:            data,
		Metadata: map[string]string{
			core.MetaFormat: string(p.cfg.Format),
			core.MetaRows:   strconv.Itoa(b.NumRows),
			core.MetaBatch:  strconv.Itoa(index),
			core.MetaRun:    p.cfg.Name,
		},
	}
}

// ObjectName derives the name of the index-th object from base. The first
// object keeps base; later ones insert -NNNNN before the extension. ext is
// appended when base has no extension.
func ObjectName(base, ext string, index int) string {
	stem, baseExt := base, path.Ext(base)
	if baseExt != "" {
		stem = strings.TrimSuffix(base, baseExt)
	} else {
		baseExt = ext
	}
	if index == 0 {
		return stem + baseExt
	}
	return fmt.Sprintf("%s-%05d%s", stem, index, baseExt)
}

// drain releases batches left behind by a failed run. ch must be closed.
func drain(ch <-chan *arrowbatch.Batch) {
	for b := range ch {
		b.Release()
	}
}
