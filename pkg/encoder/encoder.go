// Package encoder converts batches of document records into Arrow columns.
//
// An Encoder runs three passes over a batch: every record is flattened,
// the flattened shapes are unified into one schema, and one column per
// schema field is built. Recoverable problems (unsupported values, type
// conflicts) become diagnostics on the batch; records with structural
// problems are excluded and listed as failures. Encode itself fails only
// when the column build does, and EncodeSource additionally when the
// record source does.
//
//	enc := encoder.New(encoder.Config{Separator: "_"}, log)
//	batch, err := enc.Encode(records)
//	if err != nil {
//		return err
//	}
//	defer batch.Release()
package encoder

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/columnar"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/metrics"
	"github.com/ajitpratap0/docarrow/pkg/models"
	"github.com/ajitpratap0/docarrow/pkg/observability"
	"github.com/ajitpratap0/docarrow/pkg/pool"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

// Config tunes an Encoder
type Config struct {
	// Separator joins nested field names; empty selects "_"
	Separator string
	// Workers bounds concurrent column builds; 0 uses GOMAXPROCS
	Workers int
	// Source labels metrics, e.g. "datastore"
	Source string
	// Allocator backs every batch arena; nil uses the Go allocator
	Allocator memory.Allocator
}

// Encoder is stateless across batches and safe for concurrent use
type Encoder struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an encoder. A nil logger discards output.
func New(cfg Config, log *zap.Logger) *Encoder {
	if cfg.Separator == "" {
		cfg.Separator = schema.DefaultSeparator
	}
	if cfg.Source == "" {
		cfg.Source = "memory"
	}
	return &Encoder{
		cfg:    cfg,
		logger: logger.OrNop(log).With(zap.String("component", "encoder")),
	}
}

// Encode converts records into a batch. One record is a batch of one; no
// records is an empty batch with zero fields.
func (e *Encoder) Encode(records []models.Record) (*columnar.Batch, error) {
	return e.EncodeContext(context.Background(), records)
}

// EncodeContext is Encode with tracing and context-scoped logging. The
// context is not checked mid-batch.
func (e *Encoder) EncodeContext(ctx context.Context, records []models.Record) (*columnar.Batch, error) {
	var batch *columnar.Batch
	err := observability.TraceBatch(ctx, "docarrow.encode", len(records), func(ctx context.Context) error {
		var err error
		batch, err = e.encode(ctx, records)
		return err
	})
	if err != nil {
		metrics.BatchesEncoded.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, err
	}
	metrics.BatchesEncoded.WithLabelValues(metrics.StatusOK).Inc()
	return batch, nil
}

func (e *Encoder) encode(ctx context.Context, records []models.Record) (*columnar.Batch, error) {
	log := logger.WithContext(ctx, e.logger)
	arena := pool.NewArenaWith(e.cfg.Allocator)

	timer := metrics.NewTimer(metrics.StageFlatten)
	flattener := schema.NewFlattener(arena, schema.WithSeparator(e.cfg.Separator))
	flat := make([]*schema.FlattenedRecord, len(records))
	perRecord := make([][]schema.Diagnostic, len(records))
	errs := make([]error, len(records))
	for i := range records {
		flat[i], perRecord[i], errs[i] = flattener.Flatten(records[i])
	}
	for i, err := range schema.GeoCollisions(flat) {
		errs[i] = err
	}

	rows := make([]*schema.FlattenedRecord, 0, len(records))
	var (
		diags    []schema.Diagnostic
		failures []columnar.RecordFailure
	)
	for i := range records {
		if errs[i] != nil {
			failures = append(failures, failure(i, errs[i]))
			continue
		}
		for _, d := range perRecord[i] {
			d.Record = i
			diags = append(diags, d)
		}
		rows = append(rows, flat[i])
	}
	timer.ObserveStage()

	timer = metrics.NewTimer(metrics.StageInfer)
	unified, conflicts := schema.NewInferencer().Infer(rows)
	diags = append(diags, conflicts...)
	timer.ObserveStage()

	timer = metrics.NewTimer(metrics.StageBuild)
	cols, err := columnar.NewBuilder(arena, e.cfg.Workers).Build(unified, rows)
	timer.ObserveStage()
	if err != nil {
		arena.Release()
		return nil, err
	}

	batch := columnar.NewBatch(unified, cols, len(rows), arena)
	batch.Diagnostics = diags
	batch.Failures = failures

	e.report(log, batch)
	return batch, nil
}

// failure describes an excluded record and stamps its index on the error
func failure(index int, err error) columnar.RecordFailure {
	f := columnar.RecordFailure{Index: index, Err: err}
	var se *errors.Error
	if errors.As(err, &se) {
		if field, ok := se.Detail(errors.DetailField).(string); ok {
			f.Field = field
		}
		se.WithDetail(errors.DetailRecord, index)
	}
	return f
}

func (e *Encoder) report(log *zap.Logger, b *columnar.Batch) {
	for _, d := range b.Diagnostics {
		log.Warn("conversion diagnostic",
			zap.String("kind", string(d.Kind)),
			zap.String("field", d.Field),
			zap.Int("record", d.Record),
			zap.String("reason", d.Reason))
		metrics.Diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
	for _, f := range b.Failures {
		log.Warn("record excluded from batch",
			zap.Int("record", f.Index),
			zap.String("field", f.Field),
			zap.Error(f.Err))
	}

	metrics.RecordsConverted.WithLabelValues(e.cfg.Source, metrics.StatusOK).Add(float64(b.NumRows))
	metrics.RecordsConverted.WithLabelValues(e.cfg.Source, metrics.StatusFailed).Add(float64(len(b.Failures)))
	metrics.BatchColumns.Set(float64(b.NumCols()))
	metrics.ArenaBytes.Set(float64(b.Arena().CurrentAlloc()))

	log.Debug("batch encoded",
		zap.Int("rows", b.NumRows),
		zap.Int("columns", b.NumCols()),
		zap.Int("diagnostics", len(b.Diagnostics)),
		zap.Int("failures", len(b.Failures)))
}

// EncodeSource reads up to limit records from src (all of them when limit
// is not positive) and encodes them. done reports that the source hit
// io.EOF. Source errors are returned wrapped, never masked.
func (e *Encoder) EncodeSource(ctx context.Context, src core.RecordSource, limit int) (batch *columnar.Batch, done bool, err error) {
	var records []models.Record
	if limit > 0 {
		records = make([]models.Record, 0, limit)
	}

	for limit <= 0 || len(records) < limit {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			done = true
			break
		}
		if err != nil {
			return nil, false, errors.Wrap(err, errors.ErrorTypeSource, "failed to read record")
		}
		records = append(records, rec)
	}

	batch, err = e.EncodeContext(ctx, records)
	if err != nil {
		return nil, false, err
	}
	return batch, done, nil
}
