package pipeline

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/docarrow/pkg/compression"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/encoder"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/formats/columnar"
	"github.com/ajitpratap0/docarrow/pkg/models"
	"github.com/ajitpratap0/docarrow/pkg/testutil"
)

func rowsIn(t *testing.T, data []byte, format columnar.Format) int64 {
	t.Helper()
	r, err := columnar.NewReader(data, format, memory.DefaultAllocator)
	require.NoError(t, err)
	defer r.Close()

	var n int64
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return n
		}
		require.NoError(t, err)
		n += rec.NumRows()
	}
}

func TestPipeline_MultipleBatches(t *testing.T) {
	dst := core.NewMemoryDestination()
	enc := encoder.New(encoder.Config{}, testutil.TestLogger(t))
	p := New(core.NewSliceSource(testutil.Users(5)...), dst, enc, Config{
		Name:       "users",
		BatchSize:  2,
		OutputPath: "out/users.arrow",
	}, testutil.TestLogger(t))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, int64(5), stats.Records)
	assert.Zero(t, stats.Failures)
	assert.True(t, dst.Closed())

	objs := dst.Objects()
	require.Len(t, objs, 3)
	wantNames := []string{"out/users.arrow", "out/users-00001.arrow", "out/users-00002.arrow"}
	wantRows := []string{"2", "2", "1"}
	var total int64
	for i, obj := range objs {
		assert.Equal(t, wantNames[i], obj.Name)
		assert.Equal(t, wantRows[i], obj.Metadata[core.MetaRows])
		assert.Equal(t, "arrow", obj.Metadata[core.MetaFormat])
		assert.Equal(t, "users", obj.Metadata[core.MetaRun])
		assert.Equal(t, "application/vnd.apache.arrow.file", obj.ContentType)
		assert.Empty(t, obj.ContentEncoding)
		total += rowsIn(t, obj.Data, columnar.Arrow)
	}
	assert.Equal(t, int64(5), total)
	assert.Equal(t, stats.Bytes, int64(len(objs[0].Data)+len(objs[1].Data)+len(objs[2].Data)))
}

func TestPipeline_EmptySourceWritesOneBatch(t *testing.T) {
	dst := core.NewMemoryDestination()
	p := New(core.NewSliceSource(), dst, encoder.New(encoder.Config{}, nil), Config{}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Batches)

	objs := dst.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, "output.arrow", objs[0].Name)
	assert.Equal(t, "0", objs[0].Metadata[core.MetaRows])
	assert.Zero(t, rowsIn(t, objs[0].Data, columnar.Arrow))
}

func TestPipeline_ExactMultipleSkipsTrailingEmptyBatch(t *testing.T) {
	dst := core.NewMemoryDestination()
	p := New(core.NewSliceSource(testutil.Users(4)...), dst, encoder.New(encoder.Config{}, nil), Config{BatchSize: 2}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Batches)
	assert.Len(t, dst.Objects(), 2)
}

func TestPipeline_Compression(t *testing.T) {
	tests := []struct {
		format columnar.Format
		algo   compression.Algorithm
		name   string
	}{
		{columnar.Parquet, compression.Zstd, "users.parquet.zst"},
		{columnar.ArrowStream, compression.Gzip, "users.arrows.gz"},
		{columnar.Arrow, compression.LZ4, "users.arrow.lz4"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format)+"/"+string(tt.algo), func(t *testing.T) {
			dst := core.NewMemoryDestination()
			p := New(core.NewSliceSource(testutil.Users(3)...), dst, encoder.New(encoder.Config{}, nil), Config{
				Format:      tt.format,
				Compression: tt.algo,
				OutputPath:  "users",
			}, nil)

			_, err := p.Run(context.Background())
			require.NoError(t, err)

			objs := dst.Objects()
			require.Len(t, objs, 1)
			assert.Equal(t, tt.name, objs[0].Name)
			assert.Equal(t, string(tt.algo), objs[0].ContentEncoding)

			raw, err := compression.Decompress(objs[0].Data, tt.algo)
			require.NoError(t, err)
			assert.Equal(t, int64(3), rowsIn(t, raw, tt.format))
		})
	}
}

func TestPipeline_CountsFailuresAndDiagnostics(t *testing.T) {
	records := []models.Record{
		*models.NewRecord(1).Set("loc", models.GeoPoint{Lat: 1, HasLat: true}),
		*models.NewRecord(1).Set("blob", []byte("x")),
		*models.NewRecord(1).Set("n", int64(1)),
	}
	dst := core.NewMemoryDestination()
	p := New(core.NewSliceSource(records...), dst, encoder.New(encoder.Config{}, nil), Config{}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(1), stats.Failures)
	assert.Equal(t, int64(1), stats.Diagnostics)
}

// flakyDestination fails the first failures writes
type flakyDestination struct {
	*core.MemoryDestination
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (f *flakyDestination) Write(ctx context.Context, obj core.Object) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return f.err
	}
	return f.MemoryDestination.Write(ctx, obj)
}

func TestPipeline_RetriesDestinationWrites(t *testing.T) {
	dst := &flakyDestination{
		MemoryDestination: core.NewMemoryDestination(),
		failures:          2,
		err:               errors.New(errors.ErrorTypeConnection, "broker unavailable"),
	}
	p := New(core.NewSliceSource(testutil.Users(1)...), dst, encoder.New(encoder.Config{}, nil), Config{
		Retry: RetryPolicy{MaxAttempts: 3, BackoffBase: time.Millisecond},
	}, testutil.TestLogger(t))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, dst.calls)
	assert.Len(t, dst.Objects(), 1)
}

func TestPipeline_DestinationFailure(t *testing.T) {
	dst := &flakyDestination{
		MemoryDestination: core.NewMemoryDestination(),
		failures:          100,
		err:               errors.New(errors.ErrorTypeConfig, "bigquery loads parquet or avro"),
	}
	src := core.NewSliceSource(testutil.Users(10)...)
	p := New(src, dst, encoder.New(encoder.Config{}, nil), Config{BatchSize: 1}, nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDestination))
	assert.Equal(t, 1, dst.calls, "config errors are not retried")
	assert.True(t, dst.Closed())

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF, "source is closed after the run")
}

type failingSource struct {
	after int
	n     int
}

func (s *failingSource) Next(context.Context) (models.Record, error) {
	if s.n >= s.after {
		return models.Record{}, io.ErrUnexpectedEOF
	}
	s.n++
	return *models.NewRecord(1).Set("n", int64(s.n)), nil
}

func (s *failingSource) Close() error { return nil }

func TestPipeline_SourceFailure(t *testing.T) {
	dst := core.NewMemoryDestination()
	p := New(&failingSource{after: 3}, dst, encoder.New(encoder.Config{}, nil), Config{BatchSize: 2}, nil)

	stats, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.LessOrEqual(t, stats.Batches, 1)
}

func TestPipeline_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := core.NewMemoryDestination()
	p := New(core.NewSliceSource(testutil.Users(3)...), dst, encoder.New(encoder.Config{}, nil), Config{}, nil)

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dst.Objects())
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		base  string
		ext   string
		index int
		want  string
	}{
		{"output.arrow", ".arrow", 0, "output.arrow"},
		{"output.arrow", ".arrow", 1, "output-00001.arrow"},
		{"exports/users", ".parquet", 0, "exports/users.parquet"},
		{"exports/users", ".parquet", 12, "exports/users-00012.parquet"},
		{"v1.2/data.avro", ".avro", 3, "v1.2/data-00003.avro"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(tt.base, tt.ext, tt.index))
		})
	}
}
