package columnar

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/models"
	"github.com/ajitpratap0/docarrow/pkg/pool"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

func buildBatch(t *testing.T, workers int, recs ...*models.Record) *Batch {
	t.Helper()
	arena := pool.NewArena()
	f := schema.NewFlattener(arena)

	rows := make([]*schema.FlattenedRecord, len(recs))
	for i, r := range recs {
		fr, _, err := f.Flatten(*r)
		require.NoError(t, err)
		rows[i] = fr
	}
	s, _ := schema.NewInferencer().Infer(rows)

	cols, err := NewBuilder(arena, workers).Build(s, rows)
	require.NoError(t, err)
	return NewBatch(s, cols, len(rows), arena)
}

func TestBuild_AllKinds(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := buildBatch(t, 2,
		models.NewRecord(6).
			Set("s", "a").
			Set("i", 1).
			Set("f", 1.5).
			Set("b", true).
			Set("ts", ts).
			Set("tags", []interface{}{"x", 2}),
		models.NewRecord(0),
	)
	defer b.Release()
	require.NoError(t, b.Validate())
	assert.Equal(t, 2, b.NumRows)

	col, _ := b.Column("s")
	assert.Equal(t, "a", col.(*array.String).Value(0))
	assert.True(t, col.IsNull(1))

	col, _ = b.Column("i")
	assert.Equal(t, int64(1), col.(*array.Int64).Value(0))

	col, _ = b.Column("f")
	assert.Equal(t, 1.5, col.(*array.Float64).Value(0))

	col, _ = b.Column("b")
	assert.True(t, col.(*array.Boolean).Value(0))

	col, _ = b.Column("ts")
	assert.Equal(t, arrow.Timestamp(ts.UnixMilli()), col.(*array.Timestamp).Value(0))

	col, _ = b.Column("tags")
	list := col.(*array.List)
	assert.True(t, list.IsValid(0))
	assert.True(t, list.IsNull(1))
	start, end := list.ValueOffsets(0)
	values := list.ListValues().(*array.String)
	var got []string
	for j := start; j < end; j++ {
		got = append(got, values.Value(int(j)))
	}
	assert.Equal(t, []string{"x", "2"}, got)
}

func TestBuild_RowAlignment(t *testing.T) {
	b := buildBatch(t, 4,
		models.NewRecord(1).Set("a", 1),
		models.NewRecord(1).Set("b", "two"),
		models.NewRecord(2).Set("a", 3).Set("c", nil),
	)
	defer b.Release()
	require.NoError(t, b.Validate())

	for _, c := range b.Columns {
		assert.Equal(t, 3, c.Len())
	}

	a, _ := b.Column("a")
	assert.Equal(t, []bool{true, false, true}, validity(a))
	bc, _ := b.Column("b")
	assert.Equal(t, []bool{false, true, false}, validity(bc))
	c, _ := b.Column("c")
	assert.Equal(t, []bool{false, false, false}, validity(c))
	assert.Equal(t, arrow.BinaryTypes.String, c.DataType())
}

func TestBuild_TypeConflictStringified(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	b := buildBatch(t, 1,
		models.NewRecord(1).Set("x", 1),
		models.NewRecord(1).Set("x", "a"),
		models.NewRecord(1).Set("x", 2.5),
		models.NewRecord(1).Set("x", false),
		models.NewRecord(1).Set("x", ts),
		models.NewRecord(1).Set("x", []string{"p", "q"}),
		models.NewRecord(1).Set("x", nil),
	)
	defer b.Release()

	col, _ := b.Column("x")
	s := col.(*array.String)
	var got []string
	for i := 0; i < s.Len()-1; i++ {
		got = append(got, s.Value(i))
	}
	assert.Equal(t, []string{"1", "a", "2.5", "false", "2024-01-02T03:04:05.006Z", `["p","q"]`}, got)
	assert.True(t, s.IsNull(6))
}

func TestBuild_GeoPointNullTogether(t *testing.T) {
	b := buildBatch(t, 2,
		models.NewRecord(1).Set("loc", models.NewGeoPoint(25.0, 121.5)),
		models.NewRecord(1).Set("other", 1),
		models.NewRecord(1).Set("loc", models.NewGeoPoint(-1, -2)),
	)
	defer b.Release()

	lat, ok := b.Column("loc_lat")
	require.True(t, ok)
	lon, ok := b.Column("loc_lon")
	require.True(t, ok)
	assert.Equal(t, validity(lat), validity(lon))
	assert.Equal(t, 121.5, lon.(*array.Float64).Value(0))
	assert.Equal(t, arrow.PrimitiveTypes.Float64, lat.DataType())
}

func TestBuild_EmptyBatch(t *testing.T) {
	b := buildBatch(t, 1)
	defer b.Release()

	assert.Equal(t, 0, b.NumRows)
	assert.Equal(t, 0, b.NumCols())
	rec := b.Record()
	defer rec.Release()
	assert.Equal(t, int64(0), rec.NumRows())
}

func TestBuild_KindMismatchFails(t *testing.T) {
	arena := pool.NewArena()
	defer arena.Release()

	row := schema.NewFlattenedRecord(1)
	row.Put("x", schema.StringValue("a"))
	s := schema.NewUnifiedSchema([]schema.Field{
		{Name: "ok", Kind: schema.KindString, Nullable: true},
		{Name: "x", Kind: schema.KindInt64},
	})

	cols, err := NewBuilder(arena, 2).Build(s, []*schema.FlattenedRecord{row})
	require.Error(t, err)
	assert.Nil(t, cols)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
	assert.Equal(t, 0, arena.CurrentAlloc())
}

func TestBatch_ReleaseFreesArena(t *testing.T) {
	b := buildBatch(t, 3,
		models.NewRecord(3).Set("a", "x").Set("b", []interface{}{"y"}).Set("c", models.NewGeoPoint(1, 2)),
		models.NewRecord(1).Set("a", 2),
	)
	arena := b.Arena()
	assert.Greater(t, arena.CurrentAlloc(), 0)

	rec := b.Record()
	b.Retain()
	b.Release()
	b.Release()
	assert.Greater(t, arena.CurrentAlloc(), 0, "record still holds the columns")

	rec.Release()
	assert.Equal(t, 0, arena.CurrentAlloc())
	assert.True(t, arena.Released())
}

func validity(a arrow.Array) []bool {
	out := make([]bool, a.Len())
	for i := range out {
		out[i] = a.IsValid(i)
	}
	return out
}
