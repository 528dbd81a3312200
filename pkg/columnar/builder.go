package columnar

import (
	"runtime"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/pool"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

// Builder turns flattened records into Arrow columns
type Builder struct {
	arena   *pool.Arena
	workers int
}

// NewBuilder creates a builder allocating from arena. A non-positive
// worker count uses GOMAXPROCS.
func NewBuilder(arena *pool.Arena, workers int) *Builder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{arena: arena, workers: workers}
}

func (b *Builder) allocator() memory.Allocator {
	if b.arena == nil {
		return memory.DefaultAllocator
	}
	return b.arena.Allocator()
}

// Build returns one column per schema field, in schema order, each with
// len(rows) slots. On error no columns are returned and every partially
// built column is released.
func (b *Builder) Build(s *schema.UnifiedSchema, rows []*schema.FlattenedRecord) ([]arrow.Array, error) {
	cols := make([]arrow.Array, s.Len())

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, f := range s.Fields {
		i, f := i, f
		g.Go(func() error {
			col, err := b.BuildColumn(f, rows)
			if err != nil {
				return err
			}
			cols[i] = col
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
		return nil, err
	}
	return cols, nil
}

// BuildColumn builds the column of a single field
func (b *Builder) BuildColumn(f schema.Field, rows []*schema.FlattenedRecord) (arrow.Array, error) {
	mem := b.allocator()

	switch f.Kind {
	case schema.KindString:
		bldr := array.NewStringBuilder(mem)
		defer bldr.Release()
		bldr.Reserve(len(rows))
		for _, row := range rows {
			v, ok := row.Get(f.Name)
			if !ok || v.IsNull() {
				bldr.AppendNull()
				continue
			}
			bldr.Append(v.String())
		}
		return bldr.NewArray(), nil

	case schema.KindInt64:
		bldr := array.NewInt64Builder(mem)
		defer bldr.Release()
		bldr.Reserve(len(rows))
		for _, row := range rows {
			v, ok := row.Get(f.Name)
			switch {
			case !ok || v.IsNull():
				bldr.AppendNull()
			case v.Kind == f.Kind:
				bldr.Append(v.Int)
			default:
				return nil, mismatch(f, v)
			}
		}
		return bldr.NewArray(), nil

	case schema.KindFloat64, schema.KindGeoLat, schema.KindGeoLon:
		bldr := array.NewFloat64Builder(mem)
		defer bldr.Release()
		bldr.Reserve(len(rows))
		for _, row := range rows {
			v, ok := row.Get(f.Name)
			switch {
			case !ok || v.IsNull():
				bldr.AppendNull()
			case v.Kind == f.Kind:
				bldr.Append(v.Float)
			default:
				return nil, mismatch(f, v)
			}
		}
		return bldr.NewArray(), nil

	case schema.KindBool:
		bldr := array.NewBooleanBuilder(mem)
		defer bldr.Release()
		bldr.Reserve(len(rows))
		for _, row := range rows {
			v, ok := row.Get(f.Name)
			switch {
			case !ok || v.IsNull():
				bldr.AppendNull()
			case v.Kind == f.Kind:
				bldr.Append(v.Bool)
			default:
				return nil, mismatch(f, v)
			}
		}
		return bldr.NewArray(), nil

	case schema.KindTimestampMillis:
		bldr := array.NewTimestampBuilder(mem, arrow.FixedWidthTypes.Timestamp_ms.(*arrow.TimestampType))
		defer bldr.Release()
		bldr.Reserve(len(rows))
		for _, row := range rows {
			v, ok := row.Get(f.Name)
			switch {
			case !ok || v.IsNull():
				bldr.AppendNull()
			case v.Kind == f.Kind:
				bldr.Append(arrow.Timestamp(v.Millis))
			default:
				return nil, mismatch(f, v)
			}
		}
		return bldr.NewArray(), nil

	case schema.KindListOfString:
		bldr := array.NewListBuilder(mem, arrow.BinaryTypes.String)
		defer bldr.Release()
		values := bldr.ValueBuilder().(*array.StringBuilder)
		bldr.Reserve(len(rows))
		for _, row := range rows {
			v, ok := row.Get(f.Name)
			switch {
			case !ok || v.IsNull():
				bldr.AppendNull()
			case v.Kind == f.Kind:
				bldr.Append(true)
				values.AppendValues(v.List, nil)
			default:
				return nil, mismatch(f, v)
			}
		}
		return bldr.NewArray(), nil

	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "column %q has unresolved kind %s", f.Name, f.Kind)
	}
}

func mismatch(f schema.Field, v schema.Value) error {
	return errors.Newf(errors.ErrorTypeInternal,
		"column %q of kind %s received a %s value", f.Name, f.Kind, v.Kind).
		WithDetail(errors.DetailField, f.Name)
}
