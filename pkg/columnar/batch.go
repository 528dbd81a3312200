package columnar

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/docarrow/pkg/pool"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

// RecordFailure reports a record excluded from its batch
type RecordFailure struct {
	Index int    // position of the record in the input
	Field string // flat field name where conversion failed
	Err   error
}

func (f RecordFailure) String() string {
	return fmt.Sprintf("record %d field %q: %v", f.Index, f.Field, f.Err)
}

// Batch is a converted set of records: a unified schema with one column per
// field and a common row count.
type Batch struct {
	Schema      *schema.UnifiedSchema
	Columns     []arrow.Array
	NumRows     int
	Diagnostics []schema.Diagnostic
	Failures    []RecordFailure

	arrowSchema *arrow.Schema
	arena       *pool.Arena
	refs        int64
}

// NewBatch wraps built columns. The batch takes ownership of cols and arena.
func NewBatch(s *schema.UnifiedSchema, cols []arrow.Array, numRows int, arena *pool.Arena) *Batch {
	return &Batch{
		Schema:      s,
		Columns:     cols,
		NumRows:     numRows,
		arrowSchema: s.ArrowSchema(),
		arena:       arena,
		refs:        1,
	}
}

// ArrowSchema returns the Arrow schema matching Columns
func (b *Batch) ArrowSchema() *arrow.Schema {
	return b.arrowSchema
}

// NumCols returns the number of columns
func (b *Batch) NumCols() int {
	return len(b.Columns)
}

// Column returns the column for a field name
func (b *Batch) Column(name string) (arrow.Array, bool) {
	for i, f := range b.Schema.Fields {
		if f.Name == name {
			return b.Columns[i], true
		}
	}
	return nil, false
}

// Record exposes the batch as an arrow.Record for serializers. The record
// retains the columns; callers must Release it.
func (b *Batch) Record() arrow.Record {
	return array.NewRecord(b.arrowSchema, b.Columns, int64(b.NumRows))
}

// Arena returns the allocation scope backing the columns
func (b *Batch) Arena() *pool.Arena {
	return b.arena
}

// Retain increases the reference count
func (b *Batch) Retain() {
	atomic.AddInt64(&b.refs, 1)
}

// Release decreases the reference count. The last release frees every
// column and closes the arena.
func (b *Batch) Release() {
	if atomic.AddInt64(&b.refs, -1) != 0 {
		return
	}
	for _, c := range b.Columns {
		c.Release()
	}
	b.Columns = nil
	if b.arena != nil {
		b.arena.Release()
	}
}

// Validate checks the structural invariants of the batch: one column per
// schema field, matching types, and every column NumRows long.
func (b *Batch) Validate() error {
	if len(b.Columns) != b.Schema.Len() {
		return fmt.Errorf("batch has %d columns for %d fields", len(b.Columns), b.Schema.Len())
	}
	for i, f := range b.Schema.Fields {
		col := b.Columns[i]
		if col.Len() != b.NumRows {
			return fmt.Errorf("column %q has %d rows, batch has %d", f.Name, col.Len(), b.NumRows)
		}
		if !arrow.TypeEqual(col.DataType(), f.Kind.ArrowType()) {
			return fmt.Errorf("column %q is %s, schema says %s", f.Name, col.DataType(), f.Kind.ArrowType())
		}
	}
	return nil
}
