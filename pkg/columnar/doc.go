// Package columnar builds dense, null-aware Arrow columns from flattened
// records and packages them as a Batch.
//
// # Overview
//
// A Batch is the in-memory result of converting one set of records:
//
//   - Schema: the unified schema, one field per column
//   - Columns: one arrow.Array per schema field, in schema order
//   - NumRows: the row count; every column has exactly this length
//   - Diagnostics and Failures: advisory warnings and excluded records
//
// Row i of every column comes from the same source record. Records that do
// not carry a field, or carry it as null, get a null slot in that column.
//
// # Memory
//
// All buffers are allocated from the pool.Arena handed to the Builder. The
// Batch owns that arena and frees everything on its last Release:
//
//	bldr := columnar.NewBuilder(arena, 4)
//	cols, err := bldr.Build(unified, rows)
//	if err != nil {
//		return err
//	}
//	batch := columnar.NewBatch(unified, cols, len(rows), arena)
//	defer batch.Release()
//
//	rec := batch.Record()
//	defer rec.Release()
//
// # Concurrency
//
// Build fills columns concurrently, bounded by the worker count. Each
// column has its own Arrow builder; the flattened rows and the schema are
// only read.
package columnar
