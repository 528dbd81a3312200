// Package pool manages the memory used while converting records into
// columnar batches.
//
// Core Types:
//
//   - Pool[T]: Generic sync.Pool wrapper with usage statistics
//   - NameTable: Bounded interning of flattened field names, with cached
//     parent/child joins
//   - Arena: Per-batch scope pairing a checked Arrow allocator with a
//     name table
//
// Arena Lifecycle
//
// An encoder creates one Arena per batch. The flattener interns field names
// through it and the column builder allocates every Arrow buffer from its
// allocator. The resulting batch owns the arena:
//
//	arena := pool.NewArena()
//	bldr := columnar.NewBuilder(arena, workers)
//	batch, err := bldr.Build(schema, rows)
//	...
//	batch.Release() // arena.CurrentAlloc() == 0 afterwards
//
// Buffers
//
// The pipeline and pkg/compression borrow scratch buffers from BufferPool
// through GetBuffer and PutBuffer.
package pool
