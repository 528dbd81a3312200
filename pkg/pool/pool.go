package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Stats counts pool traffic
type Stats struct {
	Gets    int64
	Misses  int64 // Gets that had to allocate
	InUse   int64
	Dropped int64 // Puts refused by the keep function
}

// Pool is a typed sync.Pool. reset runs on every object handed back and
// keep, when set, decides whether the object is worth keeping at all.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	keep  func(T) bool

	gets, misses, inUse, dropped atomic.Int64
}

// New creates a pool. reset may be nil.
func New[T any](alloc func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		p.misses.Add(1)
		return alloc()
	}
	return p
}

// WithKeep sets the predicate deciding whether Put retains an object
func (p *Pool[T]) WithKeep(keep func(T) bool) *Pool[T] {
	p.keep = keep
	return p
}

// Get takes an object from the pool, allocating when it is empty
func (p *Pool[T]) Get() T {
	p.gets.Add(1)
	p.inUse.Add(1)
	return p.pool.Get().(T)
}

// Put hands obj back
func (p *Pool[T]) Put(obj T) {
	p.inUse.Add(-1)
	if p.keep != nil && !p.keep(obj) {
		p.dropped.Add(1)
		return
	}
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// Stats returns a snapshot of the counters
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Gets:    p.gets.Load(),
		Misses:  p.misses.Load(),
		InUse:   p.inUse.Load(),
		Dropped: p.dropped.Load(),
	}
}

// maxPooledBuffer bounds the capacity of buffers kept for reuse, so one
// huge batch does not pin its serialization buffer.
const maxPooledBuffer = 64 << 20

// BufferPool holds scratch buffers for serialized batches
var BufferPool = New(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
).WithKeep(func(b *bytes.Buffer) bool { return b.Cap() <= maxPooledBuffer })

// GetBuffer returns an empty buffer from BufferPool
func GetBuffer() *bytes.Buffer {
	return BufferPool.Get()
}

// PutBuffer returns b to BufferPool
func PutBuffer(b *bytes.Buffer) {
	if b == nil {
		return
	}
	BufferPool.Put(b)
}
