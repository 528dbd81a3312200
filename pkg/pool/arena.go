package pool

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Arena is the memory scope of one batch conversion.
//
// Every Arrow buffer of a batch is allocated through the arena's allocator
// and every flattened field name is interned in the arena's string pool.
// The batch that owns the arena releases it once; after that the allocator
// must report zero outstanding bytes.
type Arena struct {
	alloc    *memory.CheckedAllocator
	names    *NameTable
	released atomic.Bool
}

// NewArena creates an arena backed by the Go allocator
func NewArena() *Arena {
	return NewArenaWith(memory.NewGoAllocator())
}

// NewArenaWith creates an arena on top of a caller-provided allocator
func NewArenaWith(mem memory.Allocator) *Arena {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Arena{
		alloc: memory.NewCheckedAllocator(mem),
		names: NewNameTable(DefaultNameLimit),
	}
}

// Allocator returns the allocator Arrow builders must use
func (a *Arena) Allocator() memory.Allocator {
	return a.alloc
}

// Intern returns the arena's shared copy of a field name
func (a *Arena) Intern(s string) string {
	return a.names.Intern(s)
}

// JoinName returns the interned nested name prefix+sep+name
func (a *Arena) JoinName(prefix, sep, name string) string {
	return a.names.Join(prefix, sep, name)
}

// Names exposes the name table, mostly for statistics
func (a *Arena) Names() *NameTable {
	return a.names
}

// CurrentAlloc reports the bytes currently held through the arena
func (a *Arena) CurrentAlloc() int {
	return a.alloc.CurrentAlloc()
}

// Release drops the interned names. It is idempotent. Arrow memory is
// returned by releasing the arrays themselves; Release only ends the scope.
func (a *Arena) Release() {
	if !a.released.CompareAndSwap(false, true) {
		return
	}
	a.names.Reset()
}

// Released reports whether Release was called
func (a *Arena) Released() bool {
	return a.released.Load()
}
