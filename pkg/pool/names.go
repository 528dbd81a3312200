package pool

import "sync"

// DefaultNameLimit bounds the distinct names a NameTable keeps
const DefaultNameLimit = 10000

// NameStats counts NameTable lookups
type NameStats struct {
	Size   int
	Hits   int
	Misses int
}

type joinKey struct {
	prefix, sep, name string
}

// NameTable interns the flattened field names of one batch. Records of a
// batch usually share their property names, so every record after the first
// reuses the same strings, and nested names skip the concatenation.
type NameTable struct {
	mu     sync.Mutex
	names  map[string]string
	joined map[joinKey]string
	limit  int
	stats  NameStats
}

// NewNameTable creates a table holding at most limit names. A non-positive
// limit selects DefaultNameLimit.
func NewNameTable(limit int) *NameTable {
	if limit <= 0 {
		limit = DefaultNameLimit
	}
	return &NameTable{
		names:  make(map[string]string, 64),
		joined: make(map[joinKey]string, 64),
		limit:  limit,
	}
}

// Intern returns the table's copy of name
func (t *NameTable) Intern(name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intern(name)
}

// Join returns the interned prefix+sep+name. The separator is written even
// when prefix is empty.
func (t *NameTable) Join(prefix, sep, name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := joinKey{prefix, sep, name}
	if s, ok := t.joined[k]; ok {
		t.stats.Hits++
		return s
	}
	s := t.intern(prefix + sep + name)
	if len(t.joined) < t.limit {
		t.joined[k] = s
	}
	return s
}

func (t *NameTable) intern(name string) string {
	if s, ok := t.names[name]; ok {
		t.stats.Hits++
		return s
	}
	t.stats.Misses++
	if len(t.names) >= t.limit {
		return name
	}
	t.names[name] = name
	return name
}

// Stats returns the current counters
func (t *NameTable) Stats() NameStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Size = len(t.names)
	return s
}

// Reset drops every name and zeroes the counters
func (t *NameTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = make(map[string]string, 64)
	t.joined = make(map[joinKey]string, 64)
	t.stats = NameStats{}
}
