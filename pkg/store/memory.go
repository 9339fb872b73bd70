package store

import (
	"context"
	"sync"
)

// DefaultCapacity is the number of records kept when no limit is configured.
const DefaultCapacity = 1000

// Memory keeps the most recent records in a ring buffer.
type Memory struct {
	mu     sync.RWMutex
	buf    []Record
	next   int
	full   bool
	counts map[string]int64
	total  int64
}

// NewMemory creates a Memory store holding up to capacity records.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		buf:    make([]Record, capacity),
		counts: make(map[string]int64),
	}
}

// Name implements Store.
func (m *Memory) Name() string { return "memory" }

// Save implements Store.
func (m *Memory) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf[m.next] = rec
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}

	m.counts[rec.Label.String()]++
	m.total++
	return nil
}

// Recent implements Store.
func (m *Memory) Recent(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}

// Stats implements Store. Counts cover every saved record, including the
// ones that fell out of the ring.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byLabel := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		byLabel[k] = v
	}
	return Stats{Total: m.total, ByLabel: byLabel}, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
