// Package history keeps the most recent readings in a fixed-capacity ring.
// Capacity is set at construction (retention window divided by the sampling
// interval) and never changes; the oldest entry is evicted first.
package history

import (
	"sync"

	"codeberg.org/halvard/sysmond/internal/sysinfo"
)

type Buffer struct {
	mu    sync.RWMutex
	ring  []sysinfo.Reading
	start int
	count int
}

// New creates a buffer holding at most capacity readings. A capacity below
// one is raised to one.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}

	return &Buffer{ring: make([]sysinfo.Reading, capacity)}
}

// Append inserts a reading, evicting the oldest entry when full. O(1).
func (b *Buffer) Append(reading sysinfo.Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.ring)
	if b.count < capacity {
		b.ring[(b.start+b.count)%capacity] = reading
		b.count++
		return
	}

	b.ring[b.start] = reading
	b.start = (b.start + 1) % capacity
}

// Snapshot returns an ordered copy, oldest first. The copy is safe to
// iterate while appends continue on other goroutines.
func (b *Buffer) Snapshot() []sysinfo.Reading {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]sysinfo.Reading, b.count)
	capacity := len(b.ring)
	for i := 0; i < b.count; i++ {
		out[i] = b.ring[(b.start+i)%capacity]
	}

	return out
}

// Last returns the newest reading, if any.
func (b *Buffer) Last() (sysinfo.Reading, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return sysinfo.Reading{}, false
	}

	return b.ring[(b.start+b.count-1)%len(b.ring)], true
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.count
}

func (b *Buffer) Cap() int {
	return len(b.ring)
}
