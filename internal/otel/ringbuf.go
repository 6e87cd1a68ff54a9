package otel

import (
	"strings"
	"sync"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 512

// RingBuffer is a fixed-size circular buffer of Events.
// Goroutine-safe for concurrent Push and read operations.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	size  int
	head  int // next write position
	count int // valid entries (0..size)
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{
		buf:  make([]Event, size),
		size: size,
	}
}

// Push adds an event, overwriting the oldest if full.
// The Extra map is copied so later writes by the emitter don't leak in.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// ordered returns the buffered events oldest first. Caller must hold r.mu.
func (r *RingBuffer) ordered() []Event {
	result := make([]Event, r.count)
	if r.count < r.size {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.head:])
		copy(result[n:], r.buf[:r.head])
	}
	return result
}

// Snapshot returns a copy of all events in chronological order.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return nil
	}
	return r.ordered()
}

// Last returns the n most recent events in chronological order.
func (r *RingBuffer) Last(n int) []Event {
	return r.LastMatching("", n)
}

// LastMatching returns the n most recent events whose kind starts with
// prefix, in chronological order. An empty prefix matches everything.
func (r *RingBuffer) LastMatching(prefix string, n int) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	all := r.ordered()
	r.mu.Unlock()

	var picked []Event
	for i := len(all) - 1; i >= 0 && len(picked) < n; i-- {
		if strings.HasPrefix(string(all[i].Kind), prefix) {
			picked = append(picked, all[i])
		}
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

// Len returns the number of events currently buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return r.size
}

// Stats returns counts by EventKind over all buffered events.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for _, e := range r.ordered() {
		counts[e.Kind]++
	}
	return counts
}
