package sink

import (
	"sync"
)

// MemorySink keeps written bytes in memory. With a capacity > 0 it acts as a
// ring buffer: once full, the oldest bytes are dropped.
//
// Unlike other sinks it is safe to read (Bytes, Dropped, Flushes) from other
// goroutines while a FrameLock writes to it.
type MemorySink struct {
	mu       sync.Mutex
	capacity int
	data     []byte
	dropped  uint64
	flushes  uint64
}

// NewMemorySink creates a memory sink, capacity 0 means unbounded
func NewMemorySink(capacity int) *MemorySink {
	return &MemorySink{capacity: capacity}
}

// Memory returns an Opener for a new memory sink
func Memory(capacity int) Opener {
	return Static(NewMemorySink(capacity))
}

// --------------------------------------------------------------------------
// Interface Methods (docu see sink.ISink)
// --------------------------------------------------------------------------

func (m *MemorySink) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = append(m.data, p...)

	if m.capacity > 0 && len(m.data) > m.capacity {
		over := len(m.data) - m.capacity
		copy(m.data, m.data[over:])
		m.data = m.data[:m.capacity]
		m.dropped += uint64(over)
	}
	return nil
}

func (m *MemorySink) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// Bytes returns a copy of the buffered bytes
func (m *MemorySink) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// Len returns the number of buffered bytes
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Dropped returns how many bytes were discarded because the ring buffer was full
func (m *MemorySink) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Flushes returns how often Flush was called
func (m *MemorySink) Flushes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

// Reset discards all buffered bytes and counters
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = m.data[:0]
	m.dropped = 0
	m.flushes = 0
}
