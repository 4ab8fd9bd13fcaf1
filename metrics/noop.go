package metrics

import (
	"sync"
	"time"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*MemoryRecorder)(nil)
)

type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

// MemoryRecorder keeps counters in memory.
type MemoryRecorder struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counters: make(map[string]int)}
}

func (m *MemoryRecorder) IncCounter(name string, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

func (m *MemoryRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

// Count returns how many times name was incremented.
func (m *MemoryRecorder) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}
