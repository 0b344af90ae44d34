package observability

import (
	"sync"
	"time"
)

// Metrics tracks aggregate statistics for tool and provider calls.
type Metrics interface {
	// RecordToolRun records one tool invocation.
	RecordToolRun(tool string, duration time.Duration, cached, failed bool)

	// RecordProviderCall records one provider call after retries settled.
	RecordProviderCall(provider string, duration time.Duration, failed bool)

	// RecordBreakerTransition records a circuit breaker state change.
	RecordBreakerTransition(dependency, from, to string)

	// GetStats returns current statistics.
	GetStats() Stats
}

// ToolStats contains per-tool statistics.
type ToolStats struct {
	Runs      int
	Failures  int
	CacheHits int
	Duration  time.Duration
}

// ProviderStats contains per-provider statistics.
type ProviderStats struct {
	Calls    int
	Failures int
	Duration time.Duration
}

// Stats contains aggregate statistics.
type Stats struct {
	ToolRuns           int
	ToolFailures       int
	CacheHits          int
	ProviderCalls      int
	ProviderFailures   int
	BreakerTransitions map[string]int
	ByTool             map[string]ToolStats
	ByProvider         map[string]ProviderStats
}

// DefaultMetrics provides in-memory metrics tracking.
type DefaultMetrics struct {
	mu    sync.RWMutex
	stats Stats
}

// NewDefaultMetrics creates a metrics tracker.
func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{
		stats: Stats{
			BreakerTransitions: make(map[string]int),
			ByTool:             make(map[string]ToolStats),
			ByProvider:         make(map[string]ProviderStats),
		},
	}
}

// RecordToolRun records one tool invocation.
func (m *DefaultMetrics) RecordToolRun(tool string, duration time.Duration, cached, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.ToolRuns++
	ts := m.stats.ByTool[tool]
	ts.Runs++
	ts.Duration += duration
	if cached {
		m.stats.CacheHits++
		ts.CacheHits++
	}
	if failed {
		m.stats.ToolFailures++
		ts.Failures++
	}
	m.stats.ByTool[tool] = ts
}

// RecordProviderCall records one provider call after retries settled.
func (m *DefaultMetrics) RecordProviderCall(provider string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.ProviderCalls++
	ps := m.stats.ByProvider[provider]
	ps.Calls++
	ps.Duration += duration
	if failed {
		m.stats.ProviderFailures++
		ps.Failures++
	}
	m.stats.ByProvider[provider] = ps
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *DefaultMetrics) RecordBreakerTransition(dependency, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.BreakerTransitions[dependency+":"+from+"->"+to]++
}

// GetStats returns a copy of the current statistics.
func (m *DefaultMetrics) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.stats
	out.BreakerTransitions = make(map[string]int, len(m.stats.BreakerTransitions))
	for k, v := range m.stats.BreakerTransitions {
		out.BreakerTransitions[k] = v
	}
	out.ByTool = make(map[string]ToolStats, len(m.stats.ByTool))
	for k, v := range m.stats.ByTool {
		out.ByTool[k] = v
	}
	out.ByProvider = make(map[string]ProviderStats, len(m.stats.ByProvider))
	for k, v := range m.stats.ByProvider {
		out.ByProvider[k] = v
	}
	return out
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordToolRun(tool string, duration time.Duration, cached, failed bool)  {}
func (NopMetrics) RecordProviderCall(provider string, duration time.Duration, failed bool) {}
func (NopMetrics) RecordBreakerTransition(dependency, from, to string)                     {}
func (NopMetrics) GetStats() Stats                                                         { return Stats{} }
