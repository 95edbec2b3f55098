package llm

import "sync"

// Meter accumulates token counts and estimated USD cost across calls.
// One meter is shared by all workers of a run; the orchestrator reads it
// for budget enforcement.
type Meter struct {
	mu sync.Mutex

	promptPer1K     float64
	completionPer1K float64

	calls     int64
	tokens    int64
	costUSD   float64
	cacheHits int64
}

// NewMeter creates a meter with the given USD-per-1K-token rates.
func NewMeter(promptPer1K, completionPer1K float64) *Meter {
	return &Meter{promptPer1K: promptPer1K, completionPer1K: completionPer1K}
}

// RecordCall charges one dispatched call and returns its estimated cost.
func (m *Meter) RecordCall(promptTokens, completionTokens int) float64 {
	cost := float64(promptTokens)/1000*m.promptPer1K + float64(completionTokens)/1000*m.completionPer1K

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.tokens += int64(promptTokens + completionTokens)
	m.costUSD += cost
	return cost
}

// RecordCacheHit counts a request served without dispatch. Cache hits
// consume no budget.
func (m *Meter) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

// Usage is a point-in-time snapshot of the meter.
type Usage struct {
	Calls     int64
	CacheHits int64
	Tokens    int64
	CostUSD   float64
}

// Snapshot returns current totals.
func (m *Meter) Snapshot() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Usage{Calls: m.calls, CacheHits: m.cacheHits, Tokens: m.tokens, CostUSD: m.costUSD}
}
