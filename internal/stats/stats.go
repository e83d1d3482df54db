// Package stats provides runtime statistics tracking for Scout.
package stats

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Collector collects and tracks dispatch statistics.
// All methods are safe for concurrent use.
type Collector struct {
	startTime time.Time

	turnCount     atomic.Int64
	modelCalls    atomic.Int64
	toolCalls     atomic.Int64
	toolFailures  atomic.Int64
	tokenCount    atomic.Int64
	errorCount    atomic.Int64
	totalDuration atomic.Int64 // nanoseconds across turns
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
	}
}

// RecordTurn records one completed user turn.
func (c *Collector) RecordTurn(duration time.Duration) {
	c.turnCount.Add(1)
	c.totalDuration.Add(int64(duration))
}

// RecordModelCall records one model invocation and its token usage.
func (c *Collector) RecordModelCall(tokens int) {
	c.modelCalls.Add(1)
	c.tokenCount.Add(int64(tokens))
}

// RecordToolCall records one tool execution.
func (c *Collector) RecordToolCall(success bool) {
	c.toolCalls.Add(1)
	if !success {
		c.toolFailures.Add(1)
	}
}

// RecordError records a fatal turn error.
func (c *Collector) RecordError() {
	c.errorCount.Add(1)
}

// Stats represents dispatch statistics at a point in time.
type Stats struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`

	TurnCount    int64   `json:"turn_count"`
	ModelCalls   int64   `json:"model_calls"`
	ToolCalls    int64   `json:"tool_calls"`
	ToolFailures int64   `json:"tool_failures"`
	TokenCount   int64   `json:"token_count"`
	ErrorCount   int64   `json:"error_count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Collect returns current statistics.
func (c *Collector) Collect() *Stats {
	turns := c.turnCount.Load()
	avgLatency := float64(0)
	if turns > 0 {
		avgLatency = float64(c.totalDuration.Load()) / float64(turns) / 1e6 // nanos to millis
	}

	return &Stats{
		Uptime:       time.Since(c.startTime).String(),
		Goroutines:   runtime.NumGoroutine(),
		TurnCount:    turns,
		ModelCalls:   c.modelCalls.Load(),
		ToolCalls:    c.toolCalls.Load(),
		ToolFailures: c.toolFailures.Load(),
		TokenCount:   c.tokenCount.Load(),
		ErrorCount:   c.errorCount.Load(),
		AvgLatencyMs: avgLatency,
	}
}
