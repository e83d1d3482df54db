// Package tool provides the tool execution interface, schemas, and registry.
package tool

import (
	"context"
	"time"
)

// Tool represents a callable tool.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns what the tool does.
	Description() string

	// Execute runs the tool with the given input.
	//
	// Execution failures are reported inside the Result, not as an
	// error: a non-nil error is reserved for infrastructure problems
	// and never carries an upstream lookup failure.
	Execute(ctx context.Context, input map[string]any) (*Result, error)
}

// Result represents the result of a tool execution.
type Result struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// NewSuccessResult creates a successful result.
func NewSuccessResult(data any) *Result {
	return &Result{
		Success: true,
		Data:    data,
	}
}

// NewErrorResult creates an error result.
func NewErrorResult(err error) *Result {
	return &Result{
		Success: false,
		Error:   err.Error(),
	}
}

// TimedResult wraps a result with duration.
func TimedResult(result *Result, start time.Time) *Result {
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}
