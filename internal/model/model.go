// Package model provides the model gateway interface.
package model

import "context"

// Model is the boundary to a hosted chat-completion API.
type Model interface {
	// Generate runs one chat completion over the full message history.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// IsAvailable checks if the model is ready (credential configured).
	IsAvailable() bool

	// Name returns the model identifier.
	Name() string
}
