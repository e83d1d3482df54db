// Package tool provides a unified tool registry with schemas and executors.
package tool

import (
	"context"

	"github.com/flynn-ai/scout/internal/errors"
)

// Registry manages available tools and their schemas.
//
// Registration order is preserved: Schemas and Names report tools in
// the order they were registered, so the descriptor list sent to the
// model is stable between turns.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*Schema
	order   []string
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*Schema),
	}
}

// Register adds a tool and its schema to the registry.
// Re-registering a name replaces the tool but keeps its original position.
func (r *Registry) Register(tool Tool, schema *Schema) {
	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
	r.schemas[name] = schema
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Schemas returns all registered schemas in registration order.
func (r *Registry) Schemas() []*Schema {
	schemas := make([]*Schema, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.schemas[name])
	}
	return schemas
}

// Execute runs a tool by name with the given input.
//
// Tool failures come back inside the Result; the returned error is
// non-nil only when the name is not registered.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) (*Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, errors.New(errors.CodeToolNotFound, "tool not found: "+name, errors.CategoryPermanent)
	}
	result, err := tool.Execute(ctx, input)
	if err != nil {
		// Fold stray errors into a failure result so callers see a
		// uniform success/failure surface.
		return NewErrorResult(err), nil
	}
	return result, nil
}

// Initialize registers the built-in lookup tools with their schemas.
func (r *Registry) Initialize(client *Client) {
	r.Register(NewWeather(client), NewSchema("get_weather", "Get current weather details for a city").
		AddParam("city", "string", "City name (e.g., \"Mumbai\")", true).
		Build())

	r.Register(NewGoldSilver(client), NewSchema("get_gold_silver_prices", "Fetch latest gold and silver prices in USD per troy ounce").
		Build())

	r.Register(NewBitcoin(client), NewSchema("get_bitcoin_price", "Fetch the current Bitcoin price in USD").
		Build())
}
