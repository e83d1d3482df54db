// Package tool provides JSON Schema definitions for function calling.
package tool

// Schema defines a tool's JSON schema for function-calling formats.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SchemaBuilder provides a fluent interface for building tool schemas.
type SchemaBuilder struct {
	schema *Schema
}

// NewSchema creates a new schema builder with the given name and description.
func NewSchema(name, description string) *SchemaBuilder {
	return &SchemaBuilder{
		schema: &Schema{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": make(map[string]any),
				"required":   make([]string, 0),
			},
		},
	}
}

// AddParam adds a parameter to the schema.
func (b *SchemaBuilder) AddParam(name, paramType, description string, required bool) *SchemaBuilder {
	props := b.schema.Parameters["properties"].(map[string]any)
	props[name] = map[string]any{
		"type":        paramType,
		"description": description,
	}
	if required {
		req := b.schema.Parameters["required"].([]string)
		b.schema.Parameters["required"] = append(req, name)
	}
	return b
}

// Build returns the constructed schema.
func (b *SchemaBuilder) Build() *Schema {
	return b.schema
}
