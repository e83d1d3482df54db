// Package agent defines the tool transport boundary.
package agent

import (
	"context"

	"github.com/flynn-ai/scout/internal/model"
	"github.com/flynn-ai/scout/internal/tool"
)

// ToolSource is the duplex channel to a tool provider.
//
// The default implementation talks MCP to a spawned subprocess
// (internal/mcptool), but any provider offering these two operations
// is substitutable; LocalSource serves a registry in-process.
type ToolSource interface {
	// ListTools returns descriptors for all available tools, in a
	// stable order.
	ListTools(ctx context.Context) ([]model.Tool, error)

	// CallTool executes a tool by name. Execution failures come back
	// inside the Result; an error indicates the provider itself failed.
	CallTool(ctx context.Context, name string, args map[string]any) (*tool.Result, error)
}

// LocalSource adapts a tool registry to the ToolSource interface,
// bypassing any transport.
type LocalSource struct {
	Registry *tool.Registry
}

// ListTools returns descriptors in registration order.
func (s *LocalSource) ListTools(ctx context.Context) ([]model.Tool, error) {
	schemas := s.Registry.Schemas()
	tools := make([]model.Tool, 0, len(schemas))
	for _, schema := range schemas {
		tools = append(tools, model.Tool{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  schema.Parameters,
		})
	}
	return tools, nil
}

// CallTool executes a registry tool directly.
func (s *LocalSource) CallTool(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
	return s.Registry.Execute(ctx, name, args)
}
