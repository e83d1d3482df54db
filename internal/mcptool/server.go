// Package mcptool bridges the tool registry and the MCP transport.
//
// The registry is served over MCP stdio by cmd/scout-server; the chat
// client consumes it through Session. Both sides of the boundary speak
// only "list tools" and "call tool".
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flynn-ai/scout/internal/tool"
)

// BuildServer exposes every registry tool on a new MCP server.
func BuildServer(reg *tool.Registry, name, version string) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	for _, schema := range reg.Schemas() {
		inputSchema, err := toJSONSchema(schema.Parameters)
		if err != nil {
			return nil, fmt.Errorf("schema for tool %s: %w", schema.Name, err)
		}

		toolName := schema.Name
		server.AddTool(&mcp.Tool{
			Name:        toolName,
			Description: schema.Description,
			InputSchema: inputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := decodeArguments(req.Params.Arguments)
			if err != nil {
				return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
			}

			result, err := reg.Execute(ctx, toolName, args)
			if err != nil {
				return errorResult(err.Error()), nil
			}
			if !result.Success {
				return errorResult(result.Error), nil
			}
			return textResult(formatData(result.Data)), nil
		})
	}

	return server, nil
}

// toJSONSchema converts a registry parameter map into a JSON Schema.
func toJSONSchema(params map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// decodeArguments normalizes the wire representation of call arguments.
func decodeArguments(v any) (map[string]any, error) {
	switch a := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return a, nil
	case json.RawMessage:
		return unmarshalArguments([]byte(a))
	case []byte:
		return unmarshalArguments(a)
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		return unmarshalArguments(b)
	}
}

func unmarshalArguments(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	args := map[string]any{}
	if err := json.Unmarshal(b, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// formatData renders tool output for the wire.
func formatData(data any) string {
	if data == nil {
		return ""
	}
	if s, ok := data.(string); ok {
		return s
	}
	if b, err := json.MarshalIndent(data, "", "  "); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", data)
}
