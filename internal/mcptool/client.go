// Package mcptool provides the client side of the tool transport.
package mcptool

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/flynn-ai/scout/internal/errors"
	"github.com/flynn-ai/scout/internal/model"
	"github.com/flynn-ai/scout/internal/tool"
)

// Session adapts an MCP client session to the agent's ToolSource.
type Session struct {
	cs *mcp.ClientSession
}

// Connect spawns the tool server subprocess and establishes a session
// over its standard streams.
func Connect(ctx context.Context, command string, args ...string) (*Session, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "scout", Version: "0.1.0"}, nil)

	cmd := exec.Command(command, args...)
	cs, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, apperrors.NewBuilder(apperrors.CodeTransportFailed, "failed to connect to tool server").
			System().
			Wrap(err).
			WithSuggestion("Check that the tool server binary exists and is executable").
			WithContext("command", command).
			Build()
	}

	return &Session{cs: cs}, nil
}

// NewSession wraps an already-connected client session.
// Used by tests with in-memory transports.
func NewSession(cs *mcp.ClientSession) *Session {
	return &Session{cs: cs}
}

// ListTools returns descriptors for all tools the server exposes.
func (s *Session) ListTools(ctx context.Context) ([]model.Tool, error) {
	res, err := s.cs.ListTools(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransportFailed, "failed to list tools", apperrors.CategoryTemporary)
	}

	tools := make([]model.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		params, err := schemaToMap(t.InputSchema)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeTransportFailed, "invalid tool schema for "+t.Name, apperrors.CategoryPermanent)
		}
		tools = append(tools, model.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return tools, nil
}

// CallTool executes a tool on the server and maps the outcome onto a
// Result. Tool-level failures arrive as IsError results, not errors.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
	start := time.Now()

	res, err := s.cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransportFailed, "tool call failed: "+name, apperrors.CategoryTemporary)
	}

	text := contentText(res.Content)
	result := &tool.Result{}
	if res.IsError {
		result.Success = false
		result.Error = text
	} else {
		result.Success = true
		result.Data = text
	}
	return tool.TimedResult(result, start), nil
}

// Close terminates the session and the server subprocess.
func (s *Session) Close() error {
	return s.cs.Close()
}

// schemaToMap converts a JSON Schema into the generic parameter map
// the model gateway sends with tool definitions.
func schemaToMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object"}, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	if err := json.Unmarshal(b, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// contentText joins all text content blocks of a call result.
func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
