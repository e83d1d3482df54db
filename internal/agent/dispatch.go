// Package agent provides the Dispatcher - Scout's tool-invocation loop.
//
// The dispatcher owns the conversation for one user turn: it sends the
// prompt plus available tool schemas to the model, executes requested
// tools, feeds the results back, and iterates until the model produces
// a final natural-language answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/flynn-ai/scout/internal/errors"
	"github.com/flynn-ai/scout/internal/model"
	"github.com/flynn-ai/scout/internal/prompt"
	"github.com/flynn-ai/scout/internal/stats"
	"github.com/flynn-ai/scout/internal/tool"
)

const (
	// DefaultMaxRounds bounds model consultations per turn. A model
	// that keeps calling tools would otherwise loop forever.
	DefaultMaxRounds = 8

	// DefaultToolTimeout bounds one tool execution.
	DefaultToolTimeout = 30 * time.Second
)

// Dispatcher is the control cycle alternating between model
// consultation and tool execution until a final answer is produced.
type Dispatcher struct {
	model       model.Model
	tools       ToolSource
	maxRounds   int
	toolTimeout time.Duration
	stats       *stats.Collector

	promptBuilder *prompt.Builder

	// Cached values to avoid repeated computation
	cachedSystemPrompt string
	cachedTools        []model.Tool
	once               sync.Once
	cacheErr           error
}

// Config configures the Dispatcher.
type Config struct {
	Model       model.Model
	Tools       ToolSource
	MaxRounds   int
	ToolTimeout time.Duration
	Stats       *stats.Collector
	Prompt      *prompt.Builder
}

// NewDispatcher creates a new Dispatcher.
// Both collaborators are required; there is no ambient fallback.
func NewDispatcher(cfg *Config) (*Dispatcher, error) {
	if cfg == nil || cfg.Model == nil {
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "dispatcher requires a model gateway", apperrors.CategorySystem)
	}
	if cfg.Tools == nil {
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "dispatcher requires a tool source", apperrors.CategorySystem)
	}

	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	toolTimeout := cfg.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = DefaultToolTimeout
	}
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	builder := cfg.Prompt
	if builder == nil {
		builder = prompt.NewBuilder(prompt.ModeFull)
	}

	return &Dispatcher{
		model:         cfg.Model,
		tools:         cfg.Tools,
		maxRounds:     maxRounds,
		toolTimeout:   toolTimeout,
		stats:         collector,
		promptBuilder: builder,
	}, nil
}

// Turn is the outcome of one dispatched user turn.
type Turn struct {
	Answer     string          `json:"answer"`
	Rounds     int             `json:"rounds"`
	ToolCalls  int             `json:"tool_calls"`
	TokensUsed int             `json:"tokens_used"`
	DurationMs int64           `json:"duration_ms"`
	Messages   []model.Message `json:"messages"`
}

// Stats returns the dispatcher's stats collector.
func (d *Dispatcher) Stats() *stats.Collector {
	return d.stats
}

// Run dispatches one user turn and returns the final answer.
//
// Every tool call requested by a model response receives exactly one
// correlated tool message before the model is consulted again. Tool
// failures are reported back to the model; a gateway failure aborts
// the turn.
func (d *Dispatcher) Run(ctx context.Context, userPrompt string) (*Turn, error) {
	startTime := time.Now()

	d.once.Do(d.buildCache)
	if d.cacheErr != nil {
		d.stats.RecordError()
		return nil, apperrors.Wrap(d.cacheErr, apperrors.CodeTransportFailed, "failed to list tools", apperrors.CategoryTemporary)
	}

	turn := &Turn{
		Messages: []model.Message{model.UserMessage(userPrompt)},
	}

	for round := 1; round <= d.maxRounds; round++ {
		resp, err := d.model.Generate(ctx, &model.Request{
			System:   d.cachedSystemPrompt,
			Messages: turn.Messages,
			Tools:    d.cachedTools,
		})
		if err != nil {
			// Gateway errors are fatal for the turn: no retry, no
			// partial answer.
			d.stats.RecordError()
			return nil, err
		}
		d.stats.RecordModelCall(resp.TokensUsed)
		turn.Rounds = round
		turn.TokensUsed += resp.TokensUsed

		if resp.Final() {
			if strings.TrimSpace(resp.Text) == "" {
				d.stats.RecordError()
				return nil, apperrors.NewBuilder(apperrors.CodeGatewayEmptyResponse, "model returned empty response").
					Temporary().
					WithSuggestion("Try rephrasing your request").
					Build()
			}
			turn.Answer = resp.Text
			turn.Messages = append(turn.Messages, model.AssistantMessage(resp.Text, nil))
			turn.DurationMs = time.Since(startTime).Milliseconds()
			d.stats.RecordTurn(time.Since(startTime))
			return turn, nil
		}

		calls := ensureCallIDs(resp.ToolCalls)
		turn.Messages = append(turn.Messages, model.AssistantMessage(resp.Text, calls))
		turn.ToolCalls += len(calls)

		// All calls in one response are independent: run them in
		// parallel, but collect every result before the next model
		// call.
		results := d.executeToolCalls(ctx, calls)
		for i, call := range calls {
			turn.Messages = append(turn.Messages, model.ToolMessage(call.ID, renderResult(results[i])))
		}
	}

	d.stats.RecordError()
	return nil, apperrors.NewBuilder(apperrors.CodeMaxRoundsExceeded,
		fmt.Sprintf("no final answer after %d rounds", d.maxRounds)).
		Permanent().
		WithSuggestion("Raise max_rounds in config if the task legitimately needs more tool calls").
		Build()
}

// buildCache fetches tool descriptors and builds the system prompt once.
func (d *Dispatcher) buildCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tools, err := d.tools.ListTools(ctx)
	if err != nil {
		d.cacheErr = err
		return
	}
	d.cachedTools = tools

	lines := make([]prompt.ToolLine, 0, len(tools))
	for _, t := range tools {
		lines = append(lines, prompt.ToolLine{Name: t.Name, Description: t.Description})
	}
	d.cachedSystemPrompt = d.promptBuilder.BuildSystemPrompt(prompt.SystemContext{
		Tooling: prompt.ToolingSection(lines),
	})
}

// executeToolCalls executes tool calls using the tool source.
// Results are returned in request order, one per call.
func (d *Dispatcher) executeToolCalls(ctx context.Context, toolCalls []model.ToolCall) []*tool.Result {
	type toolResult struct {
		index  int
		result *tool.Result
	}

	resultChan := make(chan toolResult, len(toolCalls))
	var wg sync.WaitGroup

	// Execute all tool calls in parallel
	for i, tc := range toolCalls {
		wg.Add(1)
		go func(idx int, call model.ToolCall) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, d.toolTimeout)
			defer cancel()

			result, err := d.tools.CallTool(callCtx, call.Name, call.Input)
			if err != nil {
				// Unknown tools and provider failures are reported to
				// the model as failed results, never as aborted turns.
				result = tool.NewErrorResult(err)
			}
			d.stats.RecordToolCall(result.Success)
			resultChan <- toolResult{index: idx, result: result}
		}(i, tc)
	}

	// Close channel when all goroutines complete
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results in order
	results := make([]*tool.Result, len(toolCalls))
	for r := range resultChan {
		results[r.index] = r.result
	}
	return results
}

// ensureCallIDs guarantees every call carries a correlation identifier.
func ensureCallIDs(calls []model.ToolCall) []model.ToolCall {
	out := make([]model.ToolCall, len(calls))
	copy(out, calls)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = "call_" + uuid.NewString()
		}
	}
	return out
}

// renderResult formats a tool result as the content of a tool message.
func renderResult(r *tool.Result) string {
	if r == nil {
		return "Error: tool produced no result"
	}
	if !r.Success {
		return "Error: " + r.Error
	}
	return formatToolOutput(r.Data)
}

// formatToolOutput formats tool output as a string.
func formatToolOutput(data any) string {
	if data == nil {
		return ""
	}

	if s, ok := data.(string); ok {
		return s
	}

	// Structured data goes to the model as JSON
	if jsonBytes, err := json.MarshalIndent(data, "", "  "); err == nil {
		return string(jsonBytes)
	}
	return fmt.Sprintf("%v", data)
}
