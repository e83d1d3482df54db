package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/flynn-ai/scout/internal/errors"
	"github.com/flynn-ai/scout/internal/model"
	"github.com/flynn-ai/scout/internal/tool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeModel replays a scripted sequence of responses, one per Generate
// call, and records every request it sees.
type fakeModel struct {
	mu       sync.Mutex
	script   []scriptStep
	requests []*model.Request
}

type scriptStep struct {
	resp *model.Response
	err  error
}

func (m *fakeModel) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return nil, fmt.Errorf("unexpected model call %d", len(m.requests))
	}
	step := m.script[0]
	m.script = m.script[1:]
	return step.resp, step.err
}

func (m *fakeModel) IsAvailable() bool { return true }
func (m *fakeModel) Name() string      { return "fake" }

func finalStep(text string) scriptStep {
	return scriptStep{resp: &model.Response{Text: text, TokensUsed: 10}}
}

func callStep(calls ...model.ToolCall) scriptStep {
	return scriptStep{resp: &model.Response{ToolCalls: calls, TokensUsed: 10}}
}

// fakeSource serves a fixed tool list and delegates calls to a handler.
type fakeSource struct {
	tools   []model.Tool
	handler func(ctx context.Context, name string, args map[string]any) (*tool.Result, error)

	mu    sync.Mutex
	calls []string
}

func (s *fakeSource) ListTools(ctx context.Context) ([]model.Tool, error) {
	return s.tools, nil
}

func (s *fakeSource) CallTool(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	if s.handler != nil {
		return s.handler(ctx, name, args)
	}
	return tool.NewSuccessResult("result of " + name), nil
}

func newTestDispatcher(t *testing.T, m *fakeModel, s *fakeSource, opts ...func(*Config)) *Dispatcher {
	t.Helper()
	cfg := &Config{Model: m, Tools: s}
	for _, opt := range opts {
		opt(cfg)
	}
	d, err := NewDispatcher(cfg)
	require.NoError(t, err)
	return d
}

func singleTool(name string) []model.Tool {
	return []model.Tool{{Name: name, Description: "test tool", Parameters: map[string]any{"type": "object"}}}
}

func TestRunDirectAnswer(t *testing.T) {
	m := &fakeModel{script: []scriptStep{finalStep("Paris is the capital of France.")}}
	s := &fakeSource{tools: singleTool("get_weather")}
	d := newTestDispatcher(t, m, s)

	turn, err := d.Run(context.Background(), "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", turn.Answer)
	assert.Equal(t, 1, turn.Rounds)
	assert.Equal(t, 0, turn.ToolCalls)
	assert.Empty(t, s.calls)
}

func TestRunSingleToolRound(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(model.ToolCall{ID: "call_1", Name: "get_weather", Input: map[string]any{"city": "Paris"}}),
		finalStep("It is 21C in Paris."),
	}}
	s := &fakeSource{
		tools: singleTool("get_weather"),
		handler: func(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
			assert.Equal(t, "Paris", args["city"])
			return tool.NewSuccessResult("Temperature (C): 21"), nil
		},
	}
	d := newTestDispatcher(t, m, s)

	turn, err := d.Run(context.Background(), "weather in Paris?")
	require.NoError(t, err)
	assert.Equal(t, "It is 21C in Paris.", turn.Answer)
	assert.Equal(t, 2, turn.Rounds)
	assert.Equal(t, 1, turn.ToolCalls)
	assert.Equal(t, []string{"get_weather"}, s.calls)

	// The second model call must see the assistant tool-call message
	// followed by exactly one correlated tool message.
	require.Len(t, m.requests, 2)
	msgs := m.requests[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, model.RoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "Temperature (C): 21", msgs[2].Content)
}

func TestRunOneResultPerRequestedCall(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(
			model.ToolCall{ID: "call_a", Name: "get_weather", Input: map[string]any{"city": "Paris"}},
			model.ToolCall{ID: "call_b", Name: "get_bitcoin_price", Input: map[string]any{}},
			model.ToolCall{ID: "call_c", Name: "get_gold_silver_prices", Input: map[string]any{}},
		),
		finalStep("summary"),
	}}
	s := &fakeSource{
		tools: singleTool("get_weather"),
		handler: func(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
			return tool.NewSuccessResult("data from " + name), nil
		},
	}
	d := newTestDispatcher(t, m, s)

	turn, err := d.Run(context.Background(), "everything please")
	require.NoError(t, err)
	assert.Equal(t, 3, turn.ToolCalls)

	// Tool messages arrive in request order regardless of completion order.
	msgs := m.requests[1].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "call_a", msgs[2].ToolCallID)
	assert.Equal(t, "data from get_weather", msgs[2].Content)
	assert.Equal(t, "call_b", msgs[3].ToolCallID)
	assert.Equal(t, "call_c", msgs[4].ToolCallID)
}

func TestRunExecutesCallsInParallel(t *testing.T) {
	const n = 3
	barrier := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(n)

	calls := make([]model.ToolCall, n)
	for i := range calls {
		calls[i] = model.ToolCall{ID: fmt.Sprintf("call_%d", i), Name: "slow", Input: map[string]any{}}
	}

	m := &fakeModel{script: []scriptStep{callStep(calls...), finalStep("done")}}
	s := &fakeSource{
		tools: singleTool("slow"),
		handler: func(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
			// Every call must be in flight before any completes. A
			// sequential dispatcher deadlocks here and fails the timeout.
			arrived.Done()
			select {
			case <-barrier:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return tool.NewSuccessResult("ok"), nil
		},
	}
	d := newTestDispatcher(t, m, s, func(cfg *Config) { cfg.ToolTimeout = 2 * time.Second })

	go func() {
		arrived.Wait()
		close(barrier)
	}()

	turn, err := d.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, n, turn.ToolCalls)
}

func TestRunToolFailureReportedToModel(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(model.ToolCall{ID: "call_1", Name: "get_weather", Input: map[string]any{}}),
		finalStep("I could not fetch the weather."),
	}}
	s := &fakeSource{
		tools: singleTool("get_weather"),
		handler: func(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
			return tool.NewErrorResult(fmt.Errorf("wttr.in unreachable")), nil
		},
	}
	d := newTestDispatcher(t, m, s)

	turn, err := d.Run(context.Background(), "weather?")
	require.NoError(t, err)
	assert.Equal(t, "I could not fetch the weather.", turn.Answer)

	msgs := m.requests[1].Messages
	assert.Equal(t, "Error: wttr.in unreachable", msgs[2].Content)
}

func TestRunUnknownToolReportedToModel(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(model.ToolCall{ID: "call_1", Name: "get_stock_price", Input: map[string]any{}}),
		finalStep("I do not have that tool."),
	}}
	s := &fakeSource{
		tools: singleTool("get_weather"),
		handler: func(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
			return nil, apperrors.Permanent(apperrors.CodeToolNotFound, "tool not found: "+name)
		},
	}
	d := newTestDispatcher(t, m, s)

	turn, err := d.Run(context.Background(), "stock price?")
	require.NoError(t, err)
	assert.Equal(t, "I do not have that tool.", turn.Answer)

	msgs := m.requests[1].Messages
	assert.Equal(t, model.RoleTool, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "Error:")
	assert.Contains(t, msgs[2].Content, "get_stock_price")
}

func TestRunGatewayErrorIsFatal(t *testing.T) {
	gatewayErr := apperrors.Temporary(apperrors.CodeGatewayUnavailable, "API unavailable")
	m := &fakeModel{script: []scriptStep{{err: gatewayErr}}}
	s := &fakeSource{tools: singleTool("get_weather")}
	d := newTestDispatcher(t, m, s)

	turn, err := d.Run(context.Background(), "hello")
	assert.Nil(t, turn)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeGatewayUnavailable, appErr.Code)
	// One consultation, no retry.
	assert.Len(t, m.requests, 1)
}

func TestRunGatewayErrorMidTurnIsFatal(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(model.ToolCall{ID: "call_1", Name: "get_weather", Input: map[string]any{}}),
		{err: apperrors.Temporary(apperrors.CodeGatewayUnavailable, "API unavailable")},
	}}
	s := &fakeSource{tools: singleTool("get_weather")}
	d := newTestDispatcher(t, m, s)

	turn, err := d.Run(context.Background(), "weather?")
	assert.Nil(t, turn)
	require.Error(t, err)
	// The tool did run before the gateway failed.
	assert.Equal(t, []string{"get_weather"}, s.calls)
}

func TestRunEmptyFinalAnswer(t *testing.T) {
	m := &fakeModel{script: []scriptStep{finalStep("   ")}}
	s := &fakeSource{tools: singleTool("get_weather")}
	d := newTestDispatcher(t, m, s)

	_, err := d.Run(context.Background(), "hello")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeGatewayEmptyResponse, appErr.Code)
}

func TestRunMaxRoundsExceeded(t *testing.T) {
	// The model asks for a tool on every round and never answers.
	script := make([]scriptStep, 3)
	for i := range script {
		script[i] = callStep(model.ToolCall{ID: fmt.Sprintf("call_%d", i), Name: "get_weather", Input: map[string]any{}})
	}
	m := &fakeModel{script: script}
	s := &fakeSource{tools: singleTool("get_weather")}
	d := newTestDispatcher(t, m, s, func(cfg *Config) { cfg.MaxRounds = 3 })

	turn, err := d.Run(context.Background(), "weather?")
	assert.Nil(t, turn)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeMaxRoundsExceeded, appErr.Code)
	assert.Len(t, m.requests, 3)
}

func TestRunMintsMissingCallIDs(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(model.ToolCall{Name: "get_weather", Input: map[string]any{}}),
		finalStep("done"),
	}}
	s := &fakeSource{tools: singleTool("get_weather")}
	d := newTestDispatcher(t, m, s)

	_, err := d.Run(context.Background(), "weather?")
	require.NoError(t, err)

	msgs := m.requests[1].Messages
	assistantID := msgs[1].ToolCalls[0].ID
	assert.NotEmpty(t, assistantID)
	assert.Equal(t, assistantID, msgs[2].ToolCallID)
}

func TestRunForwardsToolSchemas(t *testing.T) {
	m := &fakeModel{script: []scriptStep{finalStep("hi")}}
	s := &fakeSource{tools: []model.Tool{
		{Name: "get_weather", Description: "weather", Parameters: map[string]any{"type": "object"}},
		{Name: "get_bitcoin_price", Description: "btc", Parameters: map[string]any{"type": "object"}},
	}}
	d := newTestDispatcher(t, m, s)

	_, err := d.Run(context.Background(), "hi")
	require.NoError(t, err)

	require.Len(t, m.requests, 1)
	req := m.requests[0]
	require.Len(t, req.Tools, 2)
	assert.Equal(t, "get_weather", req.Tools[0].Name)
	assert.Contains(t, req.System, "get_weather")
	assert.Contains(t, req.System, "get_bitcoin_price")
}

func TestRunStructuredToolOutputSerializedAsJSON(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(model.ToolCall{ID: "call_1", Name: "get_gold_silver_prices", Input: map[string]any{}}),
		finalStep("gold is up"),
	}}
	s := &fakeSource{
		tools: singleTool("get_gold_silver_prices"),
		handler: func(ctx context.Context, name string, args map[string]any) (*tool.Result, error) {
			return tool.NewSuccessResult(map[string]any{"currency": "USD"}), nil
		},
	}
	d := newTestDispatcher(t, m, s)

	_, err := d.Run(context.Background(), "gold?")
	require.NoError(t, err)

	content := m.requests[1].Messages[2].Content
	assert.JSONEq(t, `{"currency": "USD"}`, content)
}

func TestNewDispatcherRequiresCollaborators(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.Error(t, err)

	_, err = NewDispatcher(&Config{Model: &fakeModel{}})
	assert.Error(t, err)

	_, err = NewDispatcher(&Config{Tools: &fakeSource{}})
	assert.Error(t, err)
}

func TestRunRecordsStats(t *testing.T) {
	m := &fakeModel{script: []scriptStep{
		callStep(model.ToolCall{ID: "call_1", Name: "get_weather", Input: map[string]any{}}),
		finalStep("done"),
	}}
	s := &fakeSource{tools: singleTool("get_weather")}
	d := newTestDispatcher(t, m, s)

	_, err := d.Run(context.Background(), "weather?")
	require.NoError(t, err)

	snapshot := d.Stats().Collect()
	assert.Equal(t, int64(1), snapshot.TurnCount)
	assert.Equal(t, int64(2), snapshot.ModelCalls)
	assert.Equal(t, int64(1), snapshot.ToolCalls)
	assert.Equal(t, int64(0), snapshot.ToolFailures)
	assert.Equal(t, int64(20), snapshot.TokenCount)
}
