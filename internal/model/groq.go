// Package model provides the Groq API client for cloud LLM access.
// Groq exposes an OpenAI-compatible API at https://api.groq.com/openai/v1
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/flynn-ai/scout/internal/errors"
)

// GroqConfig configures the Groq client.
type GroqConfig struct {
	APIKey      string
	BaseURL     string // Default: https://api.groq.com/openai/v1
	Model       string // e.g., "meta-llama/llama-4-maverick-17b-128e-instruct"
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// DefaultGroqConfig returns default configuration for Groq.
func DefaultGroqConfig(apiKey string) *GroqConfig {
	return &GroqConfig{
		APIKey:      apiKey,
		BaseURL:     "https://api.groq.com/openai/v1",
		Model:       "meta-llama/llama-4-maverick-17b-128e-instruct",
		Timeout:     120 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// GroqClient implements Model interface using the Groq API.
// The API is OpenAI-compatible, supporting chat completions and function calling.
//
// The client performs a single attempt per call. A failed completion is
// fatal for the current turn; the dispatch loop never retries it.
type GroqClient struct {
	cfg    *GroqConfig
	client *http.Client
}

// NewGroqClient creates a new Groq client.
func NewGroqClient(cfg *GroqConfig) *GroqClient {
	if cfg == nil {
		return nil
	}
	return &GroqClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Generate sends the conversation to Groq and returns the response.
func (c *GroqClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if c == nil {
		return nil, errors.New(errors.CodeGatewayUnavailable, "Groq client not initialized", errors.CategorySystem)
	}

	if !c.IsAvailable() {
		return nil, errors.NewBuilder(errors.CodeGatewayUnauthorized, "Groq API key not configured").
			User().
			WithSuggestion("Set GROQ_API_KEY environment variable or configure in config.toml").
			WithSuggestion("Get an API key from console.groq.com").
			Build()
	}

	start := time.Now()

	body, err := c.buildRequestBody(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGatewayParseError, "failed to marshal request", errors.CategoryPermanent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to create HTTP request", errors.CategoryTemporary)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	r, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.CodeGatewayTimeout, "model request canceled", errors.CategoryTemporary)
		}
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "network request failed", errors.CategoryTemporary)
	}

	respBody, readErr := io.ReadAll(r.Body)
	r.Body.Close()
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.CodeNetworkUnavailable, "failed to read response body", errors.CategoryTemporary)
	}

	// Handle HTTP status codes
	switch r.StatusCode {
	case http.StatusOK:
		// Fall through to parsing
	case http.StatusTooManyRequests:
		return nil, handleRateLimit(r, respBody)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errors.NewBuilder(errors.CodeGatewayUnauthorized, "invalid API key").
			User().
			WithSuggestion("Check your Groq API key").
			Build()
	case http.StatusBadRequest:
		return nil, errors.NewBuilder(errors.CodeGatewayParseError, "bad request - check model name and parameters").
			User().
			WithContext("response", string(respBody)).
			Build()
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return nil, errors.Temporary(errors.CodeGatewayUnavailable, fmt.Sprintf("API unavailable: %s", r.Status))
	default:
		return nil, errors.Temporary(errors.CodeGatewayUnavailable, fmt.Sprintf("API error (status %d): %s", r.StatusCode, string(respBody)))
	}

	// Parse response (OpenAI-compatible format)
	var groqResp groqResponse
	if err := json.Unmarshal(respBody, &groqResp); err != nil {
		return nil, errors.NewBuilder(errors.CodeGatewayParseError, "failed to parse API response").
			Permanent().
			Wrap(err).
			WithContext("response_body", string(respBody)).
			Build()
	}

	if len(groqResp.Choices) == 0 {
		return nil, errors.New(errors.CodeGatewayEmptyResponse, "API response contained no choices", errors.CategoryPermanent)
	}

	// Build model response
	choice := groqResp.Choices[0]
	modelResp := &Response{
		Text:       choice.Message.Content,
		TokensUsed: groqResp.Usage.TotalTokens,
		Model:      groqResp.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}

	// Parse tool calls if present
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "function" {
			continue
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			args = map[string]any{"raw": tc.Function.Arguments}
		}
		id := tc.ID
		if id == "" {
			// The correlation invariant requires every call to carry an
			// identifier even when the backend omits one.
			id = "call_" + uuid.NewString()
		}
		modelResp.ToolCalls = append(modelResp.ToolCalls, ToolCall{
			ID:    id,
			Name:  tc.Function.Name,
			Input: args,
		})
	}

	return modelResp, nil
}

// buildRequestBody serializes the request in OpenAI chat-completions format.
func (c *GroqClient) buildRequestBody(req *Request) ([]byte, error) {
	messages := make([]groqMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, groqMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		gm := groqMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Input)
			if err != nil {
				return nil, fmt.Errorf("marshal tool call arguments: %w", err)
			}
			gm.ToolCalls = append(gm.ToolCalls, groqToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: groqFunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		messages = append(messages, gm)
	}

	body := map[string]any{
		"model":    c.cfg.Model,
		"messages": messages,
	}

	if c.cfg.MaxTokens > 0 {
		body["max_tokens"] = c.cfg.MaxTokens
	}
	if c.cfg.Temperature > 0 {
		body["temperature"] = c.cfg.Temperature
	}

	// Add tools for function calling (OpenAI format)
	if len(req.Tools) > 0 {
		tools := []map[string]any{}
		for _, tool := range req.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        tool.Name,
					"description": tool.Description,
					"parameters":  tool.Parameters,
				},
			})
		}
		body["tools"] = tools
	}

	return json.Marshal(body)
}

// handleRateLimit builds a rate limit error from a 429 response.
func handleRateLimit(r *http.Response, body []byte) error {
	retryAfter := 30 * time.Second
	if v := r.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	return errors.RateLimit(errors.CodeGatewayRateLimit,
		fmt.Sprintf("rate limited by API: %s", string(body)), retryAfter)
}

// IsAvailable checks if the client is configured.
func (c *GroqClient) IsAvailable() bool {
	return c != nil && c.cfg != nil && c.cfg.APIKey != ""
}

// Name returns the model name.
func (c *GroqClient) Name() string {
	if c.cfg != nil {
		return c.cfg.Model
	}
	return "groq"
}

// ============================================================
// Groq API Types (OpenAI-compatible)
// ============================================================

type groqMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []groqToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type groqToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function groqFunctionCall `json:"function"`
}

type groqFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type groqResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []groqToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
