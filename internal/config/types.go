// Package config provides configuration types for Scout.
package config

// Config represents the main Scout configuration.
type Config struct {
	Model    ModelConfig    `toml:"model"`
	Dispatch DispatchConfig `toml:"dispatch"`
	Tools    ToolsConfig    `toml:"tools"`
}

// ModelConfig configures the chat-completion gateway.
type ModelConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Name        string  `toml:"name"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`

	// TimeoutSeconds bounds one chat-completion request.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// DispatchConfig configures the tool-invocation loop.
type DispatchConfig struct {
	// MaxRounds bounds model consultations per user turn.
	MaxRounds int `toml:"max_rounds"`

	// ToolTimeoutSeconds bounds one tool execution.
	ToolTimeoutSeconds int `toml:"tool_timeout_seconds"`
}

// ToolsConfig configures the tool server and upstream lookups.
type ToolsConfig struct {
	// ServerCommand launches the MCP tool server subprocess.
	ServerCommand string   `toml:"server_command"`
	ServerArgs    []string `toml:"server_args"`

	// Local serves the registry in-process instead of spawning the
	// tool server. Mostly useful for debugging the tools themselves.
	Local bool `toml:"local"`

	// LookupTimeoutSeconds bounds one upstream data lookup.
	LookupTimeoutSeconds int `toml:"lookup_timeout_seconds"`
}
