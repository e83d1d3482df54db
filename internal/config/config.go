// Package config handles Scout configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/flynn-ai/scout/internal/errors"
)

// DefaultPath returns the default config file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".scout", "config.toml")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			Name:           "meta-llama/llama-4-maverick-17b-128e-instruct",
			Temperature:    0.2,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
		},
		Dispatch: DispatchConfig{
			MaxRounds:          8,
			ToolTimeoutSeconds: 30,
		},
		Tools: ToolsConfig{
			ServerCommand:        "scout-server",
			LookupTimeoutSeconds: 10,
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults. The GROQ_API_KEY
// environment variable overrides the configured credential.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file doesn't exist, return defaults
			return applyEnv(cfg), nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeConfigNotFound, "failed to read config file", apperrors.CategorySystem)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.NewBuilder(apperrors.CodeConfigInvalid, "failed to parse config file").
			User().
			Wrap(err).
			WithContext("path", configPath).
			Build()
	}

	return applyEnv(cfg), nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// applyEnv applies environment overrides.
func applyEnv(cfg *Config) *Config {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.Model.APIKey = key
	}
	return cfg
}

// ModelTimeout returns the gateway request timeout.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// ToolTimeout returns the per-tool-call timeout.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Dispatch.ToolTimeoutSeconds) * time.Second
}

// LookupTimeout returns the upstream lookup timeout.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Tools.LookupTimeoutSeconds) * time.Second
}
