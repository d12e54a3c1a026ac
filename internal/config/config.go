// Package config provides configuration for the aish relay.
// Configuration is read from ~/.aish/config.yaml and can be overridden
// through AISH_* environment variables. Defaults are defined in code so
// aish works with no config file at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all relay configuration.
type Config struct {
	// Prompt is the string printed before each input line in interactive mode.
	Prompt string `yaml:"prompt"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"logLevel"`

	// Shell is the shell binary used as the command collaborator.
	Shell string `yaml:"shell"`

	// Model is the chat completion model used for `ai` queries.
	Model string `yaml:"model"`

	// BaseURL is the OpenAI-compatible API endpoint.
	BaseURL string `yaml:"baseURL"`

	// APIKeyEnv names the environment variable holding the API credential.
	// The credential itself is never stored in the config file.
	APIKeyEnv string `yaml:"apiKeyEnv"`

	// Temperature for completion requests.
	Temperature float32 `yaml:"temperature"`

	// MaxTokens caps the completion length.
	MaxTokens int `yaml:"maxTokens"`

	// ContextLimit is how many recent transcript exchanges are sent as
	// context with each `ai` query.
	ContextLimit int `yaml:"contextLimit"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Prompt:       "aish> ",
		LogLevel:     "info",
		Shell:        "zsh",
		Model:        "gpt-4o-mini",
		BaseURL:      "https://api.openai.com/v1",
		APIKeyEnv:    "OPENAI_API_KEY",
		Temperature:  0.2,
		MaxTokens:    512,
		ContextLimit: 20,
	}
}

// Load reads configuration from the given YAML file, overlaying defaults.
// A missing file is not an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides config values from AISH_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("AISH_PROMPT"); v != "" {
		c.Prompt = v
	}
	if v := os.Getenv("AISH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("AISH_SHELL"); v != "" {
		c.Shell = v
	}
	if v := os.Getenv("AISH_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("AISH_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("AISH_API_KEY_ENV"); v != "" {
		c.APIKeyEnv = v
	}
	if v := os.Getenv("AISH_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f >= 0 {
			c.Temperature = float32(f)
		}
	}
	if v := os.Getenv("AISH_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv("AISH_CONTEXT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ContextLimit = n
		}
	}
}

// APIKey returns the API credential from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// ZapLevel converts the configured log level to a zap atomic level.
// Unknown values fall back to info.
func (c *Config) ZapLevel() zap.AtomicLevel {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}
	return zap.NewAtomicLevelAt(level)
}
