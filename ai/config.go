// Copyright 2026 Tessara Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// DefaultFallbackMessage is substituted for an answer that fails judging.
const DefaultFallbackMessage = "I'm sorry, I wasn't able to find a reliable answer to that. Could you rephrase your question?"

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://api.openai.com/v1" or a local OpenAI-compatible server
	EmbeddingHost string

	// JudgeHost is the base URL for the judge chat service API.
	JudgeHost string

	// APIToken authenticates against the services. Use "none" for local
	// OpenAI-compatible servers that don't require authentication.
	APIToken string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small"
	EmbeddingModel string

	// JudgeModel is the model identifier to use for response judging.
	// Example: "gpt-4o-mini"
	JudgeModel string

	// EmbeddingDimensions is the expected vector length.
	// Default: 1536
	EmbeddingDimensions int

	// EmbeddingBatchSize is the maximum number of texts per embedding
	// request. Larger inputs are split into multiple requests.
	// Default: 100
	EmbeddingBatchSize int

	// PassThreshold is the minimum score (0-1) each judge dimension must
	// reach for a draft to pass. Default: 0.70
	PassThreshold float64

	// FallbackMessage replaces answers that fail judging.
	FallbackMessage string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithJudgeHost sets the judge service host URL.
func WithJudgeHost(host string) ConfigOption {
	return func(c *Config) {
		c.JudgeHost = host
	}
}

// WithHost sets both embedding and judge hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.JudgeHost = host
	}
}

// WithAPIToken sets the API token.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithJudgeModel sets the judge model identifier.
func WithJudgeModel(model string) ConfigOption {
	return func(c *Config) {
		c.JudgeModel = model
	}
}

// WithEmbeddingDimensions sets the expected embedding vector length.
func WithEmbeddingDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimensions = dims
	}
}

// WithEmbeddingBatchSize sets the maximum batch size for embedding requests.
func WithEmbeddingBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingBatchSize = size
	}
}

// WithPassThreshold sets the minimum per-dimension judge score.
func WithPassThreshold(threshold float64) ConfigOption {
	return func(c *Config) {
		c.PassThreshold = threshold
	}
}

// WithFallbackMessage sets the message substituted for failed answers.
func WithFallbackMessage(message string) ConfigOption {
	return func(c *Config) {
		c.FallbackMessage = message
	}
}

// DefaultConfig returns a Config with sensible defaults for OpenAI-compatible
// services. By default, embedding and judge use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:       defaultHost,
		JudgeHost:           defaultHost,
		APIToken:            "none",
		EmbeddingModel:      "text-embedding-3-small",
		JudgeModel:          "gpt-4o-mini",
		EmbeddingDimensions: 1536,
		EmbeddingBatchSize:  100,
		PassThreshold:       0.70,
		FallbackMessage:     DefaultFallbackMessage,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("https://api.openai.com"),
//	    ai.WithAPIToken(os.Getenv("OPENAI_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	if c.JudgeHost != "" && !strings.HasSuffix(c.JudgeHost, "/v1") {
		c.JudgeHost = strings.TrimSuffix(c.JudgeHost, "/")
		c.JudgeHost = c.JudgeHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.JudgeHost == "" {
		return errors.New("ai config: JudgeHost is required")
	}
	if c.APIToken == "" {
		return errors.New("ai config: APIToken is required (use \"none\" for local services)")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.JudgeModel == "" {
		return errors.New("ai config: JudgeModel is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return errors.New("ai config: EmbeddingDimensions must be positive")
	}
	if c.EmbeddingBatchSize < 1 || c.EmbeddingBatchSize > 2048 {
		return errors.New("ai config: EmbeddingBatchSize must be between 1 and 2048")
	}
	if c.PassThreshold < 0 || c.PassThreshold > 1 {
		return errors.New("ai config: PassThreshold must be between 0 and 1")
	}
	if c.FallbackMessage == "" {
		return errors.New("ai config: FallbackMessage is required")
	}
	return nil
}
