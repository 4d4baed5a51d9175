// Package llm provides the text and structured-output generation collaborator
// used by the pipeline stages, with providers backed by agentkit or any
// OpenAI-compatible endpoint.
package llm

import (
	"context"

	agentllm "github.com/vinayprograms/agentkit/llm"

	"github.com/rivalmap/rivalmap/internal/config"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-agnostic chat call.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse carries the model's reply text.
type ChatResponse struct {
	Content string
}

// Provider is a chat-capable LLM backend.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// NewProvider builds a provider from configuration. OpenAI-style endpoints
// (openai, openrouter, litellm, or any custom base_url without a named
// provider) go through the HTTP provider; everything else goes through
// agentkit.
func NewProvider(cfg config.LLMConfig, apiKey string) (Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = agentllm.InferProviderFromModel(cfg.Model)
	}
	if name == "" && cfg.Model == "" {
		return nil, &ConfigurationError{Reason: "model not set"}
	}

	switch name {
	case "openai", "openrouter", "litellm", "ovh", "":
		if apiKey == "" {
			return nil, &ConfigurationError{Reason: "api key not set"}
		}
		return newOpenAIProvider(name, cfg, apiKey), nil
	default:
		return newAgentkitProvider(name, cfg, apiKey)
	}
}
