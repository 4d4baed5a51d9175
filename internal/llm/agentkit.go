package llm

import (
	"context"
	"fmt"
	"time"

	agentllm "github.com/vinayprograms/agentkit/llm"

	"github.com/rivalmap/rivalmap/internal/config"
)

// agentkitProvider adapts an agentkit provider (anthropic, google, mistral,
// groq) to the Provider interface.
type agentkitProvider struct {
	inner agentllm.Provider
	name  string
}

func newAgentkitProvider(name string, cfg config.LLMConfig, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("api key not set for provider %s", name)}
	}
	inner, err := agentllm.NewProvider(agentllm.ProviderConfig{
		Provider:    name,
		Model:       cfg.Model,
		APIKey:      apiKey,
		MaxTokens:   cfg.MaxTokens,
		BaseURL:     cfg.BaseURL,
		Thinking:    agentllm.ThinkingConfig{Level: agentllm.ThinkingLevel(cfg.Thinking)},
		RetryConfig: parseRetryConfig(cfg.MaxRetries, cfg.RetryBackoff),
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return &agentkitProvider{inner: inner, name: name}, nil
}

func (p *agentkitProvider) Name() string { return p.name }

func (p *agentkitProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]agentllm.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = agentllm.Message{Role: m.Role, Content: m.Content}
	}
	resp, err := p.inner.Chat(ctx, agentllm.ChatRequest{Messages: messages})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	return &ChatResponse{Content: resp.Content}, nil
}

// parseRetryConfig converts config retry settings to agentkit's RetryConfig.
func parseRetryConfig(maxRetries int, backoffStr string) agentllm.RetryConfig {
	cfg := agentllm.RetryConfig{
		MaxRetries: maxRetries,
	}
	if backoffStr != "" {
		if d, err := time.ParseDuration(backoffStr); err == nil {
			cfg.MaxBackoff = d
		}
	}
	return cfg
}
