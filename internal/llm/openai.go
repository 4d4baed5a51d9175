package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rivalmap/rivalmap/internal/config"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openaiProvider speaks the OpenAI chat-completions wire format. It covers
// openai itself plus openrouter/litellm-style proxies via base_url.
type openaiProvider struct {
	name    string
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

func newOpenAIProvider(name string, cfg config.LLMConfig, apiKey string) *openaiProvider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	if name == "" {
		name = "openai"
	}
	return &openaiProvider{
		name:    name,
		model:   cfg.Model,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *openaiProvider) Name() string { return p.name }

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *openaiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       p.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &GenerationError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &GenerationError{Err: err}
	}
	if parsed.Error != nil {
		return nil, &GenerationError{Err: fmt.Errorf("api error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &GenerationError{Err: fmt.Errorf("empty choices in response")}
	}
	return &ChatResponse{Content: parsed.Choices[0].Message.Content}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
