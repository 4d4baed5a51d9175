package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Generate defaults applied when the caller passes zero values.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 4096
)

// GenerateOptions tune a single generation call.
type GenerateOptions struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Generator is the text/JSON generation collaborator consumed by the stage
// nodes. A Generator with a nil provider is valid and reports unconfigured.
type Generator struct {
	provider Provider
}

// NewGenerator wraps a provider. A nil provider produces an unconfigured
// generator whose calls fail with ConfigurationError.
func NewGenerator(provider Provider) *Generator {
	return &Generator{provider: provider}
}

// IsConfigured reports whether generation calls can be attempted.
func (g *Generator) IsConfigured() bool {
	return g != nil && g.provider != nil
}

// Generate produces free text for a prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if !g.IsConfigured() {
		return "", &ConfigurationError{Reason: "no provider"}
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	var messages []Message
	if opts.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	resp, err := g.provider.Chat(ctx, ChatRequest{
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		switch err.(type) {
		case *ConfigurationError, *GenerationError:
			return "", err
		}
		return "", &GenerationError{Err: err}
	}
	return resp.Content, nil
}

// GenerateStructured produces a JSON object and decodes it into out. Markdown
// code fences are stripped, and if the remaining text is not a bare object the
// substring between the first '{' and the last '}' is decoded.
func (g *Generator) GenerateStructured(ctx context.Context, prompt string, opts GenerateOptions, out interface{}) error {
	text, err := g.Generate(ctx, prompt, opts)
	if err != nil {
		return err
	}

	cleaned := extractJSONObject(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &InvalidResponseError{Raw: text, Err: err}
	}
	return nil
}

// extractJSONObject strips ``` / ```json fences and falls back to the
// first-'{' to last-'}' substring when the text is not a bare object.
func extractJSONObject(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
