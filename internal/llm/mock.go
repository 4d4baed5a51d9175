package llm

import (
	"context"
	"sync"
)

// MockProvider is a scriptable Provider for tests.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	last      *ChatRequest
	calls     int

	// ChatFunc, when set, overrides the scripted responses entirely.
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider creates a mock with no scripted responses; Chat returns an
// empty reply until SetResponse is called.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetResponse scripts a single response returned for every call.
func (m *MockProvider) SetResponse(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = []string{s}
}

// SetResponses scripts a response queue; the final entry repeats once the
// queue is exhausted.
func (m *MockProvider) SetResponses(rs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]string{}, rs...)
}

// SetError makes every Chat call fail.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// LastRequest returns the most recent request seen by Chat.
func (m *MockProvider) LastRequest() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Calls returns how many times Chat was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.last = &req
	m.calls++
	idx := m.calls - 1
	err := m.err
	var content string
	if len(m.responses) > 0 {
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		content = m.responses[idx]
	}
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &ChatResponse{Content: content}, nil
}
