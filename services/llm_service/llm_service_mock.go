package llm_service

import (
	"context"
	"sync"
)

type MockLLMService struct {
	CallLLMFunc func(ctx context.Context, config map[string]interface{}, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *MockLLMService) CallLLM(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CallLLMFunc != nil {
		return m.CallLLMFunc(ctx, config, prompt)
	}
	return "mock response", nil
}

// Prompts returns every prompt received so far, in call order.
func (m *MockLLMService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockLLMService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
