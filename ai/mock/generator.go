package mock

import (
	"context"
	"sync"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
)

// GenerateCall records the arguments of one Generate call.
type GenerateCall struct {
	Messages []core.Message
	Options  ai.GenerateOptions
}

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, the reply echoes the last message.
	GenerateFunc func(ctx context.Context, messages []core.Message, opts ai.GenerateOptions) (string, error)

	mu    sync.Mutex
	calls []GenerateCall
}

// NewMockGenerator creates a mock generator with echo behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// WithGenerateFunc sets GenerateFunc and returns the mock for chaining.
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, messages []core.Message, opts ai.GenerateOptions) (string, error)) *MockGenerator {
	m.GenerateFunc = fn
	return m
}

// Generate records the call and returns GenerateFunc's result or an echo.
func (m *MockGenerator) Generate(ctx context.Context, messages []core.Message, opts ai.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{
		Messages: append([]core.Message(nil), messages...),
		Options:  opts,
	})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages, opts)
	}
	if len(messages) == 0 {
		return "", nil
	}
	return "echo: " + messages[len(messages)-1].Content, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls.
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// LastCall returns the most recent call, or false if none were made.
func (m *MockGenerator) LastCall() (GenerateCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return GenerateCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// Reset clears recorded calls and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
	m.GenerateFunc = nil
}
