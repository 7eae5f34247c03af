package testutils

import (
	"context"
	"fmt"
	"sync"

	"diningguide/pkg/diningtypes"
)

// CompletionCall records one invocation of MockProvider.Complete.
type CompletionCall struct {
	SystemPrompt string
	History      []diningtypes.CompletionMessage
}

// MockProvider is a scripted CompletionProvider.
// Replies and errors are consumed in order; when the script runs out the
// provider echoes the number of turns it received.
// If Gate is non-nil, Complete blocks until a value is received from it.
type MockProvider struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   []CompletionCall

	Gate       chan struct{}
	Configured bool
}

// NewMockProvider creates a configured provider that answers with replies in order.
func NewMockProvider(replies ...string) *MockProvider {
	return &MockProvider{replies: replies, Configured: true}
}

// NewGatedMockProvider creates a provider whose calls block until Release is called.
func NewGatedMockProvider(replies ...string) *MockProvider {
	p := NewMockProvider(replies...)
	p.Gate = make(chan struct{})
	return p
}

// FailNext makes the next call fail with err.
func (m *MockProvider) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// Release lets one blocked call proceed.
func (m *MockProvider) Release() {
	m.Gate <- struct{}{}
}

// Complete implements diningtypes.CompletionProvider.
func (m *MockProvider) Complete(ctx context.Context, systemPrompt string, history []diningtypes.CompletionMessage) (string, error) {
	m.mu.Lock()
	recorded := make([]diningtypes.CompletionMessage, len(history))
	copy(recorded, history)
	m.calls = append(m.calls, CompletionCall{SystemPrompt: systemPrompt, History: recorded})
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", diningtypes.NewCompletionError("mock", ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", diningtypes.NewCompletionError("mock", err)
	}
	if len(m.replies) > 0 {
		reply := m.replies[0]
		m.replies = m.replies[1:]
		return reply, nil
	}
	return fmt.Sprintf("mock reply to %d turns", len(history)), nil
}

// GetProviderName implements diningtypes.CompletionProvider.
func (m *MockProvider) GetProviderName() string { return "mock" }

// IsConfigured implements diningtypes.CompletionProvider.
func (m *MockProvider) IsConfigured() bool { return m.Configured }

// Calls returns a copy of the recorded calls.
func (m *MockProvider) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Complete was invoked.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
