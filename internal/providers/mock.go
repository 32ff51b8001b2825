package providers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/scribe/internal/schema"
)

// MockExtractor is an Extractor for testing.
type MockExtractor struct {
	// Configurable behavior
	Latency  time.Duration
	Result   ExtractedResult
	Err      error
	Validate bool // Check Result against the contract before returning it

	// State
	calls   atomic.Int64
	mu      sync.Mutex
	prompts []string
}

// NewMockExtractor returns a mock that answers every call with result.
func NewMockExtractor(result ExtractedResult) *MockExtractor {
	return &MockExtractor{Result: result}
}

// Extract records the prompt and returns the configured result or error.
func (m *MockExtractor) Extract(ctx context.Context, prompt string, contract schema.Contract) (ExtractedResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, &CancelledError{Err: ctx.Err()}
		case <-time.After(m.Latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Err: err}
	}

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Validate {
		if err := contract.Validate(map[string]any(m.Result)); err != nil {
			return nil, err
		}
	}
	return m.Result, nil
}

// Calls returns how many times Extract was called.
func (m *MockExtractor) Calls() int {
	return int(m.calls.Load())
}

// Prompts returns the prompts seen so far.
func (m *MockExtractor) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

var _ Extractor = (*MockExtractor)(nil)
