package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// AnthropicStub is a fake Messages API. It answers every request with a
// structured_output tool_use block unless failures are queued.
type AnthropicStub struct {
	*httptest.Server

	mu        sync.Mutex
	toolInput json.RawMessage
	failures  []int
	requests  []json.RawMessage
}

// NewAnthropicStub starts a stub answering with toolInput. It is closed
// when the test ends.
func NewAnthropicStub(t *testing.T, toolInput string) *AnthropicStub {
	t.Helper()
	s := &AnthropicStub{toolInput: json.RawMessage(toolInput)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FailNext queues n responses with the given status before succeeding.
func (s *AnthropicStub) FailNext(status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		s.failures = append(s.failures, status)
	}
}

// Requests returns the request bodies received so far.
func (s *AnthropicStub) Requests() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.requests...)
}

func (s *AnthropicStub) handle(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, body)
	status := 0
	if len(s.failures) > 0 {
		status = s.failures[0]
		s.failures = s.failures[1:]
	}
	input := s.toolInput
	n := len(s.requests)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
		return
	}
	fmt.Fprintf(w, `{"id":"msg_%d","type":"message","role":"assistant","model":"claude-test",`+
		`"content":[{"type":"tool_use","id":"toolu_%d","name":"structured_output","input":%s}],`+
		`"stop_reason":"tool_use","usage":{"input_tokens":120,"output_tokens":45}}`, n, n, input)
}
