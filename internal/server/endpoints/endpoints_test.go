package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/scribe/internal/api"
	"github.com/jackzampolin/scribe/internal/llmcall"
	"github.com/jackzampolin/scribe/internal/metrics"
	"github.com/jackzampolin/scribe/internal/prompts"
	"github.com/jackzampolin/scribe/internal/prompts/contacts"
	"github.com/jackzampolin/scribe/internal/providers"
	"github.com/jackzampolin/scribe/internal/svcctx"
)

// newTestHandler serves every endpoint with services injected.
func newTestHandler(t *testing.T, svc *svcctx.Services) http.Handler {
	t.Helper()
	reg := api.NewRegistry()
	for _, ep := range All() {
		reg.Register(ep)
	}
	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc { return next })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), svc)))
	})
}

func newServices(t *testing.T, extractor providers.Extractor) *svcctx.Services {
	t.Helper()
	store, err := llmcall.Open(context.Background(), filepath.Join(t.TempDir(), "calls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := providers.NewRegistry(nil)
	if extractor != nil {
		registry.Set(extractor)
	}
	pr := prompts.NewRegistry(nil)
	contacts.RegisterPrompts(pr)

	return &svcctx.Services{
		Registry:     registry,
		Prompts:      pr,
		Metrics:      metrics.New(nil),
		LLMCallStore: store,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProcessTranscript(t *testing.T) {
	mock := providers.NewMockExtractor(providers.ExtractedResult{
		"contacts": []any{map[string]any{"name": "Dana", "phone": "+1-555-1234"}},
	})
	h := newTestHandler(t, newServices(t, mock))

	rec := do(t, h, http.MethodPost, "/api/process-transcript", `{"transcript":"[USER] My name is Dana, call me at 555-1234"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"contacts":[{"name":"Dana","phone":"+1-555-1234"}]}`, rec.Body.String())

	require.Equal(t, 1, mock.Calls())
	assert.Contains(t, mock.Prompts()[0], "Conversation Transcript:\n[USER] My name is Dana, call me at 555-1234\n")
}

func TestProcessTranscript_NestedMismatchPassesThrough(t *testing.T) {
	for name, body := range map[string]string{
		"string extension":     `{"contacts":[{"name":"Dana","phoneExtension":"204"}]}`,
		"fractional extension": `{"contacts":[{"name":"Dana","phoneExtension":20.5}]}`,
		"extra fields":         `{"contacts":[{"name":"Dana","notes":"front desk"}],"summary":"one contact"}`,
	} {
		t.Run(name, func(t *testing.T) {
			var result providers.ExtractedResult
			require.NoError(t, json.Unmarshal([]byte(body), &result))
			mock := &providers.MockExtractor{Result: result, Validate: true}
			h := newTestHandler(t, newServices(t, mock))

			rec := do(t, h, http.MethodPost, "/api/process-transcript", `{"transcript":"[USER] Dana here"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, body, rec.Body.String())
		})
	}
}

func TestProcessTranscript_BadBody(t *testing.T) {
	mock := providers.NewMockExtractor(nil)
	h := newTestHandler(t, newServices(t, mock))

	rec := do(t, h, http.MethodPost, "/api/process-transcript", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, mock.Calls())
}

func TestProcessTranscript_ExtractionFailure(t *testing.T) {
	for name, extractor := range map[string]providers.Extractor{
		"exhausted":    &providers.MockExtractor{Err: &providers.ExhaustedRetriesError{Attempts: 3, Last: &providers.TransientError{StatusCode: 529}}},
		"unconfigured": nil,
	} {
		t.Run(name, func(t *testing.T) {
			h := newTestHandler(t, newServices(t, extractor))
			rec := do(t, h, http.MethodPost, "/api/process-transcript", `{"transcript":"hi"}`)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"Failed to process transcript"}`, rec.Body.String())
		})
	}
}

func TestHealthAndStatus(t *testing.T) {
	svc := newServices(t, providers.NewMockExtractor(nil))
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "running", status.Server)
	assert.Equal(t, "ready", status.Extractor.Status)
	assert.Equal(t, "enabled", status.Store)
	assert.Equal(t, 1, status.Prompts)
}

func TestStatus_AnthropicClient(t *testing.T) {
	client, err := providers.NewAnthropicClient(providers.AnthropicConfig{
		APIKey: "k",
		Model:  "claude-test",
		Retry:  providers.DefaultRetryPolicy(),
	})
	require.NoError(t, err)
	h := newTestHandler(t, newServices(t, client))

	rec := do(t, h, http.MethodGet, "/status", "")
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, providers.AnthropicName, status.Extractor.Provider)
	assert.Equal(t, "claude-test", status.Extractor.Model)
	assert.Equal(t, 2, status.Extractor.MaxRetries)
	assert.Equal(t, "10s", status.Extractor.RetryDelay)
	assert.Equal(t, []int{529}, status.Extractor.RetryStatuses)
}

func TestLLMCalls(t *testing.T) {
	svc := newServices(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, c := range []llmcall.Call{
		{ID: "ok", PromptKey: contacts.UserPromptKey, Success: true},
		{ID: "bad", PromptKey: contacts.UserPromptKey, ErrorKind: "exhausted_retries"},
	} {
		c.RequestID = "req-" + c.ID
		c.Timestamp = base.Add(time.Duration(i) * time.Minute)
		c.Provider = providers.AnthropicName
		c.Model = "m"
		require.NoError(t, svc.LLMCallStore.Insert(ctx, &c))
	}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodGet, "/api/llmcalls?success=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list LLMCallsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "bad", list.Calls[0].ID)

	rec = do(t, h, http.MethodGet, "/api/llmcalls?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/llmcalls?after=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/llmcalls/ok", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one LLMCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.True(t, one.Call.Success)

	rec = do(t, h, http.MethodGet, "/api/llmcalls/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/llmcalls-counts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var counts LLMCallCountsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, map[string]int{contacts.UserPromptKey: 2}, counts.Counts)
}

func TestLLMCalls_NoStore(t *testing.T) {
	h := newTestHandler(t, &svcctx.Services{})
	rec := do(t, h, http.MethodGet, "/api/llmcalls", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPrompts(t *testing.T) {
	h := newTestHandler(t, newServices(t, nil))

	rec := do(t, h, http.MethodGet, "/api/prompts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list PromptsListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Prompts, 1)
	assert.Equal(t, contacts.UserPromptKey, list.Prompts[0].Key)
	assert.Equal(t, contacts.PromptRef().Hash, list.Prompts[0].Hash)

	rec = do(t, h, http.MethodGet, "/api/prompts/"+contacts.UserPromptKey, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/prompts/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	svc := newServices(t, nil)
	svc.Metrics.ObserveCall(context.Background(), providers.CallReport{Model: "m", Attempts: 1})
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `scribe_extraction_calls_total{model="m",outcome="success"} 1`)
}
