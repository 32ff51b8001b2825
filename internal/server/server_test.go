package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/scribe/internal/config"
	"github.com/jackzampolin/scribe/internal/home"
	"github.com/jackzampolin/scribe/internal/providers"
	"github.com/jackzampolin/scribe/internal/server/endpoints"
	"github.com/jackzampolin/scribe/internal/testutil"
)

const danaOutput = `{"contacts":[{"name":"Dana","phone":"+1-555-1234"}]}`

func writeServerConfig(t *testing.T, cfg testutil.ServerConfig, baseURL string) *config.Manager {
	t.Helper()
	cfg.WriteConfig(t, fmt.Sprintf(`anthropic:
  api_key: test-key
  base_url: %s
  model: claude-test
retry:
  max_retries: 2
  delay: 1ms
store:
  path: calls.db
telemetry:
  log_level: warn
`, baseURL))
	mgr, err := config.NewManager(cfg.ConfigFile, "")
	require.NoError(t, err)
	return mgr
}

func startServer(t *testing.T, cfg testutil.ServerConfig, srv *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	starter := &testutil.StartServer{Cancel: cancel, Done: done}
	t.Cleanup(starter.Stop)

	require.NoError(t, testutil.WaitForServer(cfg.URL(), 10*time.Second))
}

func postTranscript(t *testing.T, url, transcript string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(endpoints.ProcessTranscriptRequest{Transcript: transcript})
	resp, err := http.Post(url+"/api/process-transcript", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_FullLifecycle(t *testing.T) {
	cfg := testutil.NewServerConfig(t)
	stub := testutil.NewAnthropicStub(t, danaOutput)
	mgr := writeServerConfig(t, cfg, stub.URL)

	h, err := home.New(cfg.HomeDir)
	require.NoError(t, err)

	srv, err := New(Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		ConfigManager: mgr,
		Home:          h,
		Logger:        cfg.Logger,
	})
	require.NoError(t, err)
	startServer(t, cfg, srv)

	t.Run("is_running", func(t *testing.T) {
		assert.True(t, srv.IsRunning())
	})

	t.Run("process_transcript", func(t *testing.T) {
		resp := postTranscript(t, cfg.URL(), "[USER] My name is Dana, call me at 555-1234")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		contacts := got["contacts"].([]any)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Dana", contacts[0].(map[string]any)["name"])
	})

	t.Run("overloaded_exhausts_retries", func(t *testing.T) {
		before := len(stub.Requests())
		stub.FailNext(providers.StatusOverloaded, 3)

		resp := postTranscript(t, cfg.URL(), "hello")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, before+3, len(stub.Requests()))
	})

	t.Run("calls_recorded", func(t *testing.T) {
		var list endpoints.LLMCallsResponse
		require.Eventually(t, func() bool {
			resp, err := http.Get(cfg.URL() + "/api/llmcalls")
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			list = endpoints.LLMCallsResponse{}
			return json.NewDecoder(resp.Body).Decode(&list) == nil && list.Total == 2
		}, 5*time.Second, 20*time.Millisecond)

		// Newest first: the exhausted call, then the success.
		assert.Equal(t, "exhausted_retries", list.Calls[0].ErrorKind)
		assert.Equal(t, 3, list.Calls[0].Attempts)
		assert.True(t, list.Calls[1].Success)
		assert.Equal(t, "extract.contacts.user", list.Calls[1].PromptKey)
		assert.Equal(t, 120, list.Calls[1].InputTokens)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(cfg.URL() + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `scribe_extraction_calls_total{model="claude-test",outcome="success"} 1`)
		assert.Contains(t, string(body), "go_goroutines")
	})
}

func TestServer_StartsWithoutAPIKey(t *testing.T) {
	cfg := testutil.NewServerConfig(t)
	cfg.WriteConfig(t, "anthropic:\n  api_key: \"\"\nstore:\n  path: disabled\n")
	mgr, err := config.NewManager(cfg.ConfigFile, "")
	require.NoError(t, err)

	srv, err := New(Config{Host: cfg.Host, Port: cfg.Port, ConfigManager: mgr, Logger: cfg.Logger})
	require.NoError(t, err)
	startServer(t, cfg, srv)

	resp := postTranscript(t, cfg.URL(), "hello")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	statusResp, err := http.Get(cfg.URL() + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()
	var status endpoints.StatusResponse
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, "unconfigured", status.Extractor.Status)
	assert.Equal(t, "disabled", status.Store)
}

func TestServer_RequireInit(t *testing.T) {
	srv, err := New(Config{Extractor: providers.NewMockExtractor(nil)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process-transcript", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Health does not need services.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MockExtractor(t *testing.T) {
	mock := providers.NewMockExtractor(providers.ExtractedResult{"contacts": []any{}})
	srv, err := New(Config{Extractor: mock})
	require.NoError(t, err)
	require.NoError(t, srv.Init(context.Background()))
	t.Cleanup(srv.Close)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process-transcript", strings.NewReader(`{"transcript":"nothing here"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"contacts":[]}`, rec.Body.String())
	assert.Equal(t, 1, mock.Calls())
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
