package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			json.NewEncoder(w).Encode(map[string]string{"got": body["transcript"]})
		case "/fail":
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to process transcript"})
		case "/plain":
			w.Write([]byte("text body"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	var resp map[string]string
	require.NoError(t, client.Post(ctx, "/echo", map[string]string{"transcript": "hi"}, &resp))
	assert.Equal(t, "hi", resp["got"])

	err := client.Get(ctx, "/fail", nil)
	require.Error(t, err)
	assert.Equal(t, "server error (500): Failed to process transcript", err.Error())

	raw, err := client.GetRaw(ctx, "/plain")
	require.NoError(t, err)
	assert.Equal(t, "text body", string(raw))

	err = client.Get(ctx, "/missing", nil)
	assert.ErrorContains(t, err, "server error (404)")
}

func TestOutputTo(t *testing.T) {
	data := map[string]any{"name": "Dana"}

	var buf bytes.Buffer
	require.NoError(t, OutputTo(&buf, OutputFormatJSON, data))
	assert.JSONEq(t, `{"name":"Dana"}`, buf.String())

	buf.Reset()
	require.NoError(t, OutputTo(&buf, OutputFormatYAML, data))
	assert.Equal(t, "name: Dana\n", buf.String())

	assert.Error(t, OutputTo(&buf, "xml", data))
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatYAML, f)

	f, err = ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	_, err = ParseOutputFormat("toml")
	assert.Error(t, err)
}

type stubEndpoint struct {
	path string
	init bool
}

func (s stubEndpoint) Route() (string, string, http.HandlerFunc) {
	return http.MethodGet, s.path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s stubEndpoint) RequiresInit() bool { return s.init }

func (s stubEndpoint) Command(func() string) *cobra.Command {
	return &cobra.Command{Use: s.path[1:]}
}

type groupedEndpoint struct{ stubEndpoint }

func (groupedEndpoint) Group() (string, string) { return "things", "Thing commands" }

func TestRegistry_BuildCommandsGroups(t *testing.T) {
	r := NewRegistry()
	r.Register(stubEndpoint{path: "/health"})
	r.Register(groupedEndpoint{stubEndpoint{path: "/list"}})
	r.Register(groupedEndpoint{stubEndpoint{path: "/get"}})

	cmd := r.BuildCommands(func() string { return "" })
	require.Len(t, cmd.Commands(), 2)

	group, _, err := cmd.Find([]string{"things"})
	require.NoError(t, err)
	assert.Equal(t, "things", group.Name())
	assert.Len(t, group.Commands(), 2)

	leaf, _, err := cmd.Find([]string{"things", "get"})
	require.NoError(t, err)
	assert.Equal(t, "get", leaf.Name())
}

func TestRegistry_RegisterRoutes(t *testing.T) {
	r := NewRegistry()
	r.Register(stubEndpoint{path: "/open"})
	r.Register(stubEndpoint{path: "/gated", init: true})

	mux := http.NewServeMux()
	r.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	for path, want := range map[string]int{"/open": http.StatusNoContent, "/gated": http.StatusServiceUnavailable} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}

	cmd := r.BuildCommands(func() string { return "" })
	assert.Len(t, cmd.Commands(), 2)
	assert.Len(t, r.Endpoints(), 2)
}
