package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scribe/internal/api"
	"github.com/jackzampolin/scribe/internal/providers"
	"github.com/jackzampolin/scribe/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Extractor ExtractorStatus `json:"extractor"`
	Store     string          `json:"store"`
	Prompts   int             `json:"prompts"`
	Config    string          `json:"config,omitempty"`
}

// ExtractorStatus describes the active extractor and its retry policy.
type ExtractorStatus struct {
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	Status        string `json:"status"`
	MaxRetries    int    `json:"max_retries"`
	RetryDelay    string `json:"retry_delay,omitempty"`
	RetryStatuses []int  `json:"retry_statuses,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:    "running",
		Extractor: ExtractorStatus{Status: "not_initialized"},
		Store:     "disabled",
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		extractor, err := registry.Get()
		switch {
		case err != nil:
			resp.Extractor.Status = "unconfigured"
		default:
			resp.Extractor.Status = "ready"
			if client, ok := extractor.(*providers.AnthropicClient); ok {
				policy := client.Policy()
				resp.Extractor.Provider = client.Name()
				resp.Extractor.Model = client.Model()
				resp.Extractor.MaxRetries = policy.MaxRetries
				resp.Extractor.RetryDelay = policy.Delay.String()
				resp.Extractor.RetryStatuses = policy.RetryStatuses
			} else {
				resp.Extractor.Provider = fmt.Sprintf("%T", extractor)
			}
		}
	}

	if svcctx.LLMCallStoreFrom(ctx) != nil {
		resp.Store = "enabled"
	}
	if pr := svcctx.PromptsFrom(ctx); pr != nil {
		resp.Prompts = len(pr.All())
	}
	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		resp.Config = cm.ConfigFileUsed()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
