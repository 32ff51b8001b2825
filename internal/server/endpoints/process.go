package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scribe/internal/api"
	"github.com/jackzampolin/scribe/internal/prompts/contacts"
	"github.com/jackzampolin/scribe/internal/providers"
	"github.com/jackzampolin/scribe/internal/svcctx"
)

// maxTranscriptBytes bounds the request body.
const maxTranscriptBytes = 1 << 20

// ProcessTranscriptRequest is the body of POST /api/process-transcript.
type ProcessTranscriptRequest struct {
	Transcript string `json:"transcript"`
}

// ProcessTranscriptEndpoint handles POST /api/process-transcript.
type ProcessTranscriptEndpoint struct{}

func (e *ProcessTranscriptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/process-transcript", e.handler
}

func (e *ProcessTranscriptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract contacts from a transcript
//	@Description	Runs the contact extraction prompt against the transcript
//	@Tags			extraction
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ProcessTranscriptRequest	true	"Transcript"
//	@Success		200		{object}	providers.ExtractedResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/process-transcript [post]
func (e *ProcessTranscriptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := svcctx.LoggerFrom(ctx)

	var req ProcessTranscriptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTranscriptBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	registry := svcctx.RegistryFrom(ctx)
	if registry == nil {
		writeError(w, http.StatusInternalServerError, "extractor not available")
		return
	}

	result, err := contacts.Extract(ctx, registry, req.Transcript)
	if err != nil {
		logger.Error("error processing transcript",
			"kind", providers.Classify(err),
			"error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process transcript")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *ProcessTranscriptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file|->",
		Short: "Extract contacts from a transcript file via the server",
		Long: `Sends a transcript to the running server and prints the extracted contacts.
Use "-" to read the transcript from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := ReadTranscript(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp providers.ExtractedResult
			if err := client.Post(cmd.Context(), "/api/process-transcript", ProcessTranscriptRequest{Transcript: transcript}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ReadTranscript reads a transcript from path, or from stdin when path is "-".
func ReadTranscript(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}
