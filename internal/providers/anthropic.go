package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackzampolin/scribe/internal/schema"
)

// Anthropic defaults.
const (
	AnthropicName           = "anthropic"
	AnthropicBaseURL        = "https://api.anthropic.com"
	AnthropicDefaultModel   = "claude-3-5-haiku-20241022"
	AnthropicMaxTokens      = 1500
	AnthropicVersion        = "2023-06-01"
	AnthropicBeta           = "token-efficient-tools-2025-02-19"
	AnthropicDefaultTimeout = 120 * time.Second

	messagesPath = "/v1/messages"
	tracerName   = "github.com/jackzampolin/scribe/internal/providers"
)

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string // Defaults to AnthropicBaseURL
	Model     string
	MaxTokens int
	Version   string // anthropic-version header
	Beta      string // anthropic-beta header; empty sends the default
	Timeout   time.Duration

	Retry RetryPolicy // Zero value makes a single attempt; see DefaultRetryPolicy

	// StrictValidation additionally checks nested items with a compiled
	// JSON Schema after the shallow check passes.
	StrictValidation bool

	Logger     *slog.Logger
	Observer   Observer
	HTTPClient *http.Client
	Timer      Timer // Overrides the wait between retries; for tests
}

// AnthropicClient extracts structured output through the Messages API
// tool-use protocol.
type AnthropicClient struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	version   string
	beta      string
	strict    bool

	policy   RetryPolicy
	timer    Timer
	client   *http.Client
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// NewAnthropicClient creates a client. The API key is read once here; an
// empty key is a configuration error.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = AnthropicBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = AnthropicDefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = AnthropicMaxTokens
	}
	if cfg.Version == "" {
		cfg.Version = AnthropicVersion
	}
	if cfg.Beta == "" {
		cfg.Beta = AnthropicBeta
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = AnthropicDefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Timer == nil {
		cfg.Timer = realTimer{}
	}

	return &AnthropicClient{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		version:   cfg.Version,
		beta:      cfg.Beta,
		strict:    cfg.StrictValidation,
		policy:    cfg.Retry.withDefaults(),
		timer:     cfg.Timer,
		client:    cfg.HTTPClient,
		logger:    cfg.Logger.With("provider", AnthropicName),
		observer:  cfg.Observer,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string { return AnthropicName }

// Model returns the configured model.
func (c *AnthropicClient) Model() string { return c.model }

// Policy returns the effective retry policy.
func (c *AnthropicClient) Policy() RetryPolicy { return c.policy }

// attemptResult is what a successful attempt hands back to Extract.
type attemptResult struct {
	resp  *MessagesResponse
	input json.RawMessage
}

// Extract sends the prompt with the contract as the structured_output tool
// schema and returns the validated tool input. Overload responses are
// retried according to the client's policy; every other failure returns
// immediately.
func (c *AnthropicClient) Extract(ctx context.Context, prompt string, contract schema.Contract) (ExtractedResult, error) {
	requestID := uuid.New().String()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "anthropic.extract",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", AnthropicName),
			attribute.String("llm.model", c.model),
			attribute.String("llm.request_id", requestID),
		),
	)
	defer span.End()

	logger := c.logger.With("request_id", requestID, "model", c.model)
	logger.Debug("extraction started", "prompt_len", len(prompt))

	body, err := json.Marshal(EncodeRequest(
		ExtractionRequest{Prompt: prompt, Schema: contract},
		RequestParams{Model: c.model, MaxTokens: c.maxTokens},
	))
	if err != nil {
		return nil, c.finish(ctx, span, logger, CallReport{RequestID: requestID, Model: c.model, Latency: time.Since(start)},
			fmt.Errorf("failed to marshal request: %w", err))
	}

	var (
		attempts int
		result   attemptResult
	)
	err = retry.Do(
		func() error {
			attempts++
			r, err := c.attempt(ctx, body)
			result = r
			return err
		},
		c.policy.options(ctx, c.timer, func(n uint, err error) {
			if !c.policy.Retryable(err) || int(n)+1 >= c.policy.Attempts() {
				return
			}
			logger.Warn("transient provider error, retrying",
				"attempt", n+1,
				"max_attempts", c.policy.Attempts(),
				"delay", c.policy.Delay,
				"error", err)
			span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", int(n)+1)))
		})...,
	)

	report := CallReport{
		RequestID: requestID,
		Model:     c.model,
		Attempts:  attempts,
	}
	if result.resp != nil {
		report.Usage = result.resp.Usage
		report.StopReason = result.resp.StopReason
		report.ResponseID = result.resp.ID
	}

	if err != nil {
		report.Latency = time.Since(start)
		return nil, c.finish(ctx, span, logger, report, c.wrapRetryError(ctx, err, attempts))
	}

	out, err := c.validate(result.input, contract)
	report.Latency = time.Since(start)
	if err != nil {
		return nil, c.finish(ctx, span, logger, report, err)
	}

	report.Output = result.input
	c.finish(ctx, span, logger, report, nil)
	return out, nil
}

// attempt performs a single POST and classifies the outcome.
func (c *AnthropicClient) attempt(ctx context.Context, body []byte) (attemptResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return attemptResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attemptResult{}, &CancelledError{Err: ctxErr}
		}
		return attemptResult{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attemptResult{}, &CancelledError{Err: ctxErr}
		}
		return attemptResult{}, &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if c.policy.IsTransientStatus(resp.StatusCode) {
		return attemptResult{}, &TransientError{StatusCode: resp.StatusCode, Body: truncateBody(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return attemptResult{}, &ProtocolError{StatusCode: resp.StatusCode, Body: truncateBody(respBody)}
	}

	decoded, err := DecodeResponse(respBody)
	if err != nil {
		return attemptResult{}, err
	}
	input, err := decoded.StructuredOutput()
	if err != nil {
		return attemptResult{resp: decoded}, err
	}
	return attemptResult{resp: decoded, input: input}, nil
}

func (c *AnthropicClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.version)
	if c.beta != "" {
		req.Header.Set("anthropic-beta", c.beta)
	}
}

// validate decodes the tool input and checks it against the contract.
func (c *AnthropicClient) validate(raw json.RawMessage, contract schema.Contract) (ExtractedResult, error) {
	value, err := decodeToolInput(raw)
	if err != nil {
		return nil, err
	}
	if err := contract.Validate(value); err != nil {
		return nil, fmt.Errorf("invalid structured output: %w", err)
	}
	if c.strict {
		strict, err := schema.CompileStrict(contract)
		if err != nil {
			return nil, fmt.Errorf("failed to compile contract: %w", err)
		}
		if err := strict.Validate(value); err != nil {
			return nil, fmt.Errorf("invalid structured output: %w", err)
		}
	}
	// Validate only accepts a non-nil JSON object.
	return ExtractedResult(value.(map[string]any)), nil
}

// wrapRetryError maps the error retry-go returned onto the package taxonomy.
func (c *AnthropicClient) wrapRetryError(ctx context.Context, err error, attempts int) error {
	var cancelled *CancelledError
	if errors.As(err, &cancelled) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return &CancelledError{Err: ctxErr}
	}
	if c.policy.Retryable(err) {
		return &ExhaustedRetriesError{Attempts: attempts, Last: err}
	}
	return err
}

// finish records the outcome on the span, the log, and the observer, and
// returns err unchanged.
func (c *AnthropicClient) finish(ctx context.Context, span trace.Span, logger *slog.Logger, report CallReport, err error) error {
	report.Err = err
	span.SetAttributes(
		attribute.Int("llm.attempts", report.Attempts),
		attribute.Int("llm.input_tokens", report.Usage.InputTokens),
		attribute.Int("llm.output_tokens", report.Usage.OutputTokens),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(Classify(err)))
		logger.Error("extraction failed",
			"kind", Classify(err),
			"attempts", report.Attempts,
			"latency", report.Latency,
			"error", err)
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Info("extraction complete",
			"attempts", report.Attempts,
			"latency", report.Latency,
			"input_tokens", report.Usage.InputTokens,
			"output_tokens", report.Usage.OutputTokens,
			"stop_reason", report.StopReason)
	}

	c.observer.ObserveCall(ctx, report)
	return err
}

var _ Extractor = (*AnthropicClient)(nil)
