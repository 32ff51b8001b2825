package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/scribe/internal/schema"
)

var (
	// ErrMissingAPIKey is returned at construction when no credential is configured.
	ErrMissingAPIKey = errors.New("anthropic api key not configured")

	// ErrMissingStructuredOutput means a well-formed response carried no tool_use block.
	ErrMissingStructuredOutput = errors.New("no structured output found in response")
)

// ProtocolError is a response that could not be used: a non-2xx status other
// than the transient one, or a body that does not decode as a Messages
// response.
type ProtocolError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("anthropic protocol error (status %d): %v", e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("anthropic protocol error: %v", e.Err)
	default:
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransientError is a provider overload response (HTTP 529 by default).
type TransientError struct {
	StatusCode int
	Body       string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("received status code %d", e.StatusCode)
}

// ExhaustedRetriesError is returned when every attempt failed transiently.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("anthropic API is overburdened after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// NetworkError is a connection-level failure. It is not retried here.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("request failed: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// CancelledError is returned when the caller's context ends the call,
// including while waiting between attempts.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string { return fmt.Sprintf("extraction cancelled: %v", e.Err) }

func (e *CancelledError) Unwrap() error { return e.Err }

// ErrorKind is a coarse error class used for log fields and metric labels.
type ErrorKind string

const (
	KindNone             ErrorKind = "none"
	KindConfiguration    ErrorKind = "configuration"
	KindProtocol         ErrorKind = "protocol"
	KindMissingOutput    ErrorKind = "missing_output"
	KindValidation       ErrorKind = "validation"
	KindTransient        ErrorKind = "transient"
	KindExhaustedRetries ErrorKind = "exhausted_retries"
	KindNetwork          ErrorKind = "network"
	KindCancelled        ErrorKind = "cancelled"
	KindUnknown          ErrorKind = "unknown"
)

// Classify maps an error returned by this package to its kind.
// The outermost wrapper wins, so an exhausted-retries error is reported as
// such rather than as the transient error it carries.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var (
		exhausted *ExhaustedRetriesError
		cancelled *CancelledError
		transient *TransientError
		network   *NetworkError
		protocol  *ProtocolError
		invalid   *schema.ValidationError
	)
	switch {
	case errors.As(err, &exhausted):
		return KindExhaustedRetries
	case errors.As(err, &cancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrMissingAPIKey):
		return KindConfiguration
	case errors.Is(err, ErrMissingStructuredOutput):
		return KindMissingOutput
	case errors.As(err, &invalid):
		return KindValidation
	case errors.As(err, &transient):
		return KindTransient
	case errors.As(err, &network):
		return KindNetwork
	case errors.As(err, &protocol):
		return KindProtocol
	default:
		return KindUnknown
	}
}
