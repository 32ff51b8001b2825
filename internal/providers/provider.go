package providers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackzampolin/scribe/internal/schema"
)

// Extractor turns a prompt into one structured result that satisfies the
// contract.
type Extractor interface {
	Extract(ctx context.Context, prompt string, contract schema.Contract) (ExtractedResult, error)
}

// ExtractedResult is a validated structured output: a JSON object whose
// top-level fields match the contract.
type ExtractedResult map[string]any

// CallReport summarizes one Extract call, successful or not.
type CallReport struct {
	RequestID  string
	ResponseID string
	Model      string
	Attempts   int
	Latency    time.Duration
	Usage      Usage
	StopReason string
	Output     json.RawMessage // Tool input; set only on success
	Err        error
}

// Observer receives a report after every Extract call. Implementations must
// not block; they are called on the caller's goroutine.
type Observer interface {
	ObserveCall(ctx context.Context, report CallReport)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, report CallReport)

func (f ObserverFunc) ObserveCall(ctx context.Context, report CallReport) { f(ctx, report) }

// NopObserver discards reports.
type NopObserver struct{}

func (NopObserver) ObserveCall(context.Context, CallReport) {}

// MultiObserver fans a report out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) ObserveCall(ctx context.Context, report CallReport) {
	for _, o := range m {
		if o != nil {
			o.ObserveCall(ctx, report)
		}
	}
}
