package llmcall

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/scribe/internal/providers"
)

// DefaultQueueSize bounds the number of calls waiting to be written.
const DefaultQueueSize = 256

// Recorder handles fire-and-forget LLM call recording. It implements
// providers.Observer; writes happen on a background goroutine so the
// extraction path never waits on the database.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *Call
	wg     sync.WaitGroup
}

// NewRecorder creates a recorder writing to store and starts its writer.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan *Call, DefaultQueueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// ObserveCall queues a record for the finished call. The prompt reference,
// if any, is read from ctx.
func (r *Recorder) ObserveCall(ctx context.Context, report providers.CallReport) {
	prompt, _ := PromptFrom(ctx)
	r.RecordCall(FromReport(report, prompt))
}

// RecordCall queues an already-constructed Call. When the queue is full the
// record is dropped with a warning.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || r.store == nil || call == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- call:
	default:
		r.logger.Warn("llm call queue full, dropping record", "request_id", call.RequestID)
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for call := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Insert(ctx, call); err != nil {
			r.logger.Warn("failed to record llm call", "request_id", call.RequestID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting records and waits for queued writes to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

var _ providers.Observer = (*Recorder)(nil)
