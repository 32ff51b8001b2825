package providers

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/jackzampolin/scribe/internal/schema"
)

// ErrNoExtractor is returned when the registry has no usable extractor,
// usually because no API key is configured.
var ErrNoExtractor = errors.New("no extractor configured")

// Registry holds the active extractor and rebuilds it when configuration
// changes. It is itself an Extractor, so callers keep one reference across
// reloads.
type Registry struct {
	mu        sync.RWMutex
	extractor Extractor
	cfg       AnthropicConfig
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// NewRegistryFromConfig creates a registry with an Anthropic client built
// from cfg.
func NewRegistryFromConfig(cfg AnthropicConfig) (*Registry, error) {
	r := NewRegistry(cfg.Logger)
	if err := r.Reload(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Set installs an extractor directly. Used by tests and the mock server.
func (r *Registry) Set(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractor = e
}

// Get returns the active extractor.
func (r *Registry) Get() (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.extractor == nil {
		return nil, ErrNoExtractor
	}
	return r.extractor, nil
}

// Reload rebuilds the Anthropic client when cfg differs from the current
// configuration. On error the previous extractor stays in place.
func (r *Registry) Reload(cfg AnthropicConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.extractor != nil && !needsUpdate(r.cfg, cfg) {
		return nil
	}

	client, err := NewAnthropicClient(cfg)
	if err != nil {
		return err
	}

	updated := r.extractor != nil
	r.extractor = client
	r.cfg = cfg
	if updated {
		r.logger.Info("updated extractor", "provider", AnthropicName, "model", client.Model())
	} else {
		r.logger.Info("registered extractor", "provider", AnthropicName, "model", client.Model())
	}
	return nil
}

// Extract delegates to the active extractor.
func (r *Registry) Extract(ctx context.Context, prompt string, contract schema.Contract) (ExtractedResult, error) {
	e, err := r.Get()
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, prompt, contract)
}

// needsUpdate checks whether the client must be recreated.
func needsUpdate(old, cfg AnthropicConfig) bool {
	return old.APIKey != cfg.APIKey ||
		old.BaseURL != cfg.BaseURL ||
		old.Model != cfg.Model ||
		old.MaxTokens != cfg.MaxTokens ||
		old.Version != cfg.Version ||
		old.Beta != cfg.Beta ||
		old.Timeout != cfg.Timeout ||
		old.StrictValidation != cfg.StrictValidation ||
		old.Retry.MaxRetries != cfg.Retry.MaxRetries ||
		old.Retry.Delay != cfg.Retry.Delay ||
		!slices.Equal(old.Retry.RetryStatuses, cfg.Retry.RetryStatuses)
}

var _ Extractor = (*Registry)(nil)
