package svcctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jackzampolin/scribe/internal/prompts"
	"github.com/jackzampolin/scribe/internal/providers"
)

func TestExtractors(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ServicesFrom(ctx))
	assert.Nil(t, RegistryFrom(ctx))
	assert.Nil(t, LLMCallStoreFrom(ctx))
	assert.Equal(t, slog.Default(), LoggerFrom(ctx))

	reg := providers.NewRegistry(nil)
	pr := prompts.NewRegistry(nil)
	ctx = WithServices(ctx, &Services{Registry: reg, Prompts: pr})

	assert.Same(t, reg, RegistryFrom(ctx))
	assert.Same(t, pr, PromptsFrom(ctx))
	assert.Nil(t, MetricsFrom(ctx))
	assert.Nil(t, HomeFrom(ctx))
	assert.Nil(t, ConfigFrom(ctx))
}
