package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry/internal/config"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

func TestSetupTracing_NoEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	tracer, shutdown, err := SetupTracing(ctx, &config.Config{})
	require.NoError(t, err)

	_, span := tracer.Start(ctx, "healthz")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(ctx))
}
