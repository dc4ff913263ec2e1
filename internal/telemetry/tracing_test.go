package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup_WithoutEndpoint(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Setup(ctx, "checkout-test", "")
	require.NoError(t, err)
	defer func() { _ = shutdown(ctx) }()

	spanCtx, span := StartStage(ctx, "tax", attribute.String("order_id", "o-1"))
	defer span.End()

	assert.True(t, trace.SpanContextFromContext(spanCtx).IsValid())
}
