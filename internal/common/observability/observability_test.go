package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestObservability_RecordsWithoutTracing(t *testing.T) {
	obs, err := New("obsp-test")
	require.NoError(t, err)

	ctx, span := obs.StartSpan(context.Background(), "checkout", attribute.String("levelKey", "gold"))
	require.NotNil(t, span)
	obs.RecordCheckout(ctx, "purchased", 15*time.Millisecond)
	obs.RecordJobProcessed(ctx, "obsp-checkout")
	obs.RecordJobDuration(ctx, time.Millisecond, "obsp-checkout")
	span.End()

	assert.NoError(t, obs.Shutdown(context.Background()))
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	var obs Observability
	obs.RecordCheckout(context.Background(), "blocked", time.Millisecond)
	assert.NoError(t, obs.Shutdown(context.Background()))
}
