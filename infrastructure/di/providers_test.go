package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	querybus "esgss-backend/application/queries/bus"
	"esgss-backend/pkg/observability"
)

// The bus and the CloudWatch sink each declare their own Timer
// interface, so the sink only reaches the middleware through the
// recorder bridge.
var _ querybus.Metrics = metricsRecorder{}

type echoQuery struct{}

func (echoQuery) Validate() error { return nil }

func TestMetricsRecorder_InstrumentsQueryHandlers(t *testing.T) {
	// Arrange
	sink := observability.NewMetrics("test", nil)
	instrument := querybus.NewMetricsMiddleware(metricsRecorder{metrics: sink})
	handler := querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		return "ok", nil
	})

	// Act
	result, err := instrument.Wrap(handler).Handle(context.Background(), echoQuery{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
