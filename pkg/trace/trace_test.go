package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "pricing", "test", config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestProviderExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewProvider(context.Background(), exporter, "pricing", "test", 1.0)
	require.NoError(t, err)

	_, span := tp.Tracer("lsm").Start(context.Background(), "price")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "price", spans[0].Name)
	require.NoError(t, tp.Shutdown(context.Background()))
}
