package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTracing_WritesSpansOnShutdown(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := setupTracing(&buf, true)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "ingest.run")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"ingest.run"`)
}

func TestSetupTracing_DisabledKeepsProvider(t *testing.T) {
	prev := otel.GetTracerProvider()

	var buf bytes.Buffer
	shutdown, err := setupTracing(&buf, false)
	require.NoError(t, err)

	assert.Same(t, prev, otel.GetTracerProvider())
	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, buf.String())
}
