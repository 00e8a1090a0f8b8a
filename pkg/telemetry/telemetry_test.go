package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/kerf/pkg/telemetry"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Settings{Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Settings{Endpoint: "http://localhost:4318"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupCreatesProvider(t *testing.T) {
	// Non-routable address: nothing is exported and shutdown still returns.
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Settings{Endpoint: "http://192.0.2.1:4318", Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := telemetry.Tracer("test").Start(context.Background(), "span")
	span.End()
}
