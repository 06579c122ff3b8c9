package otel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"portal/internal/platform/config"
	"portal/internal/platform/otel"
)

func TestSetup(t *testing.T) {
	t.Run("noop when endpoint empty", func(t *testing.T) {
		shutdown, err := otel.Setup(context.Background(), config.TracingConfig{Enabled: true, ServiceName: "portal"})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, shutdown(ctx))
	})

	t.Run("noop when disabled", func(t *testing.T) {
		shutdown, err := otel.Setup(context.Background(), config.TracingConfig{
			Endpoint: "http://localhost:4318", Enabled: false, ServiceName: "portal",
		})
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})

	t.Run("provider flushes against unreachable endpoint", func(t *testing.T) {
		// 192.0.2.0/24 is reserved for documentation and never routes.
		shutdown, err := otel.Setup(context.Background(), config.TracingConfig{
			Endpoint: "http://192.0.2.1:4318", Enabled: true, ServiceName: "portal-test",
		})
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})
}
