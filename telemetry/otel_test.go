package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krisalay/advert-resolver/telemetry"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "advert-resolver", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx), "noop shutdown ignores the context")
}

func TestSetupCreatesProvider(t *testing.T) {
	// non-routable, nothing is exported
	shutdown, err := telemetry.Setup(context.Background(), "advert-resolver", "http://192.0.2.1:4318")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
