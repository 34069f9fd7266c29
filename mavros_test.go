package mavros

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaijun101/mavros/config"
	"github.com/Kaijun101/mavros/errors"
	"github.com/Kaijun101/mavros/metric"
)

func TestNew(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		client, err := New(config.DefaultConfig())
		require.NoError(t, err)
		require.NotNil(t, client)
		assert.NotNil(t, client.NATS())
		assert.NotNil(t, client.Registry())
	})

	t.Run("nil config rejected", func(t *testing.T) {
		_, err := New(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMissingConfig)
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Param.Namespace = "no spaces allowed"

		_, err := New(cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("missing url rejected", func(t *testing.T) {
		_, err := New(&config.Config{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	})

	t.Run("defaults applied to sparse config", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.NATS.URL = "nats://localhost:4222"

		client, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultNamespace, cfg.Param.Namespace)
		assert.Equal(t, config.DefaultCallTimeout, cfg.Param.CallTimeout)
		assert.NotNil(t, client)
	})

	t.Run("options applied", func(t *testing.T) {
		registry := metric.NewRegistry()
		logger := slog.Default()

		client, err := New(config.DefaultConfig(),
			WithLogger(logger),
			WithRegistry(registry),
		)
		require.NoError(t, err)
		assert.Same(t, registry, client.Registry())
	})
}

func TestConnectFailsFast(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.NATS.URL = "nats://127.0.0.1:1" // nothing listens here
	cfg.NATS.MaxReconnects = 1
	cfg.NATS.ReconnectWait = 10 * time.Millisecond

	client, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestParamBeforeConnect(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Param.CallTimeout = 50 * time.Millisecond

	client, err := New(cfg)
	require.NoError(t, err)

	// The store cannot start without a connection: the event subscription
	// fails immediately.
	_, err = client.Param(context.Background())
	require.Error(t, err)
}

func TestCloseWithoutConnect(t *testing.T) {
	client, err := New(config.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, client.Close(ctx))
}
