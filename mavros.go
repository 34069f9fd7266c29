package mavros

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kaijun101/mavros/config"
	"github.com/Kaijun101/mavros/errors"
	"github.com/Kaijun101/mavros/metric"
	"github.com/Kaijun101/mavros/natsclient"
	"github.com/Kaijun101/mavros/param"
	"github.com/Kaijun101/mavros/pkg/retry"
)

// Client ties the NATS connection, metrics and the parameter store together.
// Create one with New, Connect it, then use Param to get the synchronized
// parameter store.
type Client struct {
	cfg      *config.Config
	nats     *natsclient.Client
	registry *metric.Registry
	logger   *slog.Logger

	mu    sync.Mutex
	store *param.Store
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the structured logger. The default logs to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry uses an existing metrics registry instead of creating one,
// for embedding into a process that already exposes Prometheus metrics.
func WithRegistry(registry *metric.Registry) Option {
	return func(c *Client) {
		if registry != nil {
			c.registry = registry
		}
	}
}

// New creates a Client from cfg. Defaults are applied and the config is
// validated; the connection is not opened until Connect.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "mavros", "New", "check config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%s: %w", err, errors.ErrInvalidConfig),
			"mavros", "New", "validate config")
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = metric.NewRegistry()
	}

	name := cfg.Client.Name
	if name == "" {
		name = "mavros-" + uuid.NewString()[:8]
	}

	natsOpts := []natsclient.ClientOption{
		natsclient.WithName(name),
		natsclient.WithLogger(slogPrintfAdapter{c.logger}),
		natsclient.WithHealthChangeCallback(c.registry.Core().RecordNATSHealth),
	}
	if cfg.NATS.MaxReconnects != 0 {
		natsOpts = append(natsOpts, natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects))
	}
	if cfg.NATS.ReconnectWait > 0 {
		natsOpts = append(natsOpts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		natsOpts = append(natsOpts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		natsOpts = append(natsOpts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		natsOpts = append(natsOpts,
			natsclient.WithTLS(cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile))
	}

	nc, err := natsclient.NewClient(cfg.NATS.URL, natsOpts...)
	if err != nil {
		return nil, errors.WrapInvalid(err, "mavros", "New", "create nats client")
	}
	c.nats = nc

	return c, nil
}

// Connect opens the NATS connection, retrying transient failures with a
// short backoff.
func (c *Client) Connect(ctx context.Context) error {
	err := retry.Do(ctx, retry.Quick(), func() error {
		return c.nats.Connect(ctx)
	})
	if err != nil {
		return errors.WrapTransient(err, "mavros", "Connect", "connect to nats")
	}

	c.registry.Core().RecordNATSHealth(true)
	c.logger.Info("connected to nats", "url", c.cfg.NATS.URL)
	return nil
}

// Param returns the parameter store, starting it on first use: the store
// subscribes to change events and performs the initial pull before it is
// handed out.
func (c *Client) Param(ctx context.Context) (*param.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}

	store := param.NewStore(
		transportAdapter{c.nats},
		c.cfg.Param.Namespace,
		param.WithTimeout(c.cfg.Param.CallTimeout),
		param.WithTarget(c.cfg.Param.TargetSystem, c.cfg.Param.TargetComponent),
		param.WithLogger(slogPrintfAdapter{c.logger}),
		param.WithMetrics(c.registry.Core()),
	)
	if err := store.Start(ctx); err != nil {
		return nil, err
	}

	c.store = store
	return store, nil
}

// NATS exposes the underlying connection client for callers that need
// raw requests or health information.
func (c *Client) NATS() *natsclient.Client {
	return c.nats
}

// Registry returns the metrics registry for exposing via an HTTP handler
func (c *Client) Registry() *metric.Registry {
	return c.registry
}

// Close stops the parameter store and closes the connection
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	store := c.store
	c.store = nil
	c.mu.Unlock()

	if store != nil {
		if err := store.Close(); err != nil {
			c.logger.Warn("closing parameter store", "error", err)
		}
	}

	c.registry.Core().RecordNATSHealth(false)
	return c.nats.Close(ctx)
}

// transportAdapter exposes the natsclient surface as the param.Transport
// interface. The indirection exists because natsclient.Subscribe returns the
// concrete *nats.Subscription.
type transportAdapter struct {
	nc *natsclient.Client
}

func (t transportAdapter) WaitForReady(ctx context.Context) error {
	return t.nc.WaitForReady(ctx)
}

func (t transportAdapter) Request(subject string, data []byte, timeout time.Duration) ([]byte, error) {
	return t.nc.Request(subject, data, timeout)
}

func (t transportAdapter) Subscribe(subject string, handler func(data []byte)) (param.Subscription, error) {
	return t.nc.Subscribe(subject, handler)
}

// slogPrintfAdapter bridges *slog.Logger to the Printf-style logger interfaces
// used by natsclient and param.
type slogPrintfAdapter struct {
	logger *slog.Logger
}

func (a slogPrintfAdapter) Printf(format string, v ...any) {
	a.logger.Info(fmt.Sprintf(format, v...))
}

func (a slogPrintfAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a slogPrintfAdapter) Debugf(format string, v ...any) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}
