package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client writes device readings to one InfluxDB bucket through the
// non-blocking write API. Points are batched by the library and failed
// batches are reported to the SetOnError callback.
//
// Methods are safe for concurrent use. Writes after Close are dropped.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	closed   atomic.Bool

	mu      sync.RWMutex
	onError func(error)
}

// options maps the hub's config onto client options, falling back to
// the defaults for unset batch settings.
func options(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := defaultBatchSize
	if cfg.BatchSize > 0 {
		batch = cfg.BatchSize
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = cfg.FlushInterval
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).                   //nolint:gosec // Positive by construction
		SetFlushInterval(uint(flush.Milliseconds())) //nolint:gosec // Positive by construction
}

// Connect pings the server and opens the write API for cfg.Bucket.
//
// Parameters:
//   - cfg: InfluxDB section of the hub config
//
// Returns:
//   - *Client: Ready for writes
//   - error: ErrDisabled, or ErrConnectionFailed when the ping fails
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, options(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.forwardErrors(c.writeAPI.Errors())
	return c, nil
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("ping: %w", err)
	case !healthy:
		return ErrNotHealthy
	}
	return nil
}

// forwardErrors hands batch failures to the current callback until the
// write API closes the channel.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

// SetOnError installs the callback for asynchronous write failures.
func (c *Client) SetOnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// Flush blocks until buffered points are sent. No-op after Close.
func (c *Client) Flush() {
	if c.closed.Load() {
		return
	}
	c.writeAPI.Flush()
}

// IsConnected reports whether Close has not yet been called. It does not
// ping; use HealthCheck for that.
func (c *Client) IsConnected() bool {
	return !c.closed.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client. Safe on nil and
// safe to call twice.
func (c *Client) Close() error {
	if c == nil || c.client == nil || c.closed.Swap(true) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
