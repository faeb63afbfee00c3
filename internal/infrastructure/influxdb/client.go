package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/breezehub/breeze-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize    = 100
	defaultFlushSeconds = 10
)

// Client wraps the InfluxDB v2 client for fan telemetry. Points go through
// the non-blocking write API, so callers never wait on the network; write
// failures surface on the SetOnError callback instead. Safe for concurrent
// use. Construct with Connect.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	mu        sync.RWMutex
	connected bool
	onError   func(error)
}

// Connect builds a client from configuration and verifies the server is
// reachable with a ping. Returns ErrDisabled when telemetry is switched
// off, so the caller can run without it.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg)).
		SetFlushInterval(flushMillis(cfg))

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:       cfg,
		connected: true,
	}
	go c.forwardWriteErrors(c.writeAPI.Errors())

	return c, nil
}

// ping folds the health endpoint's two failure modes into one error.
func ping(ctx context.Context, client influxdb2.Client) error {
	up, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	if !up {
		return errors.New("server reports unhealthy")
	}
	return nil
}

func batchSize(cfg config.InfluxDBConfig) uint {
	if cfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return uint(cfg.BatchSize)
}

// flushMillis converts the configured flush interval, which is in seconds,
// to the milliseconds the client library expects.
func flushMillis(cfg config.InfluxDBConfig) uint {
	seconds := cfg.FlushInterval
	if seconds <= 0 {
		seconds = defaultFlushSeconds
	}
	return uint(seconds) * 1000
}

// forwardWriteErrors drains the write API's error channel for its lifetime
// and hands each error to the registered callback.
func (c *Client) forwardWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()

		if fn != nil {
			fn(err)
		}
	}
}

// Close flushes buffered points and shuts the client down. Writes issued
// after Close are dropped silently.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()

	return nil
}

// HealthCheck pings the server. The ping carries its own deadline so a
// stalled server cannot hold up the host's health loop.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := ping(pingCtx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected reports the last known connection state. HealthCheck makes
// an active probe; this does not.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetOnError registers a callback for asynchronous write failures. Without
// one, failed writes are dropped without a trace.
func (c *Client) SetOnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Flush sends all buffered points now. Blocks until the batch is written.
// A no-op after Close.
func (c *Client) Flush() {
	if c.writeAPI == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
