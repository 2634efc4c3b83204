// Package broker provides the NATS JetStream transport between raw-event
// producers and the pipeline consumer: at-least-once delivery, bounded
// redelivery, and a durable dead-letter stream.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config holds NATS connection configuration.
type Config struct {
	URL            string        `yaml:"url"`
	Name           string        `yaml:"name"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// OutageAlertAfter bounds how long the connection may stay down before
	// the disconnect is escalated to an error-level log. Sustained broker
	// unavailability must be observable, not silently absorbed.
	OutageAlertAfter time.Duration `yaml:"outage_alert_after"`
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		URL:              "nats://localhost:4222",
		Name:             "chain-events",
		ReconnectWait:    2 * time.Second,
		MaxReconnects:    -1, // Unlimited
		ConnectTimeout:   10 * time.Second,
		OutageAlertAfter: time.Minute,
	}
}

// Client wraps a NATS connection with JetStream support and lifecycle management.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	closed      bool
	downSince   time.Time
	outageTimer *time.Timer
}

// Connect establishes a connection to NATS with JetStream enabled.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{cfg: cfg, logger: logger}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
			c.markDown()
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
			c.markUp()
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	c.nc = nc
	c.js = js
	return c, nil
}

// markDown starts the outage clock; if the connection stays down past the
// alert threshold the outage is logged at error level for operator alerting.
func (c *Client) markDown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.downSince.IsZero() {
		return
	}
	c.downSince = time.Now()

	if c.cfg.OutageAlertAfter > 0 {
		since := c.downSince
		c.outageTimer = time.AfterFunc(c.cfg.OutageAlertAfter, func() {
			c.logger.Error("nats broker unreachable past alert threshold",
				"down_since", since,
				"threshold", c.cfg.OutageAlertAfter,
			)
		})
	}
}

func (c *Client) markUp() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.outageTimer != nil {
		c.outageTimer.Stop()
		c.outageTimer = nil
	}
	c.downSince = time.Time{}
}

// JetStream returns the JetStream context for stream operations.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Conn returns the underlying NATS connection.
func (c *Client) Conn() *nats.Conn {
	return c.nc
}

// IsConnected returns true if the client has an active connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.nc.IsConnected()
}

// Close gracefully shuts down the NATS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.outageTimer != nil {
		c.outageTimer.Stop()
	}

	// Drain ensures in-flight messages are processed before closing
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("nats drain: %w", err)
	}

	return nil
}
