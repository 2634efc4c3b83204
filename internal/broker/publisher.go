package broker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// PublisherConfig controls the publish retry policy.
type PublisherConfig struct {
	// MaxAttempts bounds publish retries before the error propagates to the
	// caller. Events are never silently dropped: a final failure is returned,
	// not swallowed.
	MaxAttempts int           `yaml:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// DefaultPublisherConfig returns the standard retry policy.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		MaxAttempts: 8,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}
}

// Publisher publishes payloads to JetStream with exponential backoff on
// broker unavailability.
type Publisher struct {
	js     jetstream.JetStream
	cfg    PublisherConfig
	logger *slog.Logger
}

// NewPublisher creates a Publisher over an established JetStream context.
func NewPublisher(js jetstream.JetStream, cfg PublisherConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPublisherConfig().MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultPublisherConfig().BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultPublisherConfig().MaxBackoff
	}
	return &Publisher{js: js, cfg: cfg, logger: logger}
}

// Publish sends one payload, retrying with exponential backoff and jitter
// until it succeeds, attempts are exhausted, or the context ends.
func (p *Publisher) Publish(ctx context.Context, subject string, payload []byte) error {
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		_, err := p.js.Publish(ctx, subject, payload)
		if err == nil {
			if attempt > 1 {
				p.logger.Info("publish succeeded after retry",
					"subject", subject,
					"attempt", attempt,
				)
			}
			return nil
		}
		lastErr = err

		if attempt == p.cfg.MaxAttempts {
			break
		}

		delay := p.backoff(attempt)
		p.logger.Warn("publish failed, backing off",
			"subject", subject,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("publish %s: %w", subject, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("publish %s after %d attempts: %w", subject, p.cfg.MaxAttempts, lastErr)
}

// backoff returns the delay before the given retry attempt: exponential in
// the attempt number, capped, with up to 25% jitter to avoid thundering
// herds of producers retrying in lockstep.
func (p *Publisher) backoff(attempt int) time.Duration {
	delay := p.cfg.BaseBackoff << (attempt - 1)
	if delay > p.cfg.MaxBackoff || delay <= 0 {
		delay = p.cfg.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
