// Package pipeline runs the classify, label, persist, dispatch loop over the
// raw-event stream.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/hicommonwealth/chain-events/internal/handlers"
	"github.com/hicommonwealth/chain-events/internal/registry"
	"github.com/hicommonwealth/chain-events/pkg/events"
)

// EventStore is the dedup/persist contract the consumer depends on.
type EventStore interface {
	InsertEvent(ctx context.Context, ev *events.LabeledEvent) (inserted bool, err error)
}

// Labelers annotates canonical events; satisfied by labeler.Set.
type Labelers interface {
	Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error)
}

// DeadLetterSink receives messages that exhausted redelivery, with the full
// raw payload for manual inspection and replay.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, raw events.RawEvent, payload []byte, reason string) error
}

// Message is the subset of jetstream.Msg the consumer touches, narrowed so
// processing can be exercised without a broker.
type Message interface {
	Data() []byte
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
	Metadata() (*jetstream.MsgMetadata, error)
}

// Fetcher pulls message batches; satisfied by jetstream.Consumer.
type Fetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// Config holds consumer tuning.
type Config struct {
	// Workers is the number of parallel processing workers.
	Workers int `yaml:"workers"`

	// BatchSize is the number of messages fetched per poll.
	BatchSize int `yaml:"batch_size"`

	// FetchTimeout bounds one fetch wait.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MaxDeliver mirrors the JetStream consumer's redelivery bound; the
	// final allowed delivery is dead-lettered instead of nacked.
	MaxDeliver int `yaml:"max_deliver"`

	// NakBaseDelay is the base redelivery delay, scaled by attempt count.
	NakBaseDelay time.Duration `yaml:"nak_base_delay"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:      4,
		BatchSize:    100,
		FetchTimeout: 5 * time.Second,
		MaxDeliver:   5,
		NakBaseDelay: 2 * time.Second,
	}
}

// Consumer drives raw events through classify, label, persist, and the
// handler chain, acknowledging only after the full pass succeeds. All
// collaborators are injected at construction; the consumer holds no global
// state.
type Consumer struct {
	cfg      Config
	registry *registry.Registry
	labelers Labelers
	store    EventStore
	chain    *handlers.Chain
	dlq      DeadLetterSink
	logger   *slog.Logger

	mu            sync.Mutex
	processed     uint64
	unclassified  uint64
	duplicates    uint64
	deadLettered  uint64
	processErrors uint64
}

// New constructs a Consumer. Every collaborator is required except dlq, which
// may be nil in tooling that never exhausts redelivery.
func New(cfg Config, reg *registry.Registry, labelers Labelers, store EventStore, chain *handlers.Chain, dlq DeadLetterSink, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = def.MaxDeliver
	}
	if cfg.NakBaseDelay <= 0 {
		cfg.NakBaseDelay = def.NakBaseDelay
	}

	return &Consumer{
		cfg:      cfg,
		registry: reg,
		labelers: labelers,
		store:    store,
		chain:    chain,
		dlq:      dlq,
		logger:   logger,
	}
}

// Run consumes until ctx is canceled. On shutdown it stops fetching and
// finishes in-flight messages before returning; unacknowledged messages are
// redelivered by the broker, so an abrupt kill is safe too.
func (c *Consumer) Run(ctx context.Context, fetcher Fetcher) error {
	c.logger.Info("starting consumer",
		"workers", c.cfg.Workers,
		"batch_size", c.cfg.BatchSize,
		"max_deliver", c.cfg.MaxDeliver,
	)

	msgCh := make(chan Message, c.cfg.BatchSize)

	// Workers run on their own context: ctx cancellation stops fetching, but
	// in-flight messages must finish, not fail against a dead context and
	// burn redelivery attempts.
	procCtx, procCancel := context.WithCancel(context.Background())
	defer procCancel()

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for msg := range msgCh {
				c.Process(procCtx, msg)
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(msgCh)
			wg.Wait()
			c.logStats()
			return nil
		default:
		}

		batch, err := fetcher.Fetch(c.cfg.BatchSize, jetstream.FetchMaxWait(c.cfg.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("fetch error", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for msg := range batch.Messages() {
			select {
			case msgCh <- msg:
			case <-ctx.Done():
				// In-flight fetch results stay unacknowledged and are
				// redelivered.
			}
		}
		if err := batch.Error(); err != nil {
			c.logger.Warn("batch iteration error", "error", err)
		}
	}
}

// Process runs one message through the full pipeline pass. Terminal-success
// outcomes (processed, unclassifiable, duplicate) acknowledge; persistence
// failures nack for redelivery until MaxDeliver, then dead-letter.
func (c *Consumer) Process(ctx context.Context, msg Message) {
	data := msg.Data()

	var raw events.RawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		// The payload will never unmarshal differently on redelivery.
		c.logger.Warn("undecodable raw event, dead-lettering", "error", err)
		c.deadLetter(ctx, msg, raw, data, fmt.Sprintf("unmarshal: %v", err))
		return
	}

	canonical, classified, err := c.registry.Parse(raw)
	if !classified {
		c.count(&c.unclassified)
		c.logger.Debug("unclassified event dropped",
			"network", raw.Network,
			"standard", raw.Standard,
			"abi_version", raw.ABIVersion,
			"event_name", raw.EventName,
			"tx_hash", raw.TxHash,
		)
		c.ack(msg)
		return
	}
	if err != nil {
		// Classified but malformed arguments; redelivery cannot fix it.
		c.count(&c.unclassified)
		c.logger.Warn("malformed event args, dropping",
			"network", raw.Network,
			"event_name", raw.EventName,
			"tx_hash", raw.TxHash,
			"error", err,
		)
		c.ack(msg)
		return
	}

	lbl, err := c.labelers.Label(canonical.ChainID, canonical)
	if err != nil {
		c.retryOrDeadLetter(ctx, msg, raw, data, fmt.Errorf("label: %w", err))
		return
	}

	labeled := &events.LabeledEvent{Event: canonical, Heading: lbl.Heading, Label: lbl.Label}

	inserted, err := c.store.InsertEvent(ctx, labeled)
	if err != nil {
		c.retryOrDeadLetter(ctx, msg, raw, data, fmt.Errorf("persist: %w", err))
		return
	}
	if !inserted {
		// Already processed on a previous delivery; handlers already ran.
		c.count(&c.duplicates)
		c.logger.Debug("duplicate event recognized",
			"dedup_key", canonical.DedupKey().String(),
		)
		c.ack(msg)
		return
	}

	failed := 0
	for _, res := range c.chain.Run(ctx, labeled) {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		// Persistence is the durability boundary; handler side effects are
		// best effort past it, so the event still acknowledges.
		c.logger.Warn("handler chain partial failure",
			"dedup_key", canonical.DedupKey().String(),
			"failed", failed,
			"total", c.chain.Len(),
		)
	}

	c.count(&c.processed)
	c.logger.Debug("event processed",
		"kind", canonical.Kind,
		"standard", canonical.Standard,
		"heading", lbl.Heading,
		"dedup_key", canonical.DedupKey().String(),
	)
	c.ack(msg)
}

// retryOrDeadLetter nacks for broker redelivery with a delay scaled by the
// attempt count, or dead-letters on the final allowed delivery.
func (c *Consumer) retryOrDeadLetter(ctx context.Context, msg Message, raw events.RawEvent, payload []byte, cause error) {
	c.count(&c.processErrors)

	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}

	if errors.Is(cause, context.Canceled) {
		// Cancellation is an interruption, not a data fault; the message
		// stays redeliverable without spending its dead-letter budget.
		c.logger.Warn("processing interrupted, scheduling redelivery",
			"tx_hash", raw.TxHash,
			"attempt", attempt,
			"error", cause,
		)
		if err := msg.NakWithDelay(c.cfg.NakBaseDelay); err != nil {
			c.logger.Warn("nak failed", "error", err)
		}
		return
	}

	if attempt >= c.cfg.MaxDeliver {
		c.logger.Error("redelivery exhausted, dead-lettering",
			"network", raw.Network,
			"contract", raw.ContractAddress,
			"tx_hash", raw.TxHash,
			"log_index", raw.LogIndex,
			"event_name", raw.EventName,
			"attempts", attempt,
			"error", cause,
		)
		c.deadLetter(ctx, msg, raw, payload, cause.Error())
		return
	}

	c.logger.Warn("processing failed, scheduling redelivery",
		"tx_hash", raw.TxHash,
		"attempt", attempt,
		"error", cause,
	)
	if err := msg.NakWithDelay(time.Duration(attempt) * c.cfg.NakBaseDelay); err != nil {
		c.logger.Warn("nak failed", "error", err)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg Message, raw events.RawEvent, payload []byte, reason string) {
	c.count(&c.deadLettered)

	if c.dlq != nil {
		if err := c.dlq.DeadLetter(ctx, raw, payload, reason); err != nil {
			// Keep the message redeliverable rather than lose it.
			c.logger.Error("dead-letter sink failed", "error", err)
			if nakErr := msg.NakWithDelay(c.cfg.NakBaseDelay); nakErr != nil {
				c.logger.Warn("nak failed", "error", nakErr)
			}
			return
		}
	}

	if err := msg.Term(); err != nil {
		c.logger.Warn("term failed", "error", err)
	}
}

func (c *Consumer) ack(msg Message) {
	if err := msg.Ack(); err != nil {
		c.logger.Warn("ack failed", "error", err)
	}
}

func (c *Consumer) count(field *uint64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// Stats returns processing counters.
func (c *Consumer) Stats() (processed, unclassified, duplicates, deadLettered, errors uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed, c.unclassified, c.duplicates, c.deadLettered, c.processErrors
}

func (c *Consumer) logStats() {
	processed, unclassified, duplicates, deadLettered, errs := c.Stats()
	c.logger.Info("consumer stopped",
		"processed", processed,
		"unclassified", unclassified,
		"duplicates", duplicates,
		"dead_lettered", deadLettered,
		"errors", errs,
	)
}
