package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/hicommonwealth/chain-events/internal/broker"
	"github.com/hicommonwealth/chain-events/pkg/events"
)

// Publisher is the JetStream side of the bridge; satisfied by
// broker.Publisher, which owns the backoff retry policy.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

// Config holds bridge configuration.
type Config struct {
	Brokers         string `yaml:"brokers"`
	ListenerTopic   string `yaml:"listener_topic"`
	QuarantineTopic string `yaml:"quarantine_topic"`
	ConsumerGroup   string `yaml:"consumer_group"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Brokers:         "localhost:9092",
		ListenerTopic:   "chain-listener-logs",
		QuarantineTopic: "chain-listener-quarantine",
		ConsumerGroup:   "chain-events-bridge",
	}
}

// Bridge consumes raw listener records from Kafka and publishes each to the
// JetStream subject for its network+standard pair. Offsets commit per record
// after it has been published or quarantined; on a failure the consumed
// position is rewound to the failed record, because polling past it would
// otherwise let a later commit cover offsets that were never bridged. Broker
// trouble stalls the bridge instead of dropping events.
type Bridge struct {
	cfg       Config
	client    *kgo.Client
	publisher Publisher
	logger    *slog.Logger

	mu          sync.Mutex
	bridged     uint64
	quarantined uint64
}

// NewBridge connects the Kafka consumer group.
func NewBridge(cfg Config, publisher Publisher, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}

	brokerList := strings.Split(cfg.Brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokerList...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.ListenerTopic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	logger.Info("ingest bridge connected to kafka",
		"brokers", cfg.Brokers,
		"topic", cfg.ListenerTopic,
		"consumer_group", cfg.ConsumerGroup,
	)

	return &Bridge{cfg: cfg, client: client, publisher: publisher, logger: logger}, nil
}

// Run consumes until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return b.shutdown()
		default:
		}

		fetches := b.client.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			b.logFetchErrors(errs)
			continue
		}

		bridged, rewinds := b.bridgeFetches(ctx, fetches)

		if len(bridged) > 0 {
			if err := b.client.CommitRecords(ctx, bridged...); err != nil {
				b.logger.Error("commit error", "error", err)
			}
		}
		if len(rewinds) > 0 {
			// PollFetches advances the in-session position past every fetched
			// record whether or not it commits, so the failed partitions must
			// be rewound before the next poll; otherwise a later commit marks
			// the unbridged records consumed.
			b.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
				b.cfg.ListenerTopic: rewinds,
			})
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (b *Bridge) logFetchErrors(errs []kgo.FetchError) {
	for _, e := range errs {
		if errors.Is(e.Err, context.Canceled) {
			continue
		}
		b.logger.Error("fetch error",
			"topic", e.Topic,
			"partition", e.Partition,
			"error", e.Err,
		)
	}
}

// bridgeFetches walks one poll in partition offset order. It returns the
// records that bridged and are safe to commit, plus the rewind point for each
// partition whose first failure stopped it.
func (b *Bridge) bridgeFetches(ctx context.Context, fetches kgo.Fetches) ([]*kgo.Record, map[int32]kgo.EpochOffset) {
	var bridged []*kgo.Record
	rewinds := make(map[int32]kgo.EpochOffset)

	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		for _, record := range p.Records {
			if err := b.bridgeRecord(ctx, record); err != nil {
				b.logger.Error("bridge record failed",
					"offset", record.Offset,
					"partition", record.Partition,
					"error", err,
				)
				rewinds[record.Partition] = kgo.EpochOffset{
					Epoch:  record.LeaderEpoch,
					Offset: record.Offset,
				}
				return
			}
			bridged = append(bridged, record)
		}
	})

	if len(rewinds) == 0 {
		return bridged, nil
	}
	return bridged, rewinds
}

// bridgeRecord validates one listener record and publishes it onward.
// Records that cannot be a RawEvent go to the quarantine topic; transport
// failures return an error so the record stays uncommitted and its partition
// rewinds.
func (b *Bridge) bridgeRecord(ctx context.Context, record *kgo.Record) error {
	raw, err := decodeRawEvent(record.Value)
	if err != nil {
		b.logger.Warn("quarantining undecodable listener record",
			"offset", record.Offset,
			"error", err,
		)
		return b.quarantine(ctx, record, err)
	}

	subject := broker.RawSubject(raw.Network, raw.Standard)
	if err := b.publisher.Publish(ctx, subject, record.Value); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	b.mu.Lock()
	b.bridged++
	b.mu.Unlock()

	return nil
}

// decodeRawEvent parses and validates a listener record. The routing fields
// must be present; everything else is the pipeline's concern.
func decodeRawEvent(data []byte) (events.RawEvent, error) {
	var raw events.RawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("unmarshal: %w", err)
	}

	switch {
	case raw.Network == "":
		return raw, fmt.Errorf("missing network")
	case raw.Standard == "":
		return raw, fmt.Errorf("missing standard")
	case raw.ContractAddress == "":
		return raw, fmt.Errorf("missing contract_address")
	case raw.TxHash == "":
		return raw, fmt.Errorf("missing tx_hash")
	case raw.EventName == "":
		return raw, fmt.Errorf("missing event_name")
	}

	return raw, nil
}

func (b *Bridge) quarantine(ctx context.Context, record *kgo.Record, cause error) error {
	out := &kgo.Record{
		Topic: b.cfg.QuarantineTopic,
		Key:   record.Key,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: "quarantine_reason", Value: []byte(cause.Error())},
		},
	}

	results := b.client.ProduceSync(ctx, out)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("quarantine produce: %w", err)
	}

	b.mu.Lock()
	b.quarantined++
	b.mu.Unlock()

	return nil
}

// Stats returns bridge counters.
func (b *Bridge) Stats() (bridged, quarantined uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bridged, b.quarantined
}

func (b *Bridge) shutdown() error {
	b.logger.Info("shutting down ingest bridge")

	// Every bridged record was committed in its own poll; records past the
	// committed position simply redeliver to the next session.
	b.client.Close()

	bridged, quarantined := b.Stats()
	b.logger.Info("ingest bridge stopped", "bridged", bridged, "quarantined", quarantined)
	return nil
}
