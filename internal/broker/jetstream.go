package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// StreamConfig defines the configuration for a JetStream stream.
type StreamConfig struct {
	Name        string
	Subjects    []string
	Retention   jetstream.RetentionPolicy
	MaxAge      time.Duration
	MaxMsgs     int64
	MaxBytes    int64
	Replicas    int
	Description string
}

// RawEventsStreamConfig returns the stream holding raw events awaiting
// classification. One subject per network+standard pair so consumers can
// scale independently per network.
func RawEventsStreamConfig() StreamConfig {
	return StreamConfig{
		Name:        "RAW_EVENTS",
		Subjects:    []string{"raw.events.>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB max
		Replicas:    1,                       // Single replica for dev
		Description: "Raw chain-listener events awaiting normalization",
	}
}

// DeadLetterStreamConfig returns the durable dead-letter stream. Messages
// land here only after exhausting redelivery and stay until manually
// replayed.
func DeadLetterStreamConfig() StreamConfig {
	return StreamConfig{
		Name:        "RAW_EVENTS_DLQ",
		Subjects:    []string{"dlq.raw.events.>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      30 * 24 * time.Hour,
		Replicas:    1,
		Description: "Raw events that exhausted redelivery, held for manual replay",
	}
}

// EnsureStream creates or updates a JetStream stream with the given configuration.
// This is idempotent - safe to call multiple times.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg StreamConfig) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        cfg.Name,
		Subjects:    cfg.Subjects,
		Retention:   cfg.Retention,
		MaxAge:      cfg.MaxAge,
		MaxMsgs:     cfg.MaxMsgs,
		MaxBytes:    cfg.MaxBytes,
		Replicas:    cfg.Replicas,
		Description: cfg.Description,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
	}

	return stream, nil
}

// ConsumerConfig defines the configuration for a JetStream consumer.
type ConsumerConfig struct {
	Name          string
	FilterSubject string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
}

// PipelineConsumerConfig returns the durable consumer configuration for the
// normalization pipeline. MaxDeliver bounds redelivery; the pipeline
// dead-letters on the final attempt.
func PipelineConsumerConfig(name string) ConsumerConfig {
	return ConsumerConfig{
		Name:          name,
		FilterSubject: "", // All subjects in stream
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		MaxAckPending: 1000,
	}
}

// EnsureConsumer creates or updates a durable consumer on the given stream.
func EnsureConsumer(ctx context.Context, stream jetstream.Stream, cfg ConsumerConfig) (jetstream.Consumer, error) {
	consumerCfg := jetstream.ConsumerConfig{
		Name:          cfg.Name,
		Durable:       cfg.Name, // Durable name = consumer name
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
	}

	if cfg.FilterSubject != "" {
		consumerCfg.FilterSubject = cfg.FilterSubject
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerCfg)
	if err != nil {
		return nil, fmt.Errorf("ensure consumer %s: %w", cfg.Name, err)
	}

	return consumer, nil
}

// RawSubject returns the NATS subject for a raw event's network+standard
// routing key. Format: raw.events.<network>.<standard>
func RawSubject(network string, standard events.Standard) string {
	return fmt.Sprintf("raw.events.%s.%s", network, standard)
}

// DeadLetterSubject returns the dead-letter subject mirroring a raw subject.
// Format: dlq.raw.events.<network>.<standard>
func DeadLetterSubject(network string, standard events.Standard) string {
	return fmt.Sprintf("dlq.raw.events.%s.%s", network, standard)
}

// NetworkSubject returns the wildcard subject for all raw events on a network.
func NetworkSubject(network string) string {
	return fmt.Sprintf("raw.events.%s.>", network)
}
