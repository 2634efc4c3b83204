// Command dlq-replay republishes dead-lettered events back onto the
// raw-event stream.
//
// Events land in the archive after exhausting pipeline redelivery, usually
// because of a transient persistence outage or a parser gap that has since
// been fixed. Replay reads each archived object, publishes it to the subject
// for its network and standard, and removes the object once the publish
// succeeds.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hicommonwealth/chain-events/internal/broker"
	"github.com/hicommonwealth/chain-events/internal/config"
	"github.com/hicommonwealth/chain-events/internal/deadletter"
	"github.com/hicommonwealth/chain-events/pkg/events"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	prefix := flag.String("prefix", "", "Replay only objects under this key prefix (e.g. a network name)")
	list := flag.Bool("list", false, "List archived objects without replaying")
	keep := flag.Bool("keep", false, "Keep archived objects after a successful replay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	archiver, err := deadletter.NewArchiver(ctx, cfg.Archive, logger)
	if err != nil {
		logger.Error("failed to open archive", "error", err)
		os.Exit(1)
	}

	keys, err := archiver.List(ctx, *prefix)
	if err != nil {
		logger.Error("failed to list archive", "error", err)
		os.Exit(1)
	}

	if *list {
		for _, key := range keys {
			fmt.Println(key)
		}
		return
	}

	if len(keys) == 0 {
		logger.Info("nothing to replay", "prefix", *prefix)
		return
	}

	client, err := broker.Connect(ctx, cfg.NATS, logger)
	if err != nil {
		logger.Error("failed to connect to nats", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if _, err := broker.EnsureStream(ctx, client.JetStream(), broker.RawEventsStreamConfig()); err != nil {
		logger.Error("failed to ensure stream", "error", err)
		os.Exit(1)
	}
	publisher := broker.NewPublisher(client.JetStream(), cfg.Publisher, logger)

	replayed, failed := 0, 0
	for _, key := range keys {
		if err := replay(ctx, archiver, publisher, key, *keep); err != nil {
			logger.Error("replay failed", "key", key, "error", err)
			failed++
			continue
		}
		logger.Info("replayed", "key", key)
		replayed++
	}

	logger.Info("replay complete", "replayed", replayed, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func replay(ctx context.Context, archiver *deadletter.Archiver, publisher *broker.Publisher, key string, keep bool) error {
	payload, err := archiver.Fetch(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	var raw events.RawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("archived payload is not a raw event: %w", err)
	}

	if err := publisher.Publish(ctx, broker.RawSubject(raw.Network, raw.Standard), payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	if !keep {
		if err := archiver.Remove(ctx, key); err != nil {
			return fmt.Errorf("remove after replay: %w", err)
		}
	}
	return nil
}
