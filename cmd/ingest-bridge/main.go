// Command ingest-bridge moves raw chain events from the listener Kafka topic
// into the JetStream raw-event stream.
//
// Chain listeners produce to Kafka; the pipeline consumes from JetStream.
// The bridge validates each record, routes it to the subject for its
// network and standard, and quarantines records that cannot be decoded.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hicommonwealth/chain-events/internal/broker"
	"github.com/hicommonwealth/chain-events/internal/config"
	"github.com/hicommonwealth/chain-events/internal/ingest"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ingest bridge",
		"kafka_brokers", cfg.Ingest.Brokers,
		"listener_topic", cfg.Ingest.ListenerTopic,
		"nats_url", cfg.NATS.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil && err != context.Canceled {
		logger.Error("bridge error", "error", err)
		os.Exit(1)
	}

	logger.Info("ingest bridge shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	manager, err := ingest.NewTopicManager(cfg.Ingest.Brokers)
	if err != nil {
		return err
	}
	topics := ingest.DefaultTopicConfigs(cfg.Ingest.ListenerTopic, cfg.Ingest.QuarantineTopic)
	if err := manager.EnsureTopics(ctx, topics); err != nil {
		manager.Close()
		return err
	}
	manager.Close()

	client, err := broker.Connect(ctx, cfg.NATS, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := broker.EnsureStream(ctx, client.JetStream(), broker.RawEventsStreamConfig()); err != nil {
		return err
	}

	publisher := broker.NewPublisher(client.JetStream(), cfg.Publisher, logger)

	bridge, err := ingest.NewBridge(cfg.Ingest, publisher, logger)
	if err != nil {
		return err
	}

	return bridge.Run(ctx)
}
