// Command chain-events runs the event pipeline consumer.
//
// The service consumes raw chain events from JetStream, classifies them
// against the known contract standards, labels them for display, persists
// them with deduplication, and fans each newly stored event out to the
// configured handler chain.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hicommonwealth/chain-events/internal/broker"
	"github.com/hicommonwealth/chain-events/internal/config"
	"github.com/hicommonwealth/chain-events/internal/deadletter"
	"github.com/hicommonwealth/chain-events/internal/handlers"
	"github.com/hicommonwealth/chain-events/internal/labeler"
	"github.com/hicommonwealth/chain-events/internal/pipeline"
	"github.com/hicommonwealth/chain-events/internal/registry"
	"github.com/hicommonwealth/chain-events/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting chain-events consumer",
		"nats_url", cfg.NATS.URL,
		"database", cfg.Database.Database,
		"consumer", cfg.ConsumerName,
		"workers", cfg.Pipeline.Workers,
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
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}

	logger.Info("chain-events consumer shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := storage.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.SkipMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	client, err := broker.Connect(ctx, cfg.NATS, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	js := client.JetStream()

	rawStream, err := broker.EnsureStream(ctx, js, broker.RawEventsStreamConfig())
	if err != nil {
		return err
	}
	if _, err := broker.EnsureStream(ctx, js, broker.DeadLetterStreamConfig()); err != nil {
		return err
	}

	consumerCfg := broker.PipelineConsumerConfig(cfg.ConsumerName)
	consumerCfg.MaxDeliver = cfg.Pipeline.MaxDeliver
	fetcher, err := broker.EnsureConsumer(ctx, rawStream, consumerCfg)
	if err != nil {
		return err
	}

	publisher := broker.NewPublisher(js, cfg.Publisher, logger)

	// Archive is optional; without an object store the DLQ stream alone
	// keeps exhausted messages recoverable.
	var archiver *deadletter.Archiver
	if cfg.Archive.Endpoint != "" {
		archiver, err = deadletter.NewArchiver(ctx, cfg.Archive, logger)
		if err != nil {
			logger.Warn("dead letter archive unavailable, continuing without it", "error", err)
			archiver = nil
		}
	}
	sink := deadletter.NewSink(publisher, archiver, logger)

	chain, cleanup, err := buildChain(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	consumer := pipeline.New(
		cfg.Pipeline,
		registry.New(),
		labeler.NewSet(),
		storage.NewEventRepository(db),
		chain,
		sink,
		logger,
	)

	logger.Info("consumer running, waiting for events...", "handlers", chain.Len())
	return consumer.Run(ctx, fetcher)
}

// buildChain assembles the handler chain from the enabled handlers. The
// returned cleanup closes handler resources and is safe to call once.
func buildChain(ctx context.Context, cfg config.Config, db *storage.DB, logger *slog.Logger) (*handlers.Chain, func(), error) {
	list := []handlers.Handler{handlers.NewLoggingHandler(logger)}
	var closers []func()

	if cfg.Handlers.Notifications {
		nh, err := handlers.NewNotificationHandler(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		list = append(list, nh)
		closers = append(closers, func() {
			if err := nh.Close(); err != nil {
				logger.Warn("notification handler close", "error", err)
			}
		})
	}

	if cfg.Handlers.Broadcast {
		bh := handlers.NewBroadcastHandler(logger)
		list = append(list, bh)
		closers = append(closers, bh.Close)

		mux := http.NewServeMux()
		mux.Handle("/ws", bh)
		srv := &http.Server{Addr: cfg.Handlers.BroadcastAddr, Handler: mux}
		go func() {
			logger.Info("broadcast endpoint listening", "addr", cfg.Handlers.BroadcastAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("broadcast server error", "error", err)
			}
		}()
		closers = append(closers, func() { _ = srv.Close() })
	}

	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}
	return handlers.NewChain(logger, list...), cleanup, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
