// Package config loads the chain-events service configuration. Defaults
// suit local development; a YAML file overlays them and environment
// variables override connection endpoints for container deployments.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hicommonwealth/chain-events/internal/broker"
	"github.com/hicommonwealth/chain-events/internal/deadletter"
	"github.com/hicommonwealth/chain-events/internal/handlers"
	"github.com/hicommonwealth/chain-events/internal/ingest"
	"github.com/hicommonwealth/chain-events/internal/pipeline"
	"github.com/hicommonwealth/chain-events/internal/storage"
)

// HandlersConfig selects which downstream handlers the consumer runs.
// The logging handler is always on; the others need their backing
// services and are opt-in.
type HandlersConfig struct {
	Notifications bool `yaml:"notifications"`
	Broadcast     bool `yaml:"broadcast"`

	// BroadcastAddr is the listen address for the websocket endpoint when
	// the broadcast handler is enabled.
	BroadcastAddr string `yaml:"broadcast_addr"`
}

// Config is the full service configuration.
type Config struct {
	NATS         broker.Config               `yaml:"nats"`
	Publisher    broker.PublisherConfig      `yaml:"publisher"`
	Database     storage.Config              `yaml:"database"`
	Pipeline     pipeline.Config             `yaml:"pipeline"`
	Ingest       ingest.Config               `yaml:"ingest"`
	Redis        handlers.NotificationConfig `yaml:"redis"`
	Archive      deadletter.ArchiveConfig    `yaml:"archive"`
	Handlers     HandlersConfig              `yaml:"handlers"`
	LogLevel     string                      `yaml:"log_level"`
	SkipMigrate  bool                        `yaml:"skip_migrate"`
	ConsumerName string                      `yaml:"consumer_name"`
}

// Default returns the local-development configuration.
func Default() Config {
	return Config{
		NATS:      broker.DefaultConfig(),
		Publisher: broker.DefaultPublisherConfig(),
		Database:  storage.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Ingest:    ingest.DefaultConfig(),
		Redis:     handlers.DefaultNotificationConfig(),
		Archive:   deadletter.DefaultArchiveConfig(),
		Handlers: HandlersConfig{
			BroadcastAddr: ":8090",
		},
		LogLevel:     "info",
		ConsumerName: "chain-events-pipeline",
	}
}

// Load reads configuration, overlaying the YAML file at path (if any) and
// then environment variables onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides connection endpoints from the environment. Only the
// knobs that differ per deployment are exposed this way; tuning lives in
// the YAML file.
func (c *Config) applyEnv() {
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.Database.Host, "POSTGRES_HOST")
	setInt(&c.Database.Port, "POSTGRES_PORT")
	setString(&c.Database.User, "POSTGRES_USER")
	setString(&c.Database.Password, "POSTGRES_PASSWORD")
	setString(&c.Database.Database, "POSTGRES_DB")
	setString(&c.Ingest.Brokers, "KAFKA_BROKERS")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Archive.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Archive.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Archive.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.LogLevel, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}
