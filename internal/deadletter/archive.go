// Package deadletter holds exhausted messages for manual inspection and
// replay: a durable DLQ publish plus an object-store archive of the full raw
// payload.
package deadletter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// ArchiveConfig holds the S3-compatible object store settings.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// DefaultArchiveConfig returns defaults for local development against MinIO.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "chain-events-dlq",
	}
}

// Archiver writes dead-lettered raw payloads to an object store, one object
// per emission, keyed so operators can locate an event from its chain
// coordinates.
type Archiver struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewArchiver connects to the object store and ensures the bucket exists.
func NewArchiver(ctx context.Context, cfg ArchiveConfig, logger *slog.Logger) (*Archiver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Archiver{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// ObjectKey returns the archive key for a raw event:
// <network>/<contract>/<txhash>-<logindex>.json. Events too malformed to
// carry their coordinates fall back to a generated key so nothing is ever
// unarchivable.
func ObjectKey(raw events.RawEvent) string {
	if raw.Network == "" || raw.ContractAddress == "" || raw.TxHash == "" {
		return fmt.Sprintf("malformed/%s.json", uuid.NewString())
	}
	return fmt.Sprintf("%s/%s/%s-%d.json", raw.Network, raw.ContractAddress, raw.TxHash, raw.LogIndex)
}

// Archive stores one dead-lettered payload and returns its object key.
func (a *Archiver) Archive(ctx context.Context, raw events.RawEvent, payload []byte, reason string) (string, error) {
	key := ObjectKey(raw)

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"reason":        reason,
				"dead-lettered": time.Now().UTC().Format(time.RFC3339),
				"network":       raw.Network,
				"event-name":    raw.EventName,
			},
		})
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}

	a.logger.Info("dead letter archived", "key", key, "reason", reason)
	return key, nil
}

// List returns the archive keys under a prefix, for replay tooling.
func (a *Archiver) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Fetch returns an archived payload by key.
func (a *Archiver) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return payload, nil
}

// Remove deletes an archived payload after a successful replay.
func (a *Archiver) Remove(ctx context.Context, key string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
