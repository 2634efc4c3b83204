package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

const (
	keyContractSubs = "subs:contract:"
	keyInbox        = "notifications:"
)

// Notification is the derived record pushed to each subscriber's inbox.
type Notification struct {
	ID        string           `json:"id"`
	Heading   string           `json:"heading"`
	Label     string           `json:"label"`
	Network   string           `json:"network"`
	Contract  string           `json:"contract"`
	Kind      events.EventKind `json:"kind"`
	TxHash    string           `json:"tx_hash"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationConfig holds the handler's Redis connection settings.
type NotificationConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	KeyPrefix string `yaml:"key_prefix"`

	// MaxInbox caps each subscriber's inbox length; older notifications are
	// trimmed first.
	MaxInbox int64 `yaml:"max_inbox"`
}

// DefaultNotificationConfig returns defaults for local development.
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		Addr:     "localhost:6379",
		MaxInbox: 1000,
	}
}

// NotificationHandler fans events out to subscriber inboxes. The subscriber
// registry and the inboxes live in the handler's own Redis store; the
// pipeline supplies nothing but the event.
type NotificationHandler struct {
	client    *redis.Client
	keyPrefix string
	maxInbox  int64
}

// NewNotificationHandler connects to Redis and verifies the connection.
func NewNotificationHandler(ctx context.Context, cfg NotificationConfig) (*NotificationHandler, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	maxInbox := cfg.MaxInbox
	if maxInbox <= 0 {
		maxInbox = DefaultNotificationConfig().MaxInbox
	}

	return &NotificationHandler{client: client, keyPrefix: cfg.KeyPrefix, maxInbox: maxInbox}, nil
}

// NewNotificationHandlerWithClient wraps an existing Redis client, used by
// tests and shared-pool setups.
func NewNotificationHandlerWithClient(client *redis.Client, keyPrefix string) *NotificationHandler {
	return &NotificationHandler{
		client:    client,
		keyPrefix: keyPrefix,
		maxInbox:  DefaultNotificationConfig().MaxInbox,
	}
}

func (h *NotificationHandler) Name() string { return "notification" }

// Handle looks up subscribers of the event's contract and pushes one
// notification record to each inbox. Returns the notification IDs created.
func (h *NotificationHandler) Handle(ctx context.Context, ev *events.LabeledEvent) (any, error) {
	subKey := h.key(keyContractSubs, ev.Event.Network, ":", ev.Event.ContractAddress)

	subscribers, err := h.client.SMembers(ctx, subKey).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return nil, nil
	}

	note := Notification{
		ID:        uuid.NewString(),
		Heading:   ev.Heading,
		Label:     ev.Label,
		Network:   ev.Event.Network,
		Contract:  ev.Event.ContractAddress,
		Kind:      ev.Event.Kind,
		TxHash:    ev.Event.TxHash,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}

	delivered := make([]string, 0, len(subscribers))
	for _, sub := range subscribers {
		inbox := h.key(keyInbox, sub)
		pipe := h.client.TxPipeline()
		pipe.LPush(ctx, inbox, payload)
		pipe.LTrim(ctx, inbox, 0, h.maxInbox-1)
		if _, err := pipe.Exec(ctx); err != nil {
			return delivered, fmt.Errorf("push notification to %s: %w", sub, err)
		}
		delivered = append(delivered, sub)
	}

	return delivered, nil
}

// Subscribe registers a subscriber for a contract's events.
func (h *NotificationHandler) Subscribe(ctx context.Context, subscriberID, network, contractAddress string) error {
	subKey := h.key(keyContractSubs, network, ":", contractAddress)
	if err := h.client.SAdd(ctx, subKey, subscriberID).Err(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Unsubscribe removes a subscriber's registration for a contract.
func (h *NotificationHandler) Unsubscribe(ctx context.Context, subscriberID, network, contractAddress string) error {
	subKey := h.key(keyContractSubs, network, ":", contractAddress)
	if err := h.client.SRem(ctx, subKey, subscriberID).Err(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// Inbox returns up to limit pending notifications for a subscriber, newest
// first.
func (h *NotificationHandler) Inbox(ctx context.Context, subscriberID string, limit int64) ([]Notification, error) {
	raw, err := h.client.LRange(ctx, h.key(keyInbox, subscriberID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	notes := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// Close releases the Redis connection.
func (h *NotificationHandler) Close() error {
	return h.client.Close()
}

func (h *NotificationHandler) key(parts ...string) string {
	result := h.keyPrefix
	for _, p := range parts {
		result += p
	}
	return result
}
