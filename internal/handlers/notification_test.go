package handlers

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestNotificationHandler(t *testing.T) *NotificationHandler {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewNotificationHandlerWithClient(client, "test:")
}

func TestNotificationHandler_DeliversToSubscribers(t *testing.T) {
	h := newTestNotificationHandler(t)
	ctx := context.Background()
	ev := testEvent()

	if err := h.Subscribe(ctx, "alice", ev.Event.Network, ev.Event.ContractAddress); err != nil {
		t.Fatal(err)
	}
	if err := h.Subscribe(ctx, "bob", ev.Event.Network, ev.Event.ContractAddress); err != nil {
		t.Fatal(err)
	}

	derived, err := h.Handle(ctx, ev)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	delivered, ok := derived.([]string)
	if !ok {
		t.Fatalf("derived type = %T", derived)
	}
	if len(delivered) != 2 {
		t.Fatalf("delivered to %d subscribers, want 2", len(delivered))
	}

	inbox, err := h.Inbox(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 1 {
		t.Fatalf("inbox size = %d, want 1", len(inbox))
	}
	note := inbox[0]
	if note.Heading != ev.Heading || note.Label != ev.Label {
		t.Errorf("notification = %+v, want heading %q label %q", note, ev.Heading, ev.Label)
	}
	if note.ID == "" {
		t.Error("notification missing id")
	}
}

func TestNotificationHandler_NoSubscribers(t *testing.T) {
	h := newTestNotificationHandler(t)

	derived, err := h.Handle(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if derived != nil {
		t.Errorf("derived = %v, want nil with no subscribers", derived)
	}
}

func TestNotificationHandler_Unsubscribe(t *testing.T) {
	h := newTestNotificationHandler(t)
	ctx := context.Background()
	ev := testEvent()

	if err := h.Subscribe(ctx, "alice", ev.Event.Network, ev.Event.ContractAddress); err != nil {
		t.Fatal(err)
	}
	if err := h.Unsubscribe(ctx, "alice", ev.Event.Network, ev.Event.ContractAddress); err != nil {
		t.Fatal(err)
	}

	if _, err := h.Handle(ctx, ev); err != nil {
		t.Fatal(err)
	}
	inbox, err := h.Inbox(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 0 {
		t.Errorf("unsubscribed inbox received %d notifications", len(inbox))
	}
}

func TestNotificationHandler_InboxTrim(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	h := NewNotificationHandlerWithClient(client, "test:")
	h.maxInbox = 3

	ctx := context.Background()
	ev := testEvent()
	if err := h.Subscribe(ctx, "alice", ev.Event.Network, ev.Event.ContractAddress); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if _, err := h.Handle(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	inbox, err := h.Inbox(ctx, "alice", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 3 {
		t.Errorf("inbox size = %d, want trimmed to 3", len(inbox))
	}
}
