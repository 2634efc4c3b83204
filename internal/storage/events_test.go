package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := New(ctx, DefaultConfig())
	if err != nil {
		t.Skipf("Cannot connect to database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func testLabeledEvent(txHash string, logIndex uint32) *events.LabeledEvent {
	return &events.LabeledEvent{
		Event: &events.CanonicalEvent{
			Kind:            events.KindTransfer,
			Standard:        events.StandardERC20,
			Network:         "ethereum",
			ChainID:         1,
			ContractAddress: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
			BlockNumber:     17000000,
			TxHash:          txHash,
			LogIndex:        logIndex,
			TypedData: &events.ERC20TransferPayload{
				From:   "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
				To:     "0xc0Da01a04C3f3E0be433606045bB7017A7323E38",
				Amount: "100",
			},
		},
		Heading: "Transfer",
		Label:   "0x1f98…F984 transferred 100 tokens to 0xc0Da…3E38",
	}
}

func uniqueTxHash() string {
	return fmt.Sprintf("0xtest-%d", time.Now().UnixNano())
}

func TestEventRepository_InsertEvent(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	ev := testLabeledEvent(uniqueTxHash(), 1)

	inserted, err := repo.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if !inserted {
		t.Fatal("first insert reported as duplicate")
	}

	record, err := repo.GetByDedupKey(ctx, ev.Event.DedupKey())
	if err != nil {
		t.Fatalf("GetByDedupKey failed: %v", err)
	}
	if record == nil {
		t.Fatal("event not found after insert")
	}
	if record.Heading != ev.Heading || record.Label != ev.Label {
		t.Errorf("stored annotation = (%q, %q), want (%q, %q)",
			record.Heading, record.Label, ev.Heading, ev.Label)
	}
	if record.Kind != string(ev.Event.Kind) {
		t.Errorf("stored kind = %q, want %q", record.Kind, ev.Event.Kind)
	}
}

func TestEventRepository_DuplicateInsertSucceedsWithoutInserting(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	ev := testLabeledEvent(uniqueTxHash(), 2)

	inserted, err := repo.InsertEvent(ctx, ev)
	if err != nil || !inserted {
		t.Fatalf("first insert = (%v, %v)", inserted, err)
	}

	// Same dedup key with a different label still conflicts: the first
	// stored row wins.
	redelivered := testLabeledEvent(ev.Event.TxHash, 2)
	redelivered.Label = "a different rendering of the same event"

	inserted, err = repo.InsertEvent(ctx, redelivered)
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if inserted {
		t.Error("duplicate insert reported as newly inserted")
	}

	record, err := repo.GetByDedupKey(ctx, ev.Event.DedupKey())
	if err != nil {
		t.Fatal(err)
	}
	if record.Label != ev.Label {
		t.Errorf("stored label = %q, want the first delivery's %q", record.Label, ev.Label)
	}
}

func TestEventRepository_SameTxDifferentLogIndex(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	txHash := uniqueTxHash()
	for _, logIndex := range []uint32{0, 1, 2} {
		inserted, err := repo.InsertEvent(ctx, testLabeledEvent(txHash, logIndex))
		if err != nil {
			t.Fatalf("log index %d: %v", logIndex, err)
		}
		if !inserted {
			t.Errorf("log index %d treated as duplicate of a different emission", logIndex)
		}
	}
}

func TestEventRepository_GetByDedupKey_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepository(db)

	record, err := repo.GetByDedupKey(context.Background(), events.DedupKey{
		Network:         "ethereum",
		ContractAddress: "0x0000000000000000000000000000000000000001",
		TxHash:          "0xdoes-not-exist",
		LogIndex:        99,
	})
	if err != nil {
		t.Fatalf("missing row must not error: %v", err)
	}
	if record != nil {
		t.Errorf("got %+v for a missing key", record)
	}
}

func TestEventRepository_ListByContract(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	ev := testLabeledEvent(uniqueTxHash(), 3)
	if _, err := repo.InsertEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}

	records, err := repo.ListByContract(ctx, ev.Event.Network, ev.Event.ContractAddress, 10)
	if err != nil {
		t.Fatalf("ListByContract failed: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("no events listed for contract")
	}
}
