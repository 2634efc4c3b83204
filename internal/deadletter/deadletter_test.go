package deadletter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

func TestObjectKey(t *testing.T) {
	raw := events.RawEvent{
		Network:         "ethereum",
		ContractAddress: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
		TxHash:          "0xabc",
		LogIndex:        7,
	}
	want := "ethereum/0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984/0xabc-7.json"
	if got := ObjectKey(raw); got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}

func TestObjectKey_MalformedEvent(t *testing.T) {
	first := ObjectKey(events.RawEvent{})
	second := ObjectKey(events.RawEvent{})

	if !strings.HasPrefix(first, "malformed/") {
		t.Errorf("key = %q, want malformed/ prefix", first)
	}
	if first == second {
		t.Error("malformed keys must not collide")
	}
}

type recordingPublisher struct {
	subjects []string
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	return nil
}

func TestSinkDeadLetter(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewSink(pub, nil, nil)

	raw := events.RawEvent{
		Network:         "ethereum",
		ContractAddress: "0xabc",
		TxHash:          "0x1",
		Standard:        events.StandardERC20,
	}
	if err := sink.DeadLetter(context.Background(), raw, []byte("{}"), "persist: timeout"); err != nil {
		t.Fatalf("DeadLetter: %v", err)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "dlq.raw.events.ethereum.erc20" {
		t.Errorf("published to %v", pub.subjects)
	}
}

func TestSinkDeadLetter_MissingRoutingFields(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewSink(pub, nil, nil)

	if err := sink.DeadLetter(context.Background(), events.RawEvent{}, []byte("not json"), "unmarshal"); err != nil {
		t.Fatalf("DeadLetter: %v", err)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "dlq.raw.events.unknown.unknown" {
		t.Errorf("published to %v", pub.subjects)
	}
}

func TestSinkDeadLetter_PublishFailurePropagates(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	sink := NewSink(pub, nil, nil)

	if err := sink.DeadLetter(context.Background(), events.RawEvent{}, []byte("{}"), "x"); err == nil {
		t.Error("expected error when the DLQ publish fails")
	}
}
