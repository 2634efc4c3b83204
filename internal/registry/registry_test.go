package registry

import (
	"testing"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

const (
	addrA = "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"
	addrB = "0xc0da01a04c3f3e0be433606045bb7017a7323e38"
)

func TestClassify(t *testing.T) {
	r := New()

	tests := []struct {
		name      string
		standard  events.Standard
		version   events.ABIVersion
		eventName string
		wantKind  events.EventKind
		wantOK    bool
	}{
		{
			name:      "erc20 transfer",
			standard:  events.StandardERC20,
			version:   events.ABIVersionV1,
			eventName: "Transfer",
			wantKind:  events.KindTransfer,
			wantOK:    true,
		},
		{
			name:      "compound v2 voting delay",
			standard:  events.StandardCompoundGov,
			version:   events.ABIVersionV2,
			eventName: "VotingDelaySet",
			wantKind:  events.KindVotingDelaySet,
			wantOK:    true,
		},
		{
			name:      "v2-only name under v1 does not classify",
			standard:  events.StandardCompoundGov,
			version:   events.ABIVersionV1,
			eventName: "VotingDelaySet",
			wantOK:    false,
		},
		{
			name:      "erc721 name under erc20 does not classify",
			standard:  events.StandardERC20,
			version:   events.ABIVersionV1,
			eventName: "ApprovalForAll",
			wantOK:    false,
		},
		{
			name:      "unknown event name",
			standard:  events.StandardERC20,
			version:   events.ABIVersionV1,
			eventName: "Mint",
			wantOK:    false,
		},
		{
			name:      "unknown standard",
			standard:  events.Standard("erc1155"),
			version:   events.ABIVersionV1,
			eventName: "TransferSingle",
			wantOK:    false,
		},
		{
			name:      "unknown version",
			standard:  events.StandardERC20,
			version:   events.ABIVersion("v9"),
			eventName: "Transfer",
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := r.Classify(tt.standard, tt.version, tt.eventName)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	r := New()
	first, ok := r.Classify(events.StandardERC721, events.ABIVersionV1, "Transfer")
	if !ok {
		t.Fatal("expected classification")
	}
	for i := 0; i < 100; i++ {
		kind, ok := r.Classify(events.StandardERC721, events.ABIVersionV1, "Transfer")
		if !ok || kind != first {
			t.Fatalf("iteration %d: got (%q, %v), want (%q, true)", i, kind, ok, first)
		}
	}
}

func TestClassify_EveryRegisteredKindRoundTrips(t *testing.T) {
	r := New()
	for _, standard := range events.Standards() {
		for _, version := range events.VersionsFor(standard) {
			for _, kind := range events.KindsFor(standard, version) {
				name, ok := rawNames[kind]
				if !ok {
					t.Fatalf("no raw name for %q", kind)
				}
				got, ok := r.Classify(standard, version, name)
				if !ok || got != kind {
					t.Errorf("%s/%s %q: got (%q, %v), want (%q, true)",
						standard, version, name, got, ok, kind)
				}
			}
		}
	}
}

func TestParse(t *testing.T) {
	r := New()

	base := events.RawEvent{
		Network:         "ethereum",
		ChainID:         1,
		ContractAddress: addrA,
		BlockNumber:     17000000,
		TxHash:          "0xabc",
		LogIndex:        4,
	}

	t.Run("unknown event name is not an error", func(t *testing.T) {
		raw := base
		raw.Standard = events.StandardERC20
		raw.ABIVersion = events.ABIVersionV1
		raw.EventName = "FlashLoan"

		ev, classified, err := r.Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if classified {
			t.Error("unknown event reported as classified")
		}
		if ev != nil {
			t.Error("unknown event produced a canonical event")
		}
	})

	t.Run("erc20 transfer", func(t *testing.T) {
		raw := base
		raw.Standard = events.StandardERC20
		raw.ABIVersion = events.ABIVersionV1
		raw.EventName = "Transfer"
		raw.RawArgs = map[string]string{"from": addrA, "to": addrB, "value": "1500"}

		ev, classified, err := r.Parse(raw)
		if err != nil || !classified {
			t.Fatalf("Parse() = (%v, %v, %v)", ev, classified, err)
		}
		if ev.Kind != events.KindTransfer {
			t.Errorf("kind = %q", ev.Kind)
		}
		payload, ok := ev.TypedData.(*events.ERC20TransferPayload)
		if !ok {
			t.Fatalf("payload type = %T", ev.TypedData)
		}
		if payload.Amount != "1500" {
			t.Errorf("amount = %q", payload.Amount)
		}
	})

	t.Run("contract address is checksummed", func(t *testing.T) {
		raw := base
		raw.Standard = events.StandardERC20
		raw.ABIVersion = events.ABIVersionV1
		raw.EventName = "Transfer"
		raw.RawArgs = map[string]string{"from": addrA, "to": addrB, "value": "1"}

		ev, _, err := r.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		want := "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"
		if ev.ContractAddress != want {
			t.Errorf("contract address = %q, want checksummed %q", ev.ContractAddress, want)
		}
	})

	t.Run("invalid contract address is a terminal error", func(t *testing.T) {
		raw := base
		raw.Standard = events.StandardERC20
		raw.ABIVersion = events.ABIVersionV1
		raw.EventName = "Transfer"
		raw.ContractAddress = "not-an-address"
		raw.RawArgs = map[string]string{"from": addrA, "to": addrB, "value": "1"}

		_, classified, err := r.Parse(raw)
		if err == nil {
			t.Fatal("expected error")
		}
		if !classified {
			t.Error("malformed event should still report classified")
		}
	})

	t.Run("malformed argument is a terminal error", func(t *testing.T) {
		raw := base
		raw.Standard = events.StandardERC20
		raw.ABIVersion = events.ABIVersionV1
		raw.EventName = "Transfer"
		raw.RawArgs = map[string]string{"from": addrA, "to": "bogus", "value": "1"}

		_, classified, err := r.Parse(raw)
		if err == nil {
			t.Fatal("expected error")
		}
		if !classified {
			t.Error("malformed event should still report classified")
		}
	})
}

func TestParseVoteCastVersions(t *testing.T) {
	r := New()

	base := events.RawEvent{
		Network:         "ethereum",
		ChainID:         1,
		ContractAddress: addrA,
		TxHash:          "0xvote",
		Standard:        events.StandardCompoundGov,
		EventName:       "VoteCast",
	}

	t.Run("v1 boolean support", func(t *testing.T) {
		raw := base
		raw.ABIVersion = events.ABIVersionV1
		raw.RawArgs = map[string]string{
			"voter":      addrB,
			"proposalId": "12",
			"support":    "true",
			"votes":      "400",
		}

		ev, _, err := r.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		payload := ev.TypedData.(*events.VoteCastPayload)
		if payload.Support != 1 {
			t.Errorf("support = %d, want 1", payload.Support)
		}
		if payload.Reason != "" {
			t.Errorf("v1 vote carried a reason: %q", payload.Reason)
		}
	})

	t.Run("v2 enum support with reason", func(t *testing.T) {
		raw := base
		raw.ABIVersion = events.ABIVersionV2
		raw.RawArgs = map[string]string{
			"voter":      addrB,
			"proposalId": "12",
			"support":    "2",
			"votes":      "400",
			"reason":     "prefer the alternative",
		}

		ev, _, err := r.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		payload := ev.TypedData.(*events.VoteCastPayload)
		if payload.Support != 2 {
			t.Errorf("support = %d, want 2", payload.Support)
		}
		if payload.Reason != "prefer the alternative" {
			t.Errorf("reason = %q", payload.Reason)
		}
	})
}

func TestArgHelpers(t *testing.T) {
	t.Run("numArg hex input", func(t *testing.T) {
		got, err := numArg(map[string]string{"value": "0xff"}, "value")
		if err != nil || got != "255" {
			t.Errorf("numArg(0xff) = (%q, %v), want (255, nil)", got, err)
		}
	})

	t.Run("numArg absent defaults to zero", func(t *testing.T) {
		got, err := numArg(map[string]string{}, "value")
		if err != nil || got != "0" {
			t.Errorf("numArg(absent) = (%q, %v), want (0, nil)", got, err)
		}
	})

	t.Run("numArg rejects garbage", func(t *testing.T) {
		if _, err := numArg(map[string]string{"value": "12abc"}, "value"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("numArg rejects negative values", func(t *testing.T) {
		if _, err := numArg(map[string]string{"value": "-5"}, "value"); err == nil {
			t.Error("expected error for negative amount")
		}
	})

	t.Run("firstOf alias order", func(t *testing.T) {
		got, err := numArg(map[string]string{"proposalId": "9"}, "id", "proposalId")
		if err != nil || got != "9" {
			t.Errorf("alias lookup = (%q, %v)", got, err)
		}
	})

	t.Run("uint8Arg range", func(t *testing.T) {
		if _, err := uint8Arg(map[string]string{"support": "300"}, "support"); err == nil {
			t.Error("expected error for out-of-range value")
		}
	})
}
