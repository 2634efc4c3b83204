package events

import (
	"encoding/json"
	"testing"
)

func TestKindsFor_VersionScoping(t *testing.T) {
	v1 := KindsFor(StandardCompoundGov, ABIVersionV1)
	v2 := KindsFor(StandardCompoundGov, ABIVersionV2)

	if len(v2) <= len(v1) {
		t.Fatalf("v2 kind set (%d) should extend v1 (%d)", len(v2), len(v1))
	}

	v1Set := make(map[EventKind]bool)
	for _, k := range v1 {
		v1Set[k] = true
	}
	for _, k := range v1 {
		if k == KindVotingDelaySet {
			t.Error("VotingDelaySet must not appear in the v1 set")
		}
	}

	// Every v1 kind survives into v2.
	v2Set := make(map[EventKind]bool)
	for _, k := range v2 {
		v2Set[k] = true
	}
	for k := range v1Set {
		if !v2Set[k] {
			t.Errorf("v1 kind %q missing from v2 set", k)
		}
	}
}

func TestKindsFor_UnknownStandard(t *testing.T) {
	if kinds := KindsFor(Standard("cosmos-gov"), ABIVersionV1); kinds != nil {
		t.Errorf("unknown standard returned kinds %v", kinds)
	}
}

func TestHeading_CoversAllKinds(t *testing.T) {
	for _, standard := range Standards() {
		for _, version := range VersionsFor(standard) {
			for _, kind := range KindsFor(standard, version) {
				h := kind.Heading()
				if h == "" {
					t.Errorf("%s/%s: empty heading", standard, kind)
				}
				if h == string(kind) {
					t.Errorf("%s/%s: heading fell through to raw kind string", standard, kind)
				}
			}
		}
	}
}

func TestDedupKeyString(t *testing.T) {
	key := DedupKey{
		Network:         "edgeware",
		ContractAddress: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
		TxHash:          "0xabc",
		LogIndex:        7,
	}
	want := "edgeware:0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984:0xabc:7"
	if got := key.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCanonicalEventDedupKey(t *testing.T) {
	ev := &CanonicalEvent{
		Network:         "ethereum",
		ContractAddress: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
		TxHash:          "0xdeadbeef",
		LogIndex:        3,
		BlockNumber:     100,
	}
	key := ev.DedupKey()
	if key.Network != ev.Network || key.ContractAddress != ev.ContractAddress ||
		key.TxHash != ev.TxHash || key.LogIndex != ev.LogIndex {
		t.Errorf("DedupKey() = %+v does not match event coordinates", key)
	}
}

func TestHasPayload_TotalOverKindSets(t *testing.T) {
	for _, standard := range Standards() {
		for _, version := range VersionsFor(standard) {
			for _, kind := range KindsFor(standard, version) {
				if !HasPayload(standard, kind) {
					t.Errorf("%s/%s (%s): no payload type", standard, kind, version)
				}
			}
		}
	}
}

func TestDecodeTypedData(t *testing.T) {
	tests := []struct {
		name     string
		standard Standard
		kind     EventKind
		data     string
		wantErr  bool
		check    func(t *testing.T, payload any)
	}{
		{
			name:     "erc20 transfer",
			standard: StandardERC20,
			kind:     KindTransfer,
			data:     `{"from":"0xaa","to":"0xbb","amount":"1000"}`,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*ERC20TransferPayload)
				if !ok {
					t.Fatalf("payload type = %T", payload)
				}
				if p.Amount != "1000" {
					t.Errorf("amount = %q, want 1000", p.Amount)
				}
			},
		},
		{
			name:     "vote cast with reason",
			standard: StandardCompoundGov,
			kind:     KindVoteCast,
			data:     `{"voter":"0xcc","proposal_id":"42","support":2,"votes":"9","reason":"too risky"}`,
			check: func(t *testing.T, payload any) {
				p, ok := payload.(*VoteCastPayload)
				if !ok {
					t.Fatalf("payload type = %T", payload)
				}
				if p.Support != 2 || p.Reason != "too risky" {
					t.Errorf("got support=%d reason=%q", p.Support, p.Reason)
				}
			},
		},
		{
			name:     "unknown pairing",
			standard: StandardERC20,
			kind:     KindProposalCreated,
			data:     `{}`,
			wantErr:  true,
		},
		{
			name:     "malformed json",
			standard: StandardERC20,
			kind:     KindTransfer,
			data:     `{"from":`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodeTypedData(tt.standard, tt.kind, json.RawMessage(tt.data))

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, payload)
		})
	}
}
