// Package events defines the canonical chain-event vocabulary shared by the
// ingestion pipeline and its downstream consumers.
package events

import (
	"fmt"
)

// Standard identifies a contract standard whose events the pipeline understands.
type Standard string

const (
	StandardERC20       Standard = "erc20"
	StandardERC721      Standard = "erc721"
	StandardCompoundGov Standard = "compound-gov"
	StandardTimelock    Standard = "timelock"
	StandardAaveGov     Standard = "aave-gov"
)

// ABIVersion discriminates between deployed versions of the same logical
// contract. Event names may collide across versions with different argument
// shapes, so lookups are always version-scoped.
type ABIVersion string

const (
	ABIVersionV1 ABIVersion = "v1"
	ABIVersionV2 ABIVersion = "v2"
)

// EventKind is the canonical classification of an on-chain event. Kind values
// are scoped by the owning Standard; the (Standard, Kind) pair is globally
// unique and is what handlers dispatch on.
type EventKind string

const (
	// Token standards (erc20, erc721).
	KindApproval       EventKind = "approval"
	KindApprovalForAll EventKind = "approval-for-all"
	KindTransfer       EventKind = "transfer"

	// Governance (compound-gov, aave-gov).
	KindProposalCreated       EventKind = "proposal-created"
	KindProposalCanceled      EventKind = "proposal-canceled"
	KindProposalQueued        EventKind = "proposal-queued"
	KindProposalExecuted      EventKind = "proposal-executed"
	KindVoteCast              EventKind = "vote-cast"
	KindVotingDelaySet        EventKind = "voting-delay-set"
	KindVotingPeriodSet       EventKind = "voting-period-set"
	KindProposalThresholdSet  EventKind = "proposal-threshold-set"
	KindNewImplementation     EventKind = "new-implementation"
	KindVoteEmitted           EventKind = "vote-emitted"
	KindDelegateChanged       EventKind = "delegate-changed"
	KindDelegatedPowerChanged EventKind = "delegated-power-changed"

	// Timelock.
	KindNewAdmin           EventKind = "new-admin"
	KindNewPendingAdmin    EventKind = "new-pending-admin"
	KindNewDelay           EventKind = "new-delay"
	KindQueueTransaction   EventKind = "queue-transaction"
	KindCancelTransaction  EventKind = "cancel-transaction"
	KindExecuteTransaction EventKind = "execute-transaction"
)

// Heading returns the short, stable display name for a kind. Labelers use it
// as the machine-groupable heading of a labeled event.
func (k EventKind) Heading() string {
	switch k {
	case KindApproval:
		return "Approval"
	case KindApprovalForAll:
		return "ApprovalForAll"
	case KindTransfer:
		return "Transfer"
	case KindProposalCreated:
		return "ProposalCreated"
	case KindProposalCanceled:
		return "ProposalCanceled"
	case KindProposalQueued:
		return "ProposalQueued"
	case KindProposalExecuted:
		return "ProposalExecuted"
	case KindVoteCast:
		return "VoteCast"
	case KindVotingDelaySet:
		return "VotingDelaySet"
	case KindVotingPeriodSet:
		return "VotingPeriodSet"
	case KindProposalThresholdSet:
		return "ProposalThresholdSet"
	case KindNewImplementation:
		return "NewImplementation"
	case KindVoteEmitted:
		return "VoteEmitted"
	case KindDelegateChanged:
		return "DelegateChanged"
	case KindDelegatedPowerChanged:
		return "DelegatedPowerChanged"
	case KindNewAdmin:
		return "NewAdmin"
	case KindNewPendingAdmin:
		return "NewPendingAdmin"
	case KindNewDelay:
		return "NewDelay"
	case KindQueueTransaction:
		return "QueueTransaction"
	case KindCancelTransaction:
		return "CancelTransaction"
	case KindExecuteTransaction:
		return "ExecuteTransaction"
	default:
		return string(k)
	}
}

// KindsFor returns the closed kind set for a standard at a given ABI version.
// Version namespaces are independently exhaustive: a kind present only in v2
// is absent from the v1 set.
func KindsFor(standard Standard, version ABIVersion) []EventKind {
	switch standard {
	case StandardERC20:
		return []EventKind{KindApproval, KindTransfer}
	case StandardERC721:
		return []EventKind{KindApproval, KindApprovalForAll, KindTransfer}
	case StandardCompoundGov:
		kinds := []EventKind{
			KindProposalCreated, KindProposalCanceled, KindProposalQueued,
			KindProposalExecuted, KindVoteCast,
		}
		if version == ABIVersionV2 {
			kinds = append(kinds,
				KindVotingDelaySet, KindVotingPeriodSet,
				KindProposalThresholdSet, KindNewImplementation,
			)
		}
		return kinds
	case StandardTimelock:
		return []EventKind{
			KindNewAdmin, KindNewPendingAdmin, KindNewDelay,
			KindQueueTransaction, KindCancelTransaction, KindExecuteTransaction,
		}
	case StandardAaveGov:
		return []EventKind{
			KindProposalCreated, KindProposalCanceled, KindProposalQueued,
			KindProposalExecuted, KindVoteEmitted, KindDelegateChanged,
			KindDelegatedPowerChanged,
		}
	default:
		return nil
	}
}

// Standards lists every supported standard.
func Standards() []Standard {
	return []Standard{
		StandardERC20, StandardERC721, StandardCompoundGov,
		StandardTimelock, StandardAaveGov,
	}
}

// VersionsFor returns the ABI versions registered for a standard.
func VersionsFor(standard Standard) []ABIVersion {
	if standard == StandardCompoundGov {
		return []ABIVersion{ABIVersionV1, ABIVersionV2}
	}
	return []ABIVersion{ABIVersionV1}
}

// RawEvent is one on-chain log entry as delivered by an upstream chain
// listener. It is emitted exactly once per on-chain event but may be
// delivered any number of times; consumers must treat it as read-only.
type RawEvent struct {
	Network         string            `json:"network"`
	ChainID         uint64            `json:"chain_id"`
	ContractAddress string            `json:"contract_address"`
	BlockNumber     uint64            `json:"block_number"`
	TxHash          string            `json:"tx_hash"`
	LogIndex        uint32            `json:"log_index"`
	Standard        Standard          `json:"standard"`
	ABIVersion      ABIVersion        `json:"abi_version"`
	EventName       string            `json:"event_name"`
	RawArgs         map[string]string `json:"raw_args"`
}

// DedupKey identifies a single on-chain emission. At most one canonical event
// is ever stored per key, regardless of delivery count.
type DedupKey struct {
	Network         string
	ContractAddress string
	TxHash          string
	LogIndex        uint32
}

func (k DedupKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%d", k.Network, k.ContractAddress, k.TxHash, k.LogIndex)
}

// CanonicalEvent is the network-independent, typed representation of a
// classified raw event. TypedData holds the kind-specific payload struct from
// this package; it is never mutated after creation.
type CanonicalEvent struct {
	Kind            EventKind `json:"kind"`
	Standard        Standard  `json:"standard"`
	Network         string    `json:"network"`
	ChainID         uint64    `json:"chain_id"`
	ContractAddress string    `json:"contract_address"`
	BlockNumber     uint64    `json:"block_number"`
	TxHash          string    `json:"tx_hash"`
	LogIndex        uint32    `json:"log_index"`
	TypedData       any       `json:"typed_data"`
}

// DedupKey returns the uniqueness key for this event's emission.
func (e *CanonicalEvent) DedupKey() DedupKey {
	return DedupKey{
		Network:         e.Network,
		ContractAddress: e.ContractAddress,
		TxHash:          e.TxHash,
		LogIndex:        e.LogIndex,
	}
}

// Label is the human-readable annotation attached to a canonical event.
// Heading is short and machine-groupable; Label is a display sentence.
type Label struct {
	Heading string `json:"heading"`
	Label   string `json:"label"`
}

// LabeledEvent is a canonical event plus its display annotation. This is the
// shape handlers receive.
type LabeledEvent struct {
	Event   *CanonicalEvent `json:"event"`
	Heading string          `json:"heading"`
	Label   string          `json:"label"`
}
