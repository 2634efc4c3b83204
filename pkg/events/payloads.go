package events

import (
	"encoding/json"
	"fmt"
)

// Typed payloads carried in CanonicalEvent.TypedData. Addresses are
// checksummed hex strings; token amounts and proposal identifiers are decimal
// strings since they routinely exceed uint64.

type ERC20ApprovalPayload struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type ERC20TransferPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type ERC721ApprovalPayload struct {
	Owner    string `json:"owner"`
	Approved string `json:"approved"`
	TokenID  string `json:"token_id"`
}

type ERC721ApprovalForAllPayload struct {
	Owner    string `json:"owner"`
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

type ERC721TransferPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID string `json:"token_id"`
}

type ProposalCreatedPayload struct {
	ProposalID  string `json:"proposal_id"`
	Proposer    string `json:"proposer"`
	StartBlock  string `json:"start_block"`
	EndBlock    string `json:"end_block"`
	Description string `json:"description,omitempty"`
	// Executor and IpfsHash are populated for aave-gov proposals only.
	Executor string `json:"executor,omitempty"`
	IpfsHash string `json:"ipfs_hash,omitempty"`
}

type ProposalCanceledPayload struct {
	ProposalID string `json:"proposal_id"`
}

type ProposalQueuedPayload struct {
	ProposalID string `json:"proposal_id"`
	Eta        string `json:"eta"`
}

type ProposalExecutedPayload struct {
	ProposalID string `json:"proposal_id"`
}

// VoteCastPayload covers compound-gov VoteCast for both ABI versions. Under
// v1 Support is 0 (against) or 1 (for) and Reason is empty; v2 adds
// 2 (abstain) and a free-form reason.
type VoteCastPayload struct {
	Voter      string `json:"voter"`
	ProposalID string `json:"proposal_id"`
	Support    uint8  `json:"support"`
	Votes      string `json:"votes"`
	Reason     string `json:"reason,omitempty"`
}

type GovParamChangedPayload struct {
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type TimelockAdminPayload struct {
	Admin string `json:"admin"`
}

type TimelockDelayPayload struct {
	Delay string `json:"delay"`
}

type TimelockTransactionPayload struct {
	TxHash    string `json:"tx_hash"`
	Target    string `json:"target"`
	Value     string `json:"value"`
	Signature string `json:"signature"`
	Eta       string `json:"eta"`
}

type VoteEmittedPayload struct {
	ProposalID  string `json:"proposal_id"`
	Voter       string `json:"voter"`
	Support     bool   `json:"support"`
	VotingPower string `json:"voting_power"`
}

type DelegateChangedPayload struct {
	Delegator      string `json:"delegator"`
	Delegatee      string `json:"delegatee"`
	DelegationType uint8  `json:"delegation_type"`
}

type DelegatedPowerChangedPayload struct {
	User           string `json:"user"`
	Amount         string `json:"amount"`
	DelegationType uint8  `json:"delegation_type"`
}

// payloadFactory returns a fresh payload struct for a (standard, kind) pair.
// Every kind returned by KindsFor has a factory entry.
func payloadFactory(standard Standard, kind EventKind) (any, bool) {
	switch standard {
	case StandardERC20:
		switch kind {
		case KindApproval:
			return &ERC20ApprovalPayload{}, true
		case KindTransfer:
			return &ERC20TransferPayload{}, true
		}
	case StandardERC721:
		switch kind {
		case KindApproval:
			return &ERC721ApprovalPayload{}, true
		case KindApprovalForAll:
			return &ERC721ApprovalForAllPayload{}, true
		case KindTransfer:
			return &ERC721TransferPayload{}, true
		}
	case StandardCompoundGov, StandardAaveGov:
		switch kind {
		case KindProposalCreated:
			return &ProposalCreatedPayload{}, true
		case KindProposalCanceled:
			return &ProposalCanceledPayload{}, true
		case KindProposalQueued:
			return &ProposalQueuedPayload{}, true
		case KindProposalExecuted:
			return &ProposalExecutedPayload{}, true
		case KindVoteCast:
			return &VoteCastPayload{}, true
		case KindVotingDelaySet, KindVotingPeriodSet, KindProposalThresholdSet, KindNewImplementation:
			return &GovParamChangedPayload{}, true
		case KindVoteEmitted:
			return &VoteEmittedPayload{}, true
		case KindDelegateChanged:
			return &DelegateChangedPayload{}, true
		case KindDelegatedPowerChanged:
			return &DelegatedPowerChangedPayload{}, true
		}
	case StandardTimelock:
		switch kind {
		case KindNewAdmin, KindNewPendingAdmin:
			return &TimelockAdminPayload{}, true
		case KindNewDelay:
			return &TimelockDelayPayload{}, true
		case KindQueueTransaction, KindCancelTransaction, KindExecuteTransaction:
			return &TimelockTransactionPayload{}, true
		}
	}
	return nil, false
}

// HasPayload reports whether a (standard, kind) pair has a typed payload
// shape. Every kind in KindsFor must; registry construction asserts it.
func HasPayload(standard Standard, kind EventKind) bool {
	_, ok := payloadFactory(standard, kind)
	return ok
}

// DecodeTypedData rebuilds the concrete payload struct for an event received
// off the wire, where typed_data arrives as raw JSON.
func DecodeTypedData(standard Standard, kind EventKind, data json.RawMessage) (any, error) {
	payload, ok := payloadFactory(standard, kind)
	if !ok {
		return nil, fmt.Errorf("no payload type for %s/%s", standard, kind)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("decode %s/%s payload: %w", standard, kind, err)
	}
	return payload, nil
}
