// Package registry maps raw on-chain event names to canonical event kinds and
// decodes raw log arguments into typed payloads. All lookups are pure
// functions over static tables built once at startup.
package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// rawNames maps a canonical kind to the event name emitted on chain. The
// inverse of this table, scoped per standard and ABI version, is what
// classification consults.
var rawNames = map[events.EventKind]string{
	events.KindApproval:              "Approval",
	events.KindApprovalForAll:        "ApprovalForAll",
	events.KindTransfer:              "Transfer",
	events.KindProposalCreated:       "ProposalCreated",
	events.KindProposalCanceled:      "ProposalCanceled",
	events.KindProposalQueued:        "ProposalQueued",
	events.KindProposalExecuted:      "ProposalExecuted",
	events.KindVoteCast:              "VoteCast",
	events.KindVotingDelaySet:        "VotingDelaySet",
	events.KindVotingPeriodSet:       "VotingPeriodSet",
	events.KindProposalThresholdSet:  "ProposalThresholdSet",
	events.KindNewImplementation:     "NewImplementation",
	events.KindVoteEmitted:           "VoteEmitted",
	events.KindDelegateChanged:       "DelegateChanged",
	events.KindDelegatedPowerChanged: "DelegatedPowerChanged",
	events.KindNewAdmin:              "NewAdmin",
	events.KindNewPendingAdmin:       "NewPendingAdmin",
	events.KindNewDelay:              "NewDelay",
	events.KindQueueTransaction:      "QueueTransaction",
	events.KindCancelTransaction:     "CancelTransaction",
	events.KindExecuteTransaction:    "ExecuteTransaction",
}

type versionTable map[events.ABIVersion]map[string]events.EventKind

// Registry resolves (standard, version, event name) to a canonical kind and
// parses raw arguments into typed payloads. Immutable after construction.
type Registry struct {
	tables map[events.Standard]versionTable
}

// New builds the registry from the closed kind sets. It panics if a kind has
// no raw-name or payload mapping, so an incomplete table is caught at boot
// rather than at classification time.
func New() *Registry {
	r := &Registry{tables: make(map[events.Standard]versionTable)}

	for _, standard := range events.Standards() {
		vt := make(versionTable)
		for _, version := range events.VersionsFor(standard) {
			names := make(map[string]events.EventKind)
			for _, kind := range events.KindsFor(standard, version) {
				name, ok := rawNames[kind]
				if !ok {
					panic(fmt.Sprintf("registry: no raw event name for kind %q", kind))
				}
				if err := checkParseable(standard, kind); err != nil {
					panic(fmt.Sprintf("registry: %v", err))
				}
				names[name] = kind
			}
			vt[version] = names
		}
		r.tables[standard] = vt
	}

	return r
}

// Classify resolves a raw event name under a standard and ABI version.
// Unrecognized combinations return false; classification failure is an
// expected outcome, not an error.
func (r *Registry) Classify(standard events.Standard, version events.ABIVersion, eventName string) (events.EventKind, bool) {
	vt, ok := r.tables[standard]
	if !ok {
		return "", false
	}
	names, ok := vt[version]
	if !ok {
		return "", false
	}
	kind, ok := names[eventName]
	return kind, ok
}

// Parse derives the canonical event for a raw event. The returned bool
// reports whether the event name classified: (nil, false, nil) means the
// event is unknown and should be dropped after logging. A non-nil error means
// the name classified but the arguments are malformed; redelivery cannot fix
// that, so callers treat it as terminal too.
func (r *Registry) Parse(raw events.RawEvent) (*events.CanonicalEvent, bool, error) {
	kind, ok := r.Classify(raw.Standard, raw.ABIVersion, raw.EventName)
	if !ok {
		return nil, false, nil
	}

	if !common.IsHexAddress(raw.ContractAddress) {
		return nil, true, fmt.Errorf("invalid contract address %q", raw.ContractAddress)
	}

	payload, err := parsePayload(raw.Standard, raw.ABIVersion, kind, raw.RawArgs)
	if err != nil {
		return nil, true, fmt.Errorf("parse %s/%s args: %w", raw.Standard, kind, err)
	}

	return &events.CanonicalEvent{
		Kind:            kind,
		Standard:        raw.Standard,
		Network:         raw.Network,
		ChainID:         raw.ChainID,
		ContractAddress: common.HexToAddress(raw.ContractAddress).Hex(),
		BlockNumber:     raw.BlockNumber,
		TxHash:          raw.TxHash,
		LogIndex:        raw.LogIndex,
		TypedData:       payload,
	}, true, nil
}
