package labeler

import (
	"fmt"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// CompoundGovLabeler annotates governor events for both ABI versions. The
// kind already encodes everything the label needs; version drift is resolved
// upstream by the parser.
//
// Label rules, one per kind:
//   - ProposalCreated/Canceled/Queued/Executed: proposal lifecycle sentence
//     naming the proposal id and, where present, proposer or eta.
//   - VoteCast: direction derived from the support enum (0 against, 1 for,
//     2 abstain); zero votes still labels as a cast vote.
//   - VotingDelaySet/VotingPeriodSet/ProposalThresholdSet/NewImplementation:
//     old value to new value parameter change.
type CompoundGovLabeler struct{}

func (CompoundGovLabeler) Standard() events.Standard { return events.StandardCompoundGov }

func (CompoundGovLabeler) Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error) {
	switch ev.Kind {
	case events.KindProposalCreated:
		p, ok := ev.TypedData.(*events.ProposalCreatedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s created by %s on chain %d, voting from block %s to %s",
			p.ProposalID, short(p.Proposer), chainID, p.StartBlock, p.EndBlock), nil

	case events.KindProposalCanceled:
		p, ok := ev.TypedData.(*events.ProposalCanceledPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s was canceled", p.ProposalID), nil

	case events.KindProposalQueued:
		p, ok := ev.TypedData.(*events.ProposalQueuedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s was queued for execution at eta %s", p.ProposalID, p.Eta), nil

	case events.KindProposalExecuted:
		p, ok := ev.TypedData.(*events.ProposalExecutedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s was executed", p.ProposalID), nil

	case events.KindVoteCast:
		p, ok := ev.TypedData.(*events.VoteCastPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "%s voted %s proposal %s with %s votes",
			short(p.Voter), supportWord(p.Support), p.ProposalID, p.Votes), nil

	case events.KindVotingDelaySet:
		return paramLabel(ev, "voting delay")
	case events.KindVotingPeriodSet:
		return paramLabel(ev, "voting period")
	case events.KindProposalThresholdSet:
		return paramLabel(ev, "proposal threshold")

	case events.KindNewImplementation:
		p, ok := ev.TypedData.(*events.GovParamChangedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "governor implementation changed from %s to %s",
			short(p.OldValue), short(p.NewValue)), nil
	}
	return events.Label{}, fmt.Errorf("compound-gov labeler: unexpected kind %q", ev.Kind)
}

func supportWord(support uint8) string {
	switch support {
	case 0:
		return "against"
	case 1:
		return "for"
	case 2:
		return "abstain on"
	default:
		return fmt.Sprintf("with support %d on", support)
	}
}

func paramLabel(ev *events.CanonicalEvent, name string) (events.Label, error) {
	p, ok := ev.TypedData.(*events.GovParamChangedPayload)
	if !ok {
		return fallback(ev), nil
	}
	return label(ev.Kind, "%s changed from %s to %s", name, p.OldValue, p.NewValue), nil
}

// TimelockLabeler annotates timelock administration and queued-transaction
// events. One rule per kind; transaction kinds share the queued/canceled/
// executed sentence with the action verb swapped.
type TimelockLabeler struct{}

func (TimelockLabeler) Standard() events.Standard { return events.StandardTimelock }

func (TimelockLabeler) Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error) {
	switch ev.Kind {
	case events.KindNewAdmin:
		p, ok := ev.TypedData.(*events.TimelockAdminPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "%s became the timelock admin", short(p.Admin)), nil

	case events.KindNewPendingAdmin:
		p, ok := ev.TypedData.(*events.TimelockAdminPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "%s was nominated as pending timelock admin", short(p.Admin)), nil

	case events.KindNewDelay:
		p, ok := ev.TypedData.(*events.TimelockDelayPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "timelock delay set to %s seconds", p.Delay), nil

	case events.KindQueueTransaction:
		return txLabel(ev, "queued")
	case events.KindCancelTransaction:
		return txLabel(ev, "canceled")
	case events.KindExecuteTransaction:
		return txLabel(ev, "executed")
	}
	return events.Label{}, fmt.Errorf("timelock labeler: unexpected kind %q", ev.Kind)
}

func txLabel(ev *events.CanonicalEvent, action string) (events.Label, error) {
	p, ok := ev.TypedData.(*events.TimelockTransactionPayload)
	if !ok {
		return fallback(ev), nil
	}
	return label(ev.Kind, "transaction targeting %s was %s with eta %s", short(p.Target), action, p.Eta), nil
}

// AaveGovLabeler annotates Aave governance events.
//
// Label rules, one per kind:
//   - ProposalCreated/Canceled/Queued/Executed: lifecycle sentence; created
//     names the creator and executor.
//   - VoteEmitted: boolean support maps to for/against; zero voting power
//     still labels as an emitted vote.
//   - DelegateChanged: delegation of voting (type 0) or proposition (type 1)
//     power from delegator to delegatee; zero-address delegatee labels as a
//     delegation reset.
//   - DelegatedPowerChanged: a user's delegated power balance update.
type AaveGovLabeler struct{}

func (AaveGovLabeler) Standard() events.Standard { return events.StandardAaveGov }

func (AaveGovLabeler) Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error) {
	switch ev.Kind {
	case events.KindProposalCreated:
		p, ok := ev.TypedData.(*events.ProposalCreatedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s created by %s with executor %s, voting from block %s to %s",
			p.ProposalID, short(p.Proposer), short(p.Executor), p.StartBlock, p.EndBlock), nil

	case events.KindProposalCanceled:
		p, ok := ev.TypedData.(*events.ProposalCanceledPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s was canceled", p.ProposalID), nil

	case events.KindProposalQueued:
		p, ok := ev.TypedData.(*events.ProposalQueuedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s was queued for execution at %s", p.ProposalID, p.Eta), nil

	case events.KindProposalExecuted:
		p, ok := ev.TypedData.(*events.ProposalExecutedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "proposal %s was executed", p.ProposalID), nil

	case events.KindVoteEmitted:
		p, ok := ev.TypedData.(*events.VoteEmittedPayload)
		if !ok {
			return fallback(ev), nil
		}
		direction := "against"
		if p.Support {
			direction = "for"
		}
		return label(ev.Kind, "%s voted %s proposal %s with %s voting power",
			short(p.Voter), direction, p.ProposalID, p.VotingPower), nil

	case events.KindDelegateChanged:
		p, ok := ev.TypedData.(*events.DelegateChangedPayload)
		if !ok {
			return fallback(ev), nil
		}
		power := delegationWord(p.DelegationType)
		if isZero(p.Delegatee) {
			return label(ev.Kind, "%s reset their %s delegation", short(p.Delegator), power), nil
		}
		return label(ev.Kind, "%s delegated %s power to %s", short(p.Delegator), power, short(p.Delegatee)), nil

	case events.KindDelegatedPowerChanged:
		p, ok := ev.TypedData.(*events.DelegatedPowerChangedPayload)
		if !ok {
			return fallback(ev), nil
		}
		return label(ev.Kind, "%s's delegated %s power changed to %s",
			short(p.User), delegationWord(p.DelegationType), p.Amount), nil
	}
	return events.Label{}, fmt.Errorf("aave-gov labeler: unexpected kind %q", ev.Kind)
}

func delegationWord(delegationType uint8) string {
	if delegationType == 1 {
		return "proposition"
	}
	return "voting"
}
