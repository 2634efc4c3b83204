package registry

import (
	"fmt"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// parsePayload decodes raw arguments into the typed payload for a classified
// kind. It is total over every (standard, version, kind) triple the registry
// tables produce; checkParseable enforces that at construction.
func parsePayload(standard events.Standard, version events.ABIVersion, kind events.EventKind, args map[string]string) (any, error) {
	switch standard {
	case events.StandardERC20:
		return parseERC20(kind, args)
	case events.StandardERC721:
		return parseERC721(kind, args)
	case events.StandardCompoundGov:
		return parseCompoundGov(version, kind, args)
	case events.StandardTimelock:
		return parseTimelock(kind, args)
	case events.StandardAaveGov:
		return parseAaveGov(kind, args)
	}
	return nil, fmt.Errorf("no parser for standard %q", standard)
}

// checkParseable verifies a (standard, kind) pair has both a parser arm and
// a typed payload shape.
func checkParseable(standard events.Standard, kind events.EventKind) error {
	switch standard {
	case events.StandardERC20, events.StandardERC721, events.StandardCompoundGov,
		events.StandardTimelock, events.StandardAaveGov:
	default:
		return fmt.Errorf("no parser for standard %q", standard)
	}
	if !events.HasPayload(standard, kind) {
		return fmt.Errorf("no payload type for %s/%s", standard, kind)
	}
	return nil
}

func parseERC20(kind events.EventKind, args map[string]string) (any, error) {
	switch kind {
	case events.KindApproval:
		owner, err := addrArg(args, "owner")
		if err != nil {
			return nil, err
		}
		spender, err := addrArg(args, "spender")
		if err != nil {
			return nil, err
		}
		amount, err := numArg(args, "value", "amount")
		if err != nil {
			return nil, err
		}
		return &events.ERC20ApprovalPayload{Owner: owner, Spender: spender, Amount: amount}, nil

	case events.KindTransfer:
		from, err := addrArg(args, "from")
		if err != nil {
			return nil, err
		}
		to, err := addrArg(args, "to")
		if err != nil {
			return nil, err
		}
		amount, err := numArg(args, "value", "amount")
		if err != nil {
			return nil, err
		}
		return &events.ERC20TransferPayload{From: from, To: to, Amount: amount}, nil
	}
	return nil, fmt.Errorf("unexpected erc20 kind %q", kind)
}

func parseERC721(kind events.EventKind, args map[string]string) (any, error) {
	switch kind {
	case events.KindApproval:
		owner, err := addrArg(args, "owner")
		if err != nil {
			return nil, err
		}
		approved, err := addrArg(args, "approved")
		if err != nil {
			return nil, err
		}
		tokenID, err := numArg(args, "tokenId")
		if err != nil {
			return nil, err
		}
		return &events.ERC721ApprovalPayload{Owner: owner, Approved: approved, TokenID: tokenID}, nil

	case events.KindApprovalForAll:
		owner, err := addrArg(args, "owner")
		if err != nil {
			return nil, err
		}
		operator, err := addrArg(args, "operator")
		if err != nil {
			return nil, err
		}
		approved, err := boolArg(args, "approved")
		if err != nil {
			return nil, err
		}
		return &events.ERC721ApprovalForAllPayload{Owner: owner, Operator: operator, Approved: approved}, nil

	case events.KindTransfer:
		from, err := addrArg(args, "from")
		if err != nil {
			return nil, err
		}
		to, err := addrArg(args, "to")
		if err != nil {
			return nil, err
		}
		tokenID, err := numArg(args, "tokenId")
		if err != nil {
			return nil, err
		}
		return &events.ERC721TransferPayload{From: from, To: to, TokenID: tokenID}, nil
	}
	return nil, fmt.Errorf("unexpected erc721 kind %q", kind)
}

func parseCompoundGov(version events.ABIVersion, kind events.EventKind, args map[string]string) (any, error) {
	switch kind {
	case events.KindProposalCreated:
		proposer, err := addrArg(args, "proposer")
		if err != nil {
			return nil, err
		}
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		startBlock, err := numArg(args, "startBlock")
		if err != nil {
			return nil, err
		}
		endBlock, err := numArg(args, "endBlock")
		if err != nil {
			return nil, err
		}
		return &events.ProposalCreatedPayload{
			ProposalID:  id,
			Proposer:    proposer,
			StartBlock:  startBlock,
			EndBlock:    endBlock,
			Description: strArg(args, "description"),
		}, nil

	case events.KindProposalCanceled:
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		return &events.ProposalCanceledPayload{ProposalID: id}, nil

	case events.KindProposalQueued:
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		eta, err := numArg(args, "eta")
		if err != nil {
			return nil, err
		}
		return &events.ProposalQueuedPayload{ProposalID: id, Eta: eta}, nil

	case events.KindProposalExecuted:
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		return &events.ProposalExecutedPayload{ProposalID: id}, nil

	case events.KindVoteCast:
		return parseVoteCast(version, args)

	case events.KindVotingDelaySet:
		return parseGovParam(args, "oldVotingDelay", "newVotingDelay")
	case events.KindVotingPeriodSet:
		return parseGovParam(args, "oldVotingPeriod", "newVotingPeriod")
	case events.KindProposalThresholdSet:
		return parseGovParam(args, "oldProposalThreshold", "newProposalThreshold")

	case events.KindNewImplementation:
		oldImpl, err := addrArg(args, "oldImplementation")
		if err != nil {
			return nil, err
		}
		newImpl, err := addrArg(args, "newImplementation")
		if err != nil {
			return nil, err
		}
		return &events.GovParamChangedPayload{OldValue: oldImpl, NewValue: newImpl}, nil
	}
	return nil, fmt.Errorf("unexpected compound-gov kind %q", kind)
}

// parseVoteCast handles the argument drift between governor versions: v1
// emits a boolean support flag and no reason, v2 a uint8 support enum plus a
// free-form reason string.
func parseVoteCast(version events.ABIVersion, args map[string]string) (any, error) {
	voter, err := addrArg(args, "voter")
	if err != nil {
		return nil, err
	}
	id, err := numArg(args, "proposalId", "id")
	if err != nil {
		return nil, err
	}
	votes, err := numArg(args, "votes")
	if err != nil {
		return nil, err
	}

	payload := &events.VoteCastPayload{Voter: voter, ProposalID: id, Votes: votes}

	if version == events.ABIVersionV1 {
		support, err := boolArg(args, "support")
		if err != nil {
			return nil, err
		}
		if support {
			payload.Support = 1
		}
		return payload, nil
	}

	support, err := uint8Arg(args, "support")
	if err != nil {
		return nil, err
	}
	payload.Support = support
	payload.Reason = strArg(args, "reason")
	return payload, nil
}

func parseGovParam(args map[string]string, oldKey, newKey string) (any, error) {
	oldValue, err := numArg(args, oldKey)
	if err != nil {
		return nil, err
	}
	newValue, err := numArg(args, newKey)
	if err != nil {
		return nil, err
	}
	return &events.GovParamChangedPayload{OldValue: oldValue, NewValue: newValue}, nil
}

func parseTimelock(kind events.EventKind, args map[string]string) (any, error) {
	switch kind {
	case events.KindNewAdmin:
		admin, err := addrArg(args, "newAdmin")
		if err != nil {
			return nil, err
		}
		return &events.TimelockAdminPayload{Admin: admin}, nil

	case events.KindNewPendingAdmin:
		admin, err := addrArg(args, "newPendingAdmin")
		if err != nil {
			return nil, err
		}
		return &events.TimelockAdminPayload{Admin: admin}, nil

	case events.KindNewDelay:
		delay, err := numArg(args, "newDelay")
		if err != nil {
			return nil, err
		}
		return &events.TimelockDelayPayload{Delay: delay}, nil

	case events.KindQueueTransaction, events.KindCancelTransaction, events.KindExecuteTransaction:
		target, err := addrArg(args, "target")
		if err != nil {
			return nil, err
		}
		value, err := numArg(args, "value")
		if err != nil {
			return nil, err
		}
		eta, err := numArg(args, "eta")
		if err != nil {
			return nil, err
		}
		return &events.TimelockTransactionPayload{
			TxHash:    strArg(args, "txHash"),
			Target:    target,
			Value:     value,
			Signature: strArg(args, "signature"),
			Eta:       eta,
		}, nil
	}
	return nil, fmt.Errorf("unexpected timelock kind %q", kind)
}

func parseAaveGov(kind events.EventKind, args map[string]string) (any, error) {
	switch kind {
	case events.KindProposalCreated:
		creator, err := addrArg(args, "creator")
		if err != nil {
			return nil, err
		}
		executor, err := addrArg(args, "executor")
		if err != nil {
			return nil, err
		}
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		startBlock, err := numArg(args, "startBlock")
		if err != nil {
			return nil, err
		}
		endBlock, err := numArg(args, "endBlock")
		if err != nil {
			return nil, err
		}
		return &events.ProposalCreatedPayload{
			ProposalID: id,
			Proposer:   creator,
			StartBlock: startBlock,
			EndBlock:   endBlock,
			Executor:   executor,
			IpfsHash:   strArg(args, "ipfsHash"),
		}, nil

	case events.KindProposalCanceled:
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		return &events.ProposalCanceledPayload{ProposalID: id}, nil

	case events.KindProposalQueued:
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		eta, err := numArg(args, "executionTime", "eta")
		if err != nil {
			return nil, err
		}
		return &events.ProposalQueuedPayload{ProposalID: id, Eta: eta}, nil

	case events.KindProposalExecuted:
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		return &events.ProposalExecutedPayload{ProposalID: id}, nil

	case events.KindVoteEmitted:
		voter, err := addrArg(args, "voter")
		if err != nil {
			return nil, err
		}
		id, err := numArg(args, "id", "proposalId")
		if err != nil {
			return nil, err
		}
		support, err := boolArg(args, "support")
		if err != nil {
			return nil, err
		}
		power, err := numArg(args, "votingPower")
		if err != nil {
			return nil, err
		}
		return &events.VoteEmittedPayload{ProposalID: id, Voter: voter, Support: support, VotingPower: power}, nil

	case events.KindDelegateChanged:
		delegator, err := addrArg(args, "delegator")
		if err != nil {
			return nil, err
		}
		delegatee, err := addrArg(args, "delegatee")
		if err != nil {
			return nil, err
		}
		delegationType, err := uint8Arg(args, "delegationType")
		if err != nil {
			return nil, err
		}
		return &events.DelegateChangedPayload{Delegator: delegator, Delegatee: delegatee, DelegationType: delegationType}, nil

	case events.KindDelegatedPowerChanged:
		user, err := addrArg(args, "user")
		if err != nil {
			return nil, err
		}
		amount, err := numArg(args, "amount")
		if err != nil {
			return nil, err
		}
		delegationType, err := uint8Arg(args, "delegationType")
		if err != nil {
			return nil, err
		}
		return &events.DelegatedPowerChangedPayload{User: user, Amount: amount, DelegationType: delegationType}, nil
	}
	return nil, fmt.Errorf("unexpected aave-gov kind %q", kind)
}
