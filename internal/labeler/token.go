package labeler

import (
	"fmt"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// ERC20Labeler annotates fungible-token events.
//
// Label rules, one per kind:
//   - Approval: zero-address spender or zero amount is a revocation;
//     otherwise an allowance grant naming owner, spender, and amount.
//   - Transfer: zero-address sender is a mint, zero-address recipient a burn,
//     zero amount a zero-value transfer; otherwise a plain transfer.
type ERC20Labeler struct{}

func (ERC20Labeler) Standard() events.Standard { return events.StandardERC20 }

func (ERC20Labeler) Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error) {
	switch ev.Kind {
	case events.KindApproval:
		p, ok := ev.TypedData.(*events.ERC20ApprovalPayload)
		if !ok {
			return fallback(ev), nil
		}
		switch {
		case isZero(p.Spender):
			return label(ev.Kind, "%s revoked an approval (zero-address spender)", short(p.Owner)), nil
		case p.Amount == "0":
			return label(ev.Kind, "%s revoked %s's allowance", short(p.Owner), short(p.Spender)), nil
		default:
			return label(ev.Kind, "%s approved %s to spend %s tokens", short(p.Owner), short(p.Spender), p.Amount), nil
		}

	case events.KindTransfer:
		p, ok := ev.TypedData.(*events.ERC20TransferPayload)
		if !ok {
			return fallback(ev), nil
		}
		switch {
		case isZero(p.From):
			return label(ev.Kind, "%s tokens minted to %s", p.Amount, short(p.To)), nil
		case isZero(p.To):
			return label(ev.Kind, "%s burned %s tokens", short(p.From), p.Amount), nil
		case p.Amount == "0":
			return label(ev.Kind, "zero-value transfer from %s to %s", short(p.From), short(p.To)), nil
		default:
			return label(ev.Kind, "%s transferred %s tokens to %s", short(p.From), p.Amount, short(p.To)), nil
		}
	}
	return events.Label{}, fmt.Errorf("erc20 labeler: unexpected kind %q", ev.Kind)
}

// ERC721Labeler annotates non-fungible-token events.
//
// Label rules, one per kind:
//   - Approval: zero-address approved operator is a revocation of the
//     token's approval; otherwise a per-token approval grant.
//   - ApprovalForAll: approved=false is an operator revocation; approved=true
//     an operator grant over all of the owner's tokens.
//   - Transfer: zero-address sender is a mint, zero-address recipient a burn;
//     otherwise a token transfer. An absent token id labels as token 0.
type ERC721Labeler struct{}

func (ERC721Labeler) Standard() events.Standard { return events.StandardERC721 }

func (ERC721Labeler) Label(chainID uint64, ev *events.CanonicalEvent) (events.Label, error) {
	switch ev.Kind {
	case events.KindApproval:
		p, ok := ev.TypedData.(*events.ERC721ApprovalPayload)
		if !ok {
			return fallback(ev), nil
		}
		if isZero(p.Approved) {
			return label(ev.Kind, "%s revoked the approval for token %s", short(p.Owner), p.TokenID), nil
		}
		return label(ev.Kind, "%s approved %s to manage token %s", short(p.Owner), short(p.Approved), p.TokenID), nil

	case events.KindApprovalForAll:
		p, ok := ev.TypedData.(*events.ERC721ApprovalForAllPayload)
		if !ok {
			return fallback(ev), nil
		}
		if !p.Approved {
			return label(ev.Kind, "%s revoked %s as an operator for all tokens", short(p.Owner), short(p.Operator)), nil
		}
		return label(ev.Kind, "%s approved %s as an operator for all tokens", short(p.Owner), short(p.Operator)), nil

	case events.KindTransfer:
		p, ok := ev.TypedData.(*events.ERC721TransferPayload)
		if !ok {
			return fallback(ev), nil
		}
		switch {
		case isZero(p.From):
			return label(ev.Kind, "token %s minted to %s", p.TokenID, short(p.To)), nil
		case isZero(p.To):
			return label(ev.Kind, "%s burned token %s", short(p.From), p.TokenID), nil
		default:
			return label(ev.Kind, "%s transferred token %s to %s", short(p.From), p.TokenID, short(p.To)), nil
		}
	}
	return events.Label{}, fmt.Errorf("erc721 labeler: unexpected kind %q", ev.Kind)
}
