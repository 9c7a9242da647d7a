package vault

import (
	"fmt"
	"strconv"

	"stakevault/core/types"
)

func (x *execution) delegate(msg *DelegateMsg) error {
	if x.liquidating() {
		return ErrLiquidationInProgress
	}
	if err := x.gw.checkBondDenom(msg.Amount); err != nil {
		return err
	}
	if err := x.gw.verifyValidatorIsActive(msg.Validator); err != nil {
		return err
	}
	available := x.gw.balance(msg.Amount.Denom)
	if available.Lt(msg.Amount.Amount) {
		return &InsufficientBalanceError{
			Required:  msg.Amount.Clone(),
			Available: types.Coin{Denom: msg.Amount.Denom, Amount: available},
		}
	}
	x.resp.addMessages(x.gw.delegate(msg.Validator, msg.Amount))
	x.emit(types.NewEvent(EventTypeDelegated).
		With("validator", msg.Validator).
		With("amount", msg.Amount.String()))
	return nil
}

func (x *execution) redelegate(msg *RedelegateMsg) error {
	if x.liquidating() {
		return ErrLiquidationInProgress
	}
	if err := x.gw.checkBondDenom(msg.Amount); err != nil {
		return err
	}
	if err := x.gw.verifyValidatorIsActive(msg.DstValidator); err != nil {
		return err
	}
	bonded := x.gw.delegatedTo(msg.SrcValidator)
	if bonded.Lt(msg.Amount.Amount) {
		return &MaxUndelegateAmountExceededError{Requested: msg.Amount.AmountOrZero(), Max: bonded}
	}
	x.resp.addMessages(x.gw.redelegate(msg.SrcValidator, msg.DstValidator, msg.Amount))
	x.emit(types.NewEvent(EventTypeRedelegated).
		With("srcValidator", msg.SrcValidator).
		With("dstValidator", msg.DstValidator).
		With("amount", msg.Amount.String()))
	return nil
}

func (x *execution) undelegate(msg *UndelegateMsg) error {
	if err := x.gw.checkBondDenom(msg.Amount); err != nil {
		return err
	}
	bonded := x.gw.delegatedTo(msg.Validator)
	if bonded.Lt(msg.Amount.Amount) {
		return &MaxUndelegateAmountExceededError{Requested: msg.Amount.AmountOrZero(), Max: bonded}
	}
	x.resp.addMessages(x.gw.undelegate(msg.Validator, msg.Amount))
	x.emit(types.NewEvent(EventTypeUndelegated).
		With("validator", msg.Validator).
		With("amount", msg.Amount.String()))
	return nil
}

func (x *execution) vote(msg *VoteMsg) error {
	if msg.ProposalID == 0 || !msg.Vote.Valid() {
		return fmt.Errorf("%w: vote %q on proposal %d", ErrInvalidMessage, msg.Vote, msg.ProposalID)
	}
	x.resp.addMessages(types.Msg{Vote: &types.Vote{ProposalID: msg.ProposalID, Option: msg.Vote}})
	x.emit(types.NewEvent(EventTypeVoted).
		With("voter", x.info.Sender).
		With("proposalId", strconv.FormatUint(msg.ProposalID, 10)).
		With("option", string(msg.Vote)))
	return nil
}
