package vault

import (
	"fmt"

	"stakevault/core/types"
	"stakevault/crypto"
)

func (x *execution) openLiquidityRequest(msg *OpenLiquidityRequestMsg) error {
	if x.option != nil {
		return ErrLiquidityRequestIsActive
	}
	if err := msg.Option.Validate(); err != nil {
		return err
	}
	x.option = &ActiveOption{Msg: msg.Option.Clone()}
	if err := x.saveOption(); err != nil {
		return err
	}
	x.emit(newOptionEvent(EventTypeRequestOpened, x.option))
	return nil
}

func (x *execution) closeLiquidityRequest() error {
	if !x.option.IsPending() {
		return ErrNoLiquidityRequest
	}
	closed := x.option
	if err := x.clearOption(); err != nil {
		return err
	}
	x.emit(newOptionEvent(EventTypeRequestClosed, closed))
	return nil
}

func (x *execution) acceptLiquidityRequest() error {
	if !x.option.IsPending() {
		return ErrNoLiquidityRequest
	}
	if err := x.option.Msg.Validate(); err != nil {
		return err
	}
	required := x.option.Msg.RequestedAmount()
	if len(x.info.Funds) != 1 || !x.info.Funds[0].Equal(required) {
		return &InvalidInputAmountError{Required: required, Received: x.info.Funds}
	}
	x.option.Lender = x.info.Sender
	x.option.State = newState(x.option.Msg, x.now)
	if err := x.saveOption(); err != nil {
		return err
	}
	x.emit(newOptionEvent(EventTypeRequestAccepted, x.option))
	return nil
}

// activeLoan returns the running loan state or the error explaining why there
// is none.
func (x *execution) activeLoan() (*FixedTermLoanState, error) {
	if !x.option.IsActive() {
		return nil, ErrNoLiquidityRequest
	}
	loan := x.option.State.FixedTermLoan
	if loan == nil {
		return nil, ErrNotFixedTermLoan
	}
	return loan, nil
}

func (x *execution) repayLoan() error {
	loan, err := x.activeLoan()
	if err != nil {
		return err
	}
	if loan.ProcessingLiquidation {
		return ErrLiquidationInProgress
	}
	denom := loan.RequestedAmount.Denom
	debt := types.Coin{Denom: denom, Amount: loan.Debt()}
	available := x.gw.balance(denom)
	if available.Lt(debt.Amount) {
		return &InsufficientBalanceError{Required: debt, Available: types.Coin{Denom: denom, Amount: available}}
	}
	lender := x.option.Lender
	x.resp.addMessages(types.NewBankSend(lender, debt))
	repaid := x.option
	if err := x.clearOption(); err != nil {
		return err
	}
	x.emit(newOptionEvent(EventTypeLoanRepaid, repaid).With("amount", debt.String()))
	return nil
}

func (x *execution) transferOwnership(msg *TransferOwnershipMsg) error {
	if err := crypto.ValidateAddress(msg.ToAddress, crypto.AccountPrefix); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	previous := x.cfg.Owner
	x.cfg.Owner = msg.ToAddress
	if err := x.engine.state.PutVaultConfig(x.vault, x.cfg); err != nil {
		return err
	}
	x.emit(types.NewEvent(EventTypeOwnershipTransferred).
		With("previousOwner", previous).
		With("owner", msg.ToAddress))
	return nil
}
