package vault

import (
	"github.com/holiman/uint256"
)

// liquidating reports whether an expired loan is being liquidated. Free
// balance and stake are reserved for the lender until it completes.
func (x *execution) liquidating() bool {
	if !x.option.IsActive() {
		return false
	}
	loan := x.option.State.FixedTermLoan
	return loan != nil && loan.ProcessingLiquidation
}

// liquidateCollateral drives the default path of an expired loan. It can be
// invoked repeatedly: each call undelegates whatever collateral has not been
// undelegated yet, withdraws pending rewards, and pays the lender out of the
// free balance until the debt is recovered or the collateral is exhausted.
func (x *execution) liquidateCollateral() error {
	loan, err := x.activeLoan()
	if err != nil {
		return err
	}
	if x.now < loan.EndTime {
		return ErrLoanNotExpired
	}

	started := !loan.ProcessingLiquidation
	loan.ProcessingLiquidation = true
	now := x.now
	loan.LastLiquidationDate = &now
	if loan.LiquidatedCollateral == nil {
		loan.LiquidatedCollateral = new(uint256.Int)
	}
	if started {
		x.emit(newLiquidationEvent(EventTypeLiquidationStarted, loan).With("lender", x.option.Lender))
	}

	claimMsgs, claimed := x.gw.claimAllRewards()
	x.resp.addMessages(claimMsgs...)

	remaining := saturatingSub(amountOrZero(loan.CollateralAmount), loan.LiquidatedCollateral)
	undelegateMsgs, undelegated := x.gw.undelegateUpTo(remaining)
	x.resp.addMessages(undelegateMsgs...)
	loan.LiquidatedCollateral = new(uint256.Int).Add(loan.LiquidatedCollateral, undelegated)

	available := new(uint256.Int).Add(x.gw.balance(x.gw.bondDenom()), claimed)
	return x.settleLiquidation(loan, available, undelegated)
}

// settleLiquidation pays the lender from available and closes the option once
// the debt is recovered or nothing more can be recovered.
func (x *execution) settleLiquidation(loan *FixedTermLoanState, available, undelegatedNow *uint256.Int) error {
	recovered := amountOrZero(loan.AlreadyClaimed)
	pay := minAmount(loan.Outstanding(), available)
	if !pay.IsZero() {
		recovered.Add(recovered, pay)
		x.payLender(pay, recovered)
	}
	loan.AlreadyClaimed = recovered

	if loan.Outstanding().IsZero() {
		return x.completeLiquidation(loan, "recovered")
	}
	leftover := new(uint256.Int).Sub(available, pay)
	if x.collateralExhausted(loan, leftover, undelegatedNow) {
		return x.completeLiquidation(loan, "shortfall")
	}
	x.emit(newLiquidationEvent(EventTypeLiquidationProgressed, loan).With("paid", pay.Dec()))
	return x.saveOption()
}

// collateralExhausted reports that no further proceeds can reach the vault:
// nothing is unbonding, nothing is left to undelegate and the free balance is
// spent.
func (x *execution) collateralExhausted(loan *FixedTermLoanState, leftover, undelegatedNow *uint256.Int) bool {
	if !leftover.IsZero() || !undelegatedNow.IsZero() || !x.gw.unbonding().IsZero() {
		return false
	}
	if !amountOrZero(loan.LiquidatedCollateral).Lt(amountOrZero(loan.CollateralAmount)) {
		return true
	}
	return x.gw.totalDelegated().IsZero()
}

func (x *execution) completeLiquidation(loan *FixedTermLoanState, outcome string) error {
	evt := newLiquidationEvent(EventTypeLiquidationCompleted, loan).
		With("lender", x.option.Lender).
		With("outcome", outcome)
	if shortfall := loan.Outstanding(); !shortfall.IsZero() {
		evt.With("shortfall", shortfall.Dec())
	}
	if err := x.clearOption(); err != nil {
		return err
	}
	x.emit(evt)
	return nil
}
