package vault

import (
	"strconv"

	"github.com/holiman/uint256"

	"stakevault/core/types"
)

// claimDelegatorRewards withdraws every pending reward into the vault and then
// splits the proceeds according to the running liquidity request.
func (x *execution) claimDelegatorRewards() error {
	msgs, claimed := x.gw.claimAllRewards()
	x.resp.addMessages(msgs...)
	x.emit(types.NewEvent(EventTypeRewardsClaimed).
		With("amount", types.Coin{Denom: x.gw.bondDenom(), Amount: claimed}.String()).
		With("validators", strconv.Itoa(len(msgs))))

	if !x.option.IsActive() {
		return nil
	}
	available := new(uint256.Int).Add(x.gw.balance(x.gw.bondDenom()), claimed)
	state := x.option.State
	switch state.Kind() {
	case KindFixedTermRental:
		return x.accrueFixedTermRental(state.FixedTermRental, available)
	case KindFixedInterestRental:
		return x.accrueFixedInterestRental(state.FixedInterestRental, available)
	case KindFixedTermLoan:
		if !state.FixedTermLoan.ProcessingLiquidation {
			return nil
		}
		return x.settleLiquidation(state.FixedTermLoan, available, new(uint256.Int))
	default:
		return nil
	}
}

// payLender transfers amount of the staking denom to the lender.
func (x *execution) payLender(amount, alreadyClaimed *uint256.Int) {
	coin := types.Coin{Denom: x.gw.bondDenom(), Amount: new(uint256.Int).Set(amount)}
	x.resp.addMessages(types.NewBankSend(x.option.Lender, coin))
	x.emit(newLenderPaidEvent(x.option.Lender, coin, alreadyClaimed))
}

// rentalEntitlement is the cumulative amount accrued to the lender by
// settledAt, floored.
func rentalEntitlement(st *FixedTermRentalState, settledAt int64) *uint256.Int {
	requested := st.RequestedAmount.AmountOrZero()
	duration := st.EndTime - st.StartTime
	elapsed := settledAt - st.StartTime
	if duration <= 0 || elapsed >= duration {
		return requested
	}
	if elapsed <= 0 {
		return new(uint256.Int)
	}
	entitled, overflow := new(uint256.Int).MulDivOverflow(requested, uint256.NewInt(uint64(elapsed)), uint256.NewInt(uint64(duration)))
	if overflow {
		return requested
	}
	return entitled
}

func (x *execution) accrueFixedTermRental(st *FixedTermRentalState, available *uint256.Int) error {
	settledAt := x.now
	if settledAt > st.EndTime {
		settledAt = st.EndTime
	}
	entitled := rentalEntitlement(st, settledAt)
	claimed := amountOrZero(st.AlreadyClaimed)
	pay := minAmount(saturatingSub(entitled, claimed), available)
	if !pay.IsZero() {
		claimed.Add(claimed, pay)
		x.payLender(pay, claimed)
	}
	st.AlreadyClaimed = claimed

	if claimed.Eq(entitled) {
		st.LastClaimTime = settledAt
	} else {
		// Only part of the accrued amount was available: advance the claim
		// cursor to the instant the payout covers.
		requested := st.RequestedAmount.AmountOrZero()
		covered, overflow := new(uint256.Int).MulDivOverflow(claimed, uint256.NewInt(uint64(st.EndTime-st.StartTime)), requested)
		if !overflow && covered.IsUint64() {
			st.LastClaimTime = st.StartTime + int64(covered.Uint64())
		}
	}

	if x.now >= st.EndTime && claimed.Eq(st.RequestedAmount.AmountOrZero()) {
		closed := x.option
		if err := x.clearOption(); err != nil {
			return err
		}
		x.emit(newOptionEvent(EventTypeRequestClosed, closed).With("reason", "rental_complete"))
		return nil
	}
	return x.saveOption()
}

func (x *execution) accrueFixedInterestRental(st *FixedInterestRentalState, available *uint256.Int) error {
	claimable := amountOrZero(st.ClaimableTokens)
	claimed := amountOrZero(st.AlreadyClaimed)
	pay := minAmount(saturatingSub(claimable, claimed), available)
	if !pay.IsZero() {
		claimed.Add(claimed, pay)
		x.payLender(pay, claimed)
	}
	st.AlreadyClaimed = claimed
	if claimed.Eq(claimable) {
		closed := x.option
		if err := x.clearOption(); err != nil {
			return err
		}
		x.emit(newOptionEvent(EventTypeRequestClosed, closed).With("reason", "interest_complete"))
		return nil
	}
	return x.saveOption()
}
