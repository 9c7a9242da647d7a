package vault

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"stakevault/core/types"
	"stakevault/native/staking"
)

// setupDefaultedLoan delegates 1,000,000 and runs a 300,000 loan with 30,000
// interest against 600,000 collateral to expiry.
func setupDefaultedLoan(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 1_000_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 1_000_000)}})
	h.openAndAccept(loanOption(300_000, 30_000, 600_000, year))
	require.Equal(t, genesisTime, h.option().State.FixedTermLoan.StartTime)
	h.advance(int64(year))
	return h
}

func TestLiquidationEndToEnd(t *testing.T) {
	h := setupDefaultedLoan(t)
	h.addRewards(valA, 200_000)

	resp := h.mustExec(lenderAddr, nil, liquidateMsg)
	routes := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		routes = append(routes, m.Route())
	}
	require.Equal(t, []string{"withdraw_rewards", "undelegate", "bank_send"}, routes)
	require.Equal(t, uint64(600_000), resp.Messages[1].Undelegate.Amount.Amount.Uint64())
	require.Equal(t, uint64(200_000), h.balance(lenderAddr, bondDenom))
	require.Equal(t, uint64(600_000), h.ledger.UnbondingBalance(h.vault).Uint64())

	loan := h.option().State.FixedTermLoan
	require.True(t, loan.ProcessingLiquidation)
	require.NotNil(t, loan.LastLiquidationDate)
	require.Equal(t, h.now, *loan.LastLiquidationDate)
	require.Equal(t, uint64(200_000), loan.AlreadyClaimed.Uint64())
	require.Equal(t, uint64(600_000), loan.LiquidatedCollateral.Uint64())

	_, err := h.exec(ownerAddr, nil, repayMsg)
	require.ErrorIs(t, err, ErrLiquidationInProgress)
	_, err = h.exec(ownerAddr, nil, withdraw(types.NewCoin(loanDenom, 1)))
	require.ErrorIs(t, err, ErrLiquidationInProgress)

	// Nothing new is recoverable while the collateral is still unbonding.
	h.advance(60)
	h.mustExec(ownerAddr, nil, liquidateMsg)
	require.Equal(t, uint64(200_000), h.balance(lenderAddr, bondDenom))
	require.NotNil(t, h.option())

	h.advance(unbondingPeriod)
	require.Equal(t, uint64(600_000), h.balance(h.vault, bondDenom))
	h.mustExec(lenderAddr, nil, liquidateMsg)
	require.Equal(t, uint64(330_000), h.balance(lenderAddr, bondDenom), "lender recovers exactly principal plus interest")
	require.Nil(t, h.option())
	require.Equal(t, uint64(470_000), h.balance(h.vault, bondDenom))
	require.Equal(t, uint64(400_000), h.ledger.TotalDelegated(h.vault).Uint64())

	_, err = h.exec(lenderAddr, nil, liquidateMsg)
	require.ErrorIs(t, err, ErrUnauthorized, "former lender has no rights once the option closed")
	_, err = h.exec(ownerAddr, nil, liquidateMsg)
	require.ErrorIs(t, err, ErrNoLiquidityRequest)
	h.mustExec(ownerAddr, nil, withdraw(types.NewCoin(bondDenom, 470_000)))
	require.Equal(t, uint64(470_000), h.balance(ownerAddr, bondDenom))
}

func TestClaimDuringLiquidationPaysLender(t *testing.T) {
	h := setupDefaultedLoan(t)
	h.mustExec(lenderAddr, nil, liquidateMsg)
	require.Zero(t, h.balance(lenderAddr, bondDenom))

	h.addRewards(valA, 50_000)
	h.mustExec(ownerAddr, nil, claimMsg)
	require.Equal(t, uint64(50_000), h.balance(lenderAddr, bondDenom))
	require.Equal(t, uint64(50_000), h.option().State.FixedTermLoan.AlreadyClaimed.Uint64())
}

func TestLiquidationBeforeExpiryRejected(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 1_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 1_000)}})
	h.openAndAccept(loanOption(100, 10, 500, 1_000))
	h.advance(999)

	_, err := h.exec(lenderAddr, nil, liquidateMsg)
	require.ErrorIs(t, err, ErrLoanNotExpired)
	require.False(t, h.option().State.FixedTermLoan.ProcessingLiquidation)
	require.Equal(t, uint64(1_000), h.ledger.TotalDelegated(h.vault).Uint64())

	h.mustExec(ownerAddr, nil, withdraw(types.NewCoin(loanDenom, 100)))
	require.Equal(t, uint64(100), h.balance(ownerAddr, loanDenom), "owner may spend the loan principal while performing")
}

func TestLiquidationOnRentalRejected(t *testing.T) {
	h := newHarness(t)
	h.openAndAccept(rentalOption(10, 10, false))
	h.advance(100)
	_, err := h.exec(lenderAddr, nil, liquidateMsg)
	require.True(t, errors.Is(err, ErrNotFixedTermLoan), "got %v", err)
}

func TestLiquidationShortfallClosesOnExhaustion(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 100_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 60_000)}})
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valB, Amount: types.NewCoin(bondDenom, 40_000)}})
	h.openAndAccept(loanOption(300_000, 30_000, 80_000, 1_000))
	h.advance(1_000)

	resp := h.mustExec(lenderAddr, nil, liquidateMsg)
	var undelegated uint64
	for _, m := range resp.Messages {
		if m.Undelegate != nil {
			undelegated += m.Undelegate.Amount.Amount.Uint64()
		}
	}
	require.Equal(t, uint64(80_000), undelegated, "collateral is spread across validators in order")
	require.Equal(t, uint64(20_000), h.ledger.TotalDelegated(h.vault).Uint64())

	h.advance(unbondingPeriod)
	resp = h.mustExec(lenderAddr, nil, liquidateMsg)
	require.Equal(t, uint64(80_000), h.balance(lenderAddr, bondDenom))
	require.Nil(t, h.option(), "option closes once the collateral is exhausted")

	var completed *types.Event
	for _, evt := range resp.Events {
		if evt.Type == EventTypeLiquidationCompleted {
			completed = evt
		}
	}
	require.NotNil(t, completed)
	require.Equal(t, "shortfall", completed.Attributes["outcome"])
	require.Equal(t, "250000", completed.Attributes["shortfall"])
	require.Equal(t, uint64(20_000), h.ledger.TotalDelegated(h.vault).Uint64(), "stake beyond the collateral is untouched")
}

// inflatedGateway reports more free balance than the ledger holds so the
// engine plans a payout that fails at dispatch.
type inflatedGateway struct {
	*staking.Ledger
	extra *uint256.Int
}

func (g inflatedGateway) Balance(addr, denom string) *uint256.Int {
	return new(uint256.Int).Add(g.Ledger.Balance(addr, denom), g.extra)
}

func TestLiquidationIsAtomicOnDispatchFailure(t *testing.T) {
	h := setupDefaultedLoan(t)
	h.engine.SetGateway(inflatedGateway{Ledger: h.ledger, extra: amt(1_000_000)})

	_, err := h.exec(lenderAddr, nil, liquidateMsg)
	require.ErrorIs(t, err, staking.ErrInsufficientFunds)

	option := h.option()
	require.NotNil(t, option, "failed liquidation must not close the option")
	loan := option.State.FixedTermLoan
	require.False(t, loan.ProcessingLiquidation)
	require.Nil(t, loan.LastLiquidationDate)
	require.True(t, loan.LiquidatedCollateral.IsZero())
	require.Equal(t, uint64(1_000_000), h.ledger.TotalDelegated(h.vault).Uint64())
	require.True(t, h.ledger.UnbondingBalance(h.vault).IsZero())
	require.Zero(t, h.balance(lenderAddr, bondDenom))

	h.engine.SetGateway(h.ledger)
	h.mustExec(lenderAddr, nil, liquidateMsg)
	require.True(t, h.option().State.FixedTermLoan.ProcessingLiquidation)
}

func completionEvent(resp *Response) *types.Event {
	for _, evt := range resp.Events {
		if evt.Type == EventTypeLiquidationCompleted {
			return evt
		}
	}
	return nil
}

func TestOwnerCannotRestakeDuringLiquidation(t *testing.T) {
	h := setupDefaultedLoan(t)
	h.addRewards(valA, 200_000)
	h.mustExec(lenderAddr, nil, liquidateMsg)
	h.advance(unbondingPeriod)
	require.Equal(t, uint64(600_000), h.balance(h.vault, bondDenom))

	_, err := h.exec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 600_000)}})
	require.ErrorIs(t, err, ErrLiquidationInProgress)
	_, err = h.exec(ownerAddr, nil, ExecuteMsg{Redelegate: &RedelegateMsg{SrcValidator: valA, DstValidator: valB, Amount: types.NewCoin(bondDenom, 100_000)}})
	require.ErrorIs(t, err, ErrLiquidationInProgress)
	require.Equal(t, uint64(600_000), h.balance(h.vault, bondDenom), "landed collateral stays free for the lender")
	require.Equal(t, uint64(400_000), h.ledger.Delegation(h.vault, valA).Uint64())

	resp := h.mustExec(lenderAddr, nil, liquidateMsg)
	completed := completionEvent(resp)
	require.NotNil(t, completed)
	require.Equal(t, "recovered", completed.Attributes["outcome"])
	require.Equal(t, uint64(330_000), h.balance(lenderAddr, bondDenom))

	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 270_000)}})
}

func TestLiquidationStaysOpenUntilCollateralLands(t *testing.T) {
	h := setupDefaultedLoan(t)

	resp := h.mustExec(lenderAddr, nil, liquidateMsg)
	require.Nil(t, completionEvent(resp))
	require.Zero(t, h.balance(lenderAddr, bondDenom))

	for i := 0; i < 3; i++ {
		h.advance(unbondingPeriod / 4)
		resp = h.mustExec(lenderAddr, nil, liquidateMsg)
		require.Nil(t, completionEvent(resp), "free balance is spent but collateral is still unbonding")
		require.NotNil(t, h.option())
	}

	h.advance(unbondingPeriod)
	resp = h.mustExec(lenderAddr, nil, liquidateMsg)
	completed := completionEvent(resp)
	require.NotNil(t, completed)
	require.Equal(t, "recovered", completed.Attributes["outcome"])
	require.Empty(t, completed.Attributes["shortfall"])
	require.Equal(t, uint64(330_000), h.balance(lenderAddr, bondDenom))
}
