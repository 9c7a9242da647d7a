package vault

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stakevault/core/types"
)

func TestClaimWithoutOptionKeepsRewards(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 1_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 1_000)}})
	h.addRewards(valA, 77)

	resp := h.mustExec(ownerAddr, nil, claimMsg)
	require.Len(t, resp.Messages, 1)
	require.NotNil(t, resp.Messages[0].WithdrawRewards)
	require.Equal(t, uint64(77), h.balance(h.vault, bondDenom))
	require.Empty(t, h.ledger.PendingRewards(h.vault))
}

func TestFixedInterestRentalCapsAndCloses(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 10_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 10_000)}})
	h.openAndAccept(interestOption(1_000, 300, false))

	h.addRewards(valA, 200)
	h.mustExec(lenderAddr, nil, claimMsg)
	require.Equal(t, uint64(200), h.balance(lenderAddr, bondDenom))
	state := h.option().State.FixedInterestRental
	require.Equal(t, uint64(200), state.AlreadyClaimed.Uint64())

	h.addRewards(valA, 500)
	h.mustExec(ownerAddr, nil, claimMsg)
	require.Equal(t, uint64(300), h.balance(lenderAddr, bondDenom), "lender must never exceed claimable tokens")
	require.Nil(t, h.option(), "option closes when claimable tokens are reached")
	require.Equal(t, uint64(400), h.balance(h.vault, bondDenom))

	h.addRewards(valA, 50)
	h.mustExec(ownerAddr, nil, claimMsg)
	require.Equal(t, uint64(300), h.balance(lenderAddr, bondDenom))
	require.Equal(t, uint64(450), h.balance(h.vault, bondDenom))
}

func TestFixedTermRentalFullCycle(t *testing.T) {
	const requested = 1_001
	const duration = 100

	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 50_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valB, Amount: types.NewCoin(bondDenom, 50_000)}})
	h.openAndAccept(rentalOption(requested, duration, true))
	h.addRewards(valB, 10_000)

	h.advance(duration / 2)
	h.mustExec(lenderAddr, nil, claimMsg)
	require.Equal(t, uint64(requested/2), h.balance(lenderAddr, bondDenom))
	rental := h.option().State.FixedTermRental
	require.Equal(t, genesisTime+duration/2, rental.LastClaimTime)

	h.advance(duration / 2)
	h.mustExec(lenderAddr, nil, claimMsg)
	require.Equal(t, uint64(requested), h.balance(lenderAddr, bondDenom), "cumulative payout equals requested amount")
	require.Nil(t, h.option())

	resp := h.mustExec(ownerAddr, nil, claimMsg)
	for _, m := range resp.Messages {
		require.Nil(t, m.BankSend, "no distribution once the rental is closed")
	}
	require.Equal(t, uint64(requested), h.balance(lenderAddr, bondDenom))
}

func TestFixedTermRentalSumsToRequestedAcrossClaims(t *testing.T) {
	const requested = 1_001
	const duration = 99

	schedules := map[string][]int64{
		"single claim at end":    {duration},
		"uneven thirds":          {duration / 3, duration/3 + 1, duration - 1, duration},
		"every second":           {1, 2, 3, 4, 5, 50, 97, 98, duration},
		"late final claim":       {10, 40, duration + 500},
		"first and last instant": {1, duration},
	}
	for name, times := range schedules {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.mint(h.vault, types.NewCoin(bondDenom, 50_000))
			h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 50_000)}})
			h.openAndAccept(rentalOption(requested, duration, false))
			h.addRewards(valA, 100_000)

			lastClaim := genesisTime
			for i, at := range times {
				h.advance(genesisTime + at - h.now)
				h.mustExec(lenderAddr, nil, claimMsg)

				elapsed := min(at, duration)
				want := uint64(requested) * uint64(elapsed) / duration
				require.Equal(t, want, h.balance(lenderAddr, bondDenom), "claim %d at %d", i, at)
				if option := h.option(); option != nil {
					rental := option.State.FixedTermRental
					require.GreaterOrEqual(t, rental.LastClaimTime, lastClaim, "claim cursor moved backwards")
					lastClaim = rental.LastClaimTime
				}
			}
			require.Equal(t, uint64(requested), h.balance(lenderAddr, bondDenom))
			require.Nil(t, h.option())
		})
	}
}

func TestFixedTermRentalPartialAvailability(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 1_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 1_000)}})
	h.openAndAccept(rentalOption(1_000, 100, false))

	h.addRewards(valA, 200)
	h.advance(50)
	h.mustExec(lenderAddr, nil, claimMsg)
	rental := h.option().State.FixedTermRental
	require.Equal(t, uint64(200), rental.AlreadyClaimed.Uint64())
	require.Equal(t, genesisTime+20, rental.LastClaimTime, "claim cursor advances only as far as the payout covers")

	h.advance(100)
	h.addRewards(valA, 700)
	h.mustExec(lenderAddr, nil, claimMsg)
	rental = h.option().State.FixedTermRental
	require.Equal(t, uint64(900), rental.AlreadyClaimed.Uint64())
	require.LessOrEqual(t, rental.LastClaimTime, h.now)
	require.NotNil(t, h.option(), "option stays open until the full amount is paid")

	h.addRewards(valA, 500)
	h.mustExec(lenderAddr, nil, claimMsg)
	require.Nil(t, h.option())
	require.Equal(t, uint64(1_000), h.balance(lenderAddr, bondDenom))
	require.Equal(t, uint64(400), h.balance(h.vault, bondDenom))
}

func TestRentalEntitlementFloors(t *testing.T) {
	st := &FixedTermRentalState{
		RequestedAmount: types.NewCoin(loanDenom, 10),
		StartTime:       0,
		EndTime:         3,
	}
	require.Equal(t, uint64(0), rentalEntitlement(st, 0).Uint64())
	require.Equal(t, uint64(3), rentalEntitlement(st, 1).Uint64())
	require.Equal(t, uint64(6), rentalEntitlement(st, 2).Uint64())
	require.Equal(t, uint64(10), rentalEntitlement(st, 3).Uint64())
	require.Equal(t, uint64(10), rentalEntitlement(st, 99).Uint64())
}

func TestPerformingLoanRewardsStayWithOwner(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 1_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 1_000)}})
	h.openAndAccept(loanOption(100, 10, 500, 1_000))

	h.addRewards(valA, 90)
	h.advance(2_000)
	h.mustExec(lenderAddr, nil, claimMsg)
	require.Zero(t, h.balance(lenderAddr, bondDenom))
	require.Equal(t, uint64(90), h.balance(h.vault, bondDenom))
	require.False(t, h.option().State.FixedTermLoan.ProcessingLiquidation, "claiming never starts a liquidation")
}
