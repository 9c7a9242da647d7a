package vault

import (
	"fmt"

	"github.com/holiman/uint256"

	"stakevault/core/types"
	"stakevault/native/staking"
)

// Gateway is the read view of the external staking and bank ledgers. Writes
// happen only through the instructions returned in a Response.
type Gateway interface {
	BondDenom() string
	Balance(addr, denom string) *uint256.Int
	AllBalances(addr string) types.Coins
	Delegations(delegator string) []staking.Delegation
	PendingRewards(delegator string) []staking.Reward
	UnbondingBalance(delegator string) *uint256.Int
	Validator(addr string) (staking.Validator, bool)
}

// delegationGateway binds the ledger view to one vault account and builds the
// instructions that act on it.
type delegationGateway struct {
	view  Gateway
	vault string
}

func (g delegationGateway) bondDenom() string { return g.view.BondDenom() }

func (g delegationGateway) checkBondDenom(coin types.Coin) error {
	if denom := g.bondDenom(); coin.Denom != denom {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidStakingDenom, denom, coin.Denom)
	}
	if coin.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func (g delegationGateway) verifyValidatorIsActive(validator string) error {
	v, ok := g.view.Validator(validator)
	if !ok || !v.Active {
		return fmt.Errorf("%w: %s", ErrValidatorIsInactive, validator)
	}
	return nil
}

func (g delegationGateway) balance(denom string) *uint256.Int {
	return g.view.Balance(g.vault, denom)
}

func (g delegationGateway) delegations() []staking.Delegation {
	return g.view.Delegations(g.vault)
}

func (g delegationGateway) delegatedTo(validator string) *uint256.Int {
	for _, d := range g.delegations() {
		if d.Validator == validator {
			return d.Amount.AmountOrZero()
		}
	}
	return new(uint256.Int)
}

func (g delegationGateway) totalDelegated() *uint256.Int {
	total := new(uint256.Int)
	for _, d := range g.delegations() {
		total.Add(total, d.Amount.AmountOrZero())
	}
	return total
}

func (g delegationGateway) unbonding() *uint256.Int {
	return g.view.UnbondingBalance(g.vault)
}

// claimAllRewards returns one withdraw instruction per validator with pending
// rewards and the total those instructions will add to the free balance.
func (g delegationGateway) claimAllRewards() ([]types.Msg, *uint256.Int) {
	total := new(uint256.Int)
	var msgs []types.Msg
	for _, reward := range g.view.PendingRewards(g.vault) {
		if reward.Amount.IsZero() {
			continue
		}
		msgs = append(msgs, types.Msg{WithdrawRewards: &types.WithdrawRewards{Validator: reward.Validator}})
		total.Add(total, reward.Amount.Amount)
	}
	return msgs, total
}

func (g delegationGateway) delegate(validator string, amount types.Coin) types.Msg {
	return types.Msg{Delegate: &types.Delegate{Validator: validator, Amount: amount.Clone()}}
}

func (g delegationGateway) redelegate(src, dst string, amount types.Coin) types.Msg {
	return types.Msg{Redelegate: &types.Redelegate{SrcValidator: src, DstValidator: dst, Amount: amount.Clone()}}
}

func (g delegationGateway) undelegate(validator string, amount types.Coin) types.Msg {
	return types.Msg{Undelegate: &types.Undelegate{Validator: validator, Amount: amount.Clone()}}
}

// undelegateUpTo spreads an undelegation of at most target across the vault's
// delegations in validator order.
func (g delegationGateway) undelegateUpTo(target *uint256.Int) ([]types.Msg, *uint256.Int) {
	remaining := new(uint256.Int).Set(target)
	undelegated := new(uint256.Int)
	var msgs []types.Msg
	for _, d := range g.delegations() {
		if remaining.IsZero() {
			break
		}
		take := minAmount(remaining, d.Amount.AmountOrZero())
		if take.IsZero() {
			continue
		}
		msgs = append(msgs, g.undelegate(d.Validator, types.Coin{Denom: g.bondDenom(), Amount: take}))
		remaining.Sub(remaining, take)
		undelegated.Add(undelegated, take)
	}
	return msgs, undelegated
}
