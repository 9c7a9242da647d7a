package staking

import (
	"github.com/holiman/uint256"

	"stakevault/core/types"
)

// Validator is a bonded-set candidate. Only active validators accept new stake.
type Validator struct {
	Address string `json:"address"`
	Moniker string `json:"moniker,omitempty"`
	Active  bool   `json:"active"`
}

// Delegation is the bonded stake of one delegator at one validator.
type Delegation struct {
	Delegator string     `json:"delegator"`
	Validator string     `json:"validator"`
	Amount    types.Coin `json:"amount"`
}

// Reward is the pending, not yet withdrawn, reward at one validator.
type Reward struct {
	Validator string     `json:"validator"`
	Amount    types.Coin `json:"amount"`
}

// UnbondingEntry is stake leaving a validator. It lands in the delegator's free
// balance once CompletionTime has passed.
type UnbondingEntry struct {
	Delegator      string       `json:"delegator"`
	Validator      string       `json:"validator"`
	Amount         *uint256.Int `json:"amount"`
	CompletionTime int64        `json:"completion_time"`
}

// Clone returns a deep copy of the entry.
func (u UnbondingEntry) Clone() UnbondingEntry {
	out := u
	if u.Amount != nil {
		out.Amount = new(uint256.Int).Set(u.Amount)
	}
	return out
}

// Params configures the ledger.
type Params struct {
	BondDenom       string
	UnbondingPeriod int64
}
