package events

import (
	"strconv"

	"stakevault/core/types"
)

const (
	// TypeStakeDelegated captures a delegation bonding free balance.
	TypeStakeDelegated = "stake.delegated"
	// TypeStakeRedelegated captures stake moving between validators.
	TypeStakeRedelegated = "stake.redelegated"
	// TypeStakeUndelegated captures stake entering the unbonding queue.
	TypeStakeUndelegated = "stake.undelegated"
	// TypeStakeUnbonded is emitted when an unbonding entry matures into free balance.
	TypeStakeUnbonded = "stake.unbonded"
	// TypeStakeRewardsClaimed is emitted when pending delegator rewards are withdrawn.
	TypeStakeRewardsClaimed = "stake.rewardsClaimed"
	// TypeGovVoted is emitted when a delegator casts a governance ballot.
	TypeGovVoted = "gov.voted"
	// TypeBankTransfer is emitted for every bank ledger transfer.
	TypeBankTransfer = "bank.transfer"
)

// StakeDelegated captures a bonding operation.
type StakeDelegated struct {
	Delegator string
	Validator string
	Amount    types.Coin
}

// EventType satisfies the Event interface.
func (StakeDelegated) EventType() string { return TypeStakeDelegated }

// Event converts the structured payload into a broadcastable event.
func (e StakeDelegated) Event() *types.Event {
	return types.NewEvent(TypeStakeDelegated).
		With("delegator", e.Delegator).
		With("validator", e.Validator).
		With("amount", e.Amount.String())
}

// StakeRedelegated captures a move between validators.
type StakeRedelegated struct {
	Delegator    string
	SrcValidator string
	DstValidator string
	Amount       types.Coin
}

// EventType satisfies the Event interface.
func (StakeRedelegated) EventType() string { return TypeStakeRedelegated }

// Event converts the structured payload into a broadcastable event.
func (e StakeRedelegated) Event() *types.Event {
	return types.NewEvent(TypeStakeRedelegated).
		With("delegator", e.Delegator).
		With("srcValidator", e.SrcValidator).
		With("dstValidator", e.DstValidator).
		With("amount", e.Amount.String())
}

// StakeUndelegated captures stake entering the unbonding queue.
type StakeUndelegated struct {
	Delegator      string
	Validator      string
	Amount         types.Coin
	CompletionTime int64
}

// EventType satisfies the Event interface.
func (StakeUndelegated) EventType() string { return TypeStakeUndelegated }

// Event converts the structured payload into a broadcastable event.
func (e StakeUndelegated) Event() *types.Event {
	return types.NewEvent(TypeStakeUndelegated).
		With("delegator", e.Delegator).
		With("validator", e.Validator).
		With("amount", e.Amount.String()).
		With("completionTime", strconv.FormatInt(e.CompletionTime, 10))
}

// StakeUnbonded captures a matured unbonding entry.
type StakeUnbonded struct {
	Delegator string
	Validator string
	Amount    types.Coin
}

// EventType satisfies the Event interface.
func (StakeUnbonded) EventType() string { return TypeStakeUnbonded }

// Event converts the structured payload into a broadcastable event.
func (e StakeUnbonded) Event() *types.Event {
	return types.NewEvent(TypeStakeUnbonded).
		With("delegator", e.Delegator).
		With("validator", e.Validator).
		With("amount", e.Amount.String())
}

// StakeRewardsClaimed captures a withdrawal of pending rewards.
type StakeRewardsClaimed struct {
	Delegator string
	Validator string
	Amount    types.Coin
}

// EventType satisfies the Event interface.
func (StakeRewardsClaimed) EventType() string { return TypeStakeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardsClaimed) Event() *types.Event {
	return types.NewEvent(TypeStakeRewardsClaimed).
		With("delegator", e.Delegator).
		With("validator", e.Validator).
		With("amount", e.Amount.String())
}

// GovVoted captures a governance ballot.
type GovVoted struct {
	Voter      string
	ProposalID uint64
	Option     types.VoteOption
}

// EventType satisfies the Event interface.
func (GovVoted) EventType() string { return TypeGovVoted }

// Event converts the structured payload into a broadcastable event.
func (e GovVoted) Event() *types.Event {
	return types.NewEvent(TypeGovVoted).
		With("voter", e.Voter).
		With("proposalId", strconv.FormatUint(e.ProposalID, 10)).
		With("option", string(e.Option))
}

// BankTransfer captures a bank ledger movement.
type BankTransfer struct {
	From   string
	To     string
	Amount types.Coins
}

// EventType satisfies the Event interface.
func (BankTransfer) EventType() string { return TypeBankTransfer }

// Event converts the structured payload into a broadcastable event.
func (e BankTransfer) Event() *types.Event {
	return types.NewEvent(TypeBankTransfer).
		With("from", e.From).
		With("to", e.To).
		With("amount", e.Amount.String())
}
