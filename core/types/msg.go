package types

import "fmt"

// VoteOption mirrors the governance ballot choices.
type VoteOption string

const (
	VoteYes        VoteOption = "yes"
	VoteNo         VoteOption = "no"
	VoteAbstain    VoteOption = "abstain"
	VoteNoWithVeto VoteOption = "no_with_veto"
)

// Valid reports whether the option is a recognised ballot choice.
func (v VoteOption) Valid() bool {
	switch v {
	case VoteYes, VoteNo, VoteAbstain, VoteNoWithVeto:
		return true
	}
	return false
}

// BankSend moves coins from the executing account to ToAddress.
type BankSend struct {
	ToAddress string `json:"to_address"`
	Amount    Coins  `json:"amount"`
}

// Delegate bonds Amount to Validator.
type Delegate struct {
	Validator string `json:"validator"`
	Amount    Coin   `json:"amount"`
}

// Redelegate moves bonded stake between validators without unbonding.
type Redelegate struct {
	SrcValidator string `json:"src_validator"`
	DstValidator string `json:"dst_validator"`
	Amount       Coin   `json:"amount"`
}

// Undelegate starts unbonding Amount from Validator.
type Undelegate struct {
	Validator string `json:"validator"`
	Amount    Coin   `json:"amount"`
}

// WithdrawRewards moves pending delegator rewards into the free balance.
type WithdrawRewards struct {
	Validator string `json:"validator"`
}

// Vote casts a governance ballot.
type Vote struct {
	ProposalID uint64     `json:"proposal_id"`
	Option     VoteOption `json:"option"`
}

// Msg is an outgoing ledger instruction. Exactly one field is set.
type Msg struct {
	BankSend        *BankSend        `json:"bank_send,omitempty"`
	Delegate        *Delegate        `json:"delegate,omitempty"`
	Redelegate      *Redelegate      `json:"redelegate,omitempty"`
	Undelegate      *Undelegate      `json:"undelegate,omitempty"`
	WithdrawRewards *WithdrawRewards `json:"withdraw_rewards,omitempty"`
	Vote            *Vote            `json:"vote,omitempty"`
}

// Routes lists every instruction name Route can return.
var Routes = []string{"bank_send", "delegate", "redelegate", "undelegate", "withdraw_rewards", "vote"}

// Route returns the instruction name used in logs and metrics.
func (m Msg) Route() string {
	switch {
	case m.BankSend != nil:
		return "bank_send"
	case m.Delegate != nil:
		return "delegate"
	case m.Redelegate != nil:
		return "redelegate"
	case m.Undelegate != nil:
		return "undelegate"
	case m.WithdrawRewards != nil:
		return "withdraw_rewards"
	case m.Vote != nil:
		return "vote"
	default:
		return "unknown"
	}
}

func (m Msg) String() string {
	switch {
	case m.BankSend != nil:
		return fmt.Sprintf("bank_send(%s -> %s)", m.BankSend.Amount, m.BankSend.ToAddress)
	case m.Delegate != nil:
		return fmt.Sprintf("delegate(%s -> %s)", m.Delegate.Amount, m.Delegate.Validator)
	case m.Redelegate != nil:
		return fmt.Sprintf("redelegate(%s %s -> %s)", m.Redelegate.Amount, m.Redelegate.SrcValidator, m.Redelegate.DstValidator)
	case m.Undelegate != nil:
		return fmt.Sprintf("undelegate(%s <- %s)", m.Undelegate.Amount, m.Undelegate.Validator)
	case m.WithdrawRewards != nil:
		return fmt.Sprintf("withdraw_rewards(%s)", m.WithdrawRewards.Validator)
	case m.Vote != nil:
		return fmt.Sprintf("vote(%d %s)", m.Vote.ProposalID, m.Vote.Option)
	default:
		return "unknown"
	}
}

// NewBankSend is a convenience constructor for single-coin transfers.
func NewBankSend(to string, coin Coin) Msg {
	return Msg{BankSend: &BankSend{ToAddress: to, Amount: Coins{coin.Clone()}}}
}
