package staking

import (
	"fmt"

	"stakevault/core/types"
)

// Dispatch executes one outgoing instruction on behalf of sender.
func (l *Ledger) Dispatch(sender string, msg types.Msg, now int64) error {
	switch {
	case msg.BankSend != nil:
		return l.Send(sender, msg.BankSend.ToAddress, msg.BankSend.Amount)
	case msg.Delegate != nil:
		return l.Delegate(sender, msg.Delegate.Validator, msg.Delegate.Amount)
	case msg.Redelegate != nil:
		return l.Redelegate(sender, msg.Redelegate.SrcValidator, msg.Redelegate.DstValidator, msg.Redelegate.Amount)
	case msg.Undelegate != nil:
		return l.Undelegate(sender, msg.Undelegate.Validator, msg.Undelegate.Amount, now)
	case msg.WithdrawRewards != nil:
		_, err := l.WithdrawRewards(sender, msg.WithdrawRewards.Validator)
		return err
	case msg.Vote != nil:
		return l.Vote(sender, msg.Vote.ProposalID, msg.Vote.Option)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMsg, msg.Route())
	}
}
