package vault

import (
	"fmt"
	"strings"

	"stakevault/core/types"
	"stakevault/crypto"
)

// withdrawBalance sends free vault balance to the owner or to_address. The
// lender has priority over every coin in the vault while a liquidation runs.
func (x *execution) withdrawBalance(msg *WithdrawBalanceMsg) error {
	if x.liquidating() {
		return ErrLiquidationInProgress
	}
	if strings.TrimSpace(msg.Funds.Denom) == "" || msg.Funds.IsZero() {
		return ErrInvalidAmount
	}
	to := strings.TrimSpace(msg.ToAddress)
	if to == "" {
		to = x.cfg.Owner
	}
	if err := crypto.ValidateAddress(to, crypto.AccountPrefix); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	available := x.gw.balance(msg.Funds.Denom)
	if available.Lt(msg.Funds.Amount) {
		return &InsufficientBalanceError{
			Required:  msg.Funds.Clone(),
			Available: types.Coin{Denom: msg.Funds.Denom, Amount: available},
		}
	}
	x.resp.addMessages(types.NewBankSend(to, msg.Funds))
	x.emit(types.NewEvent(EventTypeBalanceWithdrawn).
		With("to", to).
		With("amount", msg.Funds.String()))
	return nil
}
