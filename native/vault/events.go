package vault

import (
	"strconv"

	"github.com/holiman/uint256"

	"stakevault/core/types"
)

const (
	EventTypeVaultInstantiated     = "vault.instantiated"
	EventTypeRequestOpened         = "vault.request_opened"
	EventTypeRequestClosed         = "vault.request_closed"
	EventTypeRequestAccepted       = "vault.request_accepted"
	EventTypeRewardsClaimed        = "vault.rewards_claimed"
	EventTypeLenderPaid            = "vault.lender_paid"
	EventTypeLoanRepaid            = "vault.loan_repaid"
	EventTypeLiquidationStarted    = "vault.liquidation_started"
	EventTypeLiquidationProgressed = "vault.liquidation_progressed"
	EventTypeLiquidationCompleted  = "vault.liquidation_completed"
	EventTypeOwnershipTransferred  = "vault.ownership_transferred"
	EventTypeBalanceWithdrawn      = "vault.balance_withdrawn"
	EventTypeDelegated             = "vault.delegated"
	EventTypeRedelegated           = "vault.redelegated"
	EventTypeUndelegated           = "vault.undelegated"
	EventTypeVoted                 = "vault.voted"
)

func newInstantiatedEvent(vault string, cfg *Config) *types.Event {
	return types.NewEvent(EventTypeVaultInstantiated).
		With("vault", vault).
		With("owner", cfg.Owner).
		With("codeId", strconv.FormatUint(cfg.CodeID, 10)).
		With("index", strconv.FormatUint(cfg.Index, 10))
}

func newOptionEvent(eventType string, option *ActiveOption) *types.Event {
	evt := types.NewEvent(eventType)
	if option == nil {
		return evt
	}
	return evt.
		With("kind", option.Msg.Kind().String()).
		With("requested", option.Msg.RequestedAmount().String()).
		With("lender", option.Lender)
}

func newLenderPaidEvent(lender string, amount types.Coin, total *uint256.Int) *types.Event {
	return types.NewEvent(EventTypeLenderPaid).
		With("lender", lender).
		With("amount", amount.String()).
		With("alreadyClaimed", total.Dec())
}

func newLiquidationEvent(eventType string, loan *FixedTermLoanState) *types.Event {
	evt := types.NewEvent(eventType).
		With("debt", loan.Debt().Dec()).
		With("recovered", amountOrZero(loan.AlreadyClaimed).Dec()).
		With("liquidatedCollateral", amountOrZero(loan.LiquidatedCollateral).Dec())
	if loan.LastLiquidationDate != nil {
		evt.With("lastLiquidationDate", strconv.FormatInt(*loan.LastLiquidationDate, 10))
	}
	return evt
}
