package vault

import "fmt"

// Action is a vault operation subject to the authorization matrix.
type Action uint8

const (
	ActionDelegate Action = iota + 1
	ActionRedelegate
	ActionUndelegate
	ActionOpenLiquidityRequest
	ActionCloseLiquidityRequest
	ActionAcceptLiquidityRequest
	ActionClaimDelegatorRewards
	ActionRepayLoan
	ActionLiquidateCollateral
	ActionVote
	ActionTransferOwnership
	ActionWithdrawBalance
)

func (a Action) String() string {
	switch a {
	case ActionDelegate:
		return "delegate"
	case ActionRedelegate:
		return "redelegate"
	case ActionUndelegate:
		return "undelegate"
	case ActionOpenLiquidityRequest:
		return "open_liquidity_request"
	case ActionCloseLiquidityRequest:
		return "close_liquidity_request"
	case ActionAcceptLiquidityRequest:
		return "accept_liquidity_request"
	case ActionClaimDelegatorRewards:
		return "claim_delegator_rewards"
	case ActionRepayLoan:
		return "repay_loan"
	case ActionLiquidateCollateral:
		return "liquidate_collateral"
	case ActionVote:
		return "vote"
	case ActionTransferOwnership:
		return "transfer_ownership"
	case ActionWithdrawBalance:
		return "withdraw_balance"
	default:
		return "unknown"
	}
}

var ownerActions = map[Action]bool{
	ActionDelegate:              true,
	ActionRedelegate:            true,
	ActionUndelegate:            true,
	ActionOpenLiquidityRequest:  true,
	ActionCloseLiquidityRequest: true,
	ActionWithdrawBalance:       true,
	ActionTransferOwnership:     true,
	ActionClaimDelegatorRewards: true,
	ActionLiquidateCollateral:   true,
	ActionRepayLoan:             true,
	ActionVote:                  true,
}

var lenderActions = map[Action]bool{
	ActionClaimDelegatorRewards: true,
	ActionLiquidateCollateral:   true,
	ActionRepayLoan:             true,
	ActionVote:                  true,
}

// Authorize decides whether caller may perform action against a vault with
// the given config and liquidity request slot. The caller is matched against
// the owner set, then the lender set, then the open set; the first set the
// caller belongs to is the only one consulted. It never mutates its inputs.
func Authorize(cfg *Config, option *ActiveOption, caller string, action Action) error {
	if cfg == nil || caller == "" {
		return fmt.Errorf("%w: %s", ErrUnauthorized, action)
	}
	switch {
	case caller == cfg.Owner:
		if !ownerActions[action] {
			return fmt.Errorf("%w: owner may not %s", ErrUnauthorized, action)
		}
		if (action == ActionUndelegate || action == ActionCloseLiquidityRequest) && option.IsActive() {
			return fmt.Errorf("%w: %s while a liquidity request is active", ErrUnauthorized, action)
		}
		return nil
	case option.IsActive() && caller == option.Lender:
		if !lenderActions[action] {
			return fmt.Errorf("%w: lender may not %s", ErrUnauthorized, action)
		}
		if action == ActionVote && !option.State.CanCastVote() {
			return fmt.Errorf("%w: voting rights were not rented", ErrUnauthorized)
		}
		return nil
	case option.IsPending():
		if action != ActionAcceptLiquidityRequest {
			return fmt.Errorf("%w: %s", ErrUnauthorized, action)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnauthorized, action)
	}
}
