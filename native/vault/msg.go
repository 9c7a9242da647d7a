package vault

import "stakevault/core/types"

type DelegateMsg struct {
	Validator string     `json:"validator"`
	Amount    types.Coin `json:"amount"`
}

type RedelegateMsg struct {
	SrcValidator string     `json:"src_validator"`
	DstValidator string     `json:"dst_validator"`
	Amount       types.Coin `json:"amount"`
}

type UndelegateMsg struct {
	Validator string     `json:"validator"`
	Amount    types.Coin `json:"amount"`
}

type OpenLiquidityRequestMsg struct {
	Option LiquidityRequestOption `json:"option"`
}

type CloseLiquidityRequestMsg struct{}

type AcceptLiquidityRequestMsg struct{}

type ClaimDelegatorRewardsMsg struct{}

type RepayLoanMsg struct{}

type LiquidateCollateralMsg struct{}

type VoteMsg struct {
	ProposalID uint64           `json:"proposal_id"`
	Vote       types.VoteOption `json:"vote"`
}

type TransferOwnershipMsg struct {
	ToAddress string `json:"to_address"`
}

type WithdrawBalanceMsg struct {
	ToAddress string     `json:"to_address,omitempty"`
	Funds     types.Coin `json:"funds"`
}

// ExecuteMsg is the vault message surface. Exactly one field is set.
type ExecuteMsg struct {
	Delegate               *DelegateMsg               `json:"delegate,omitempty"`
	Redelegate             *RedelegateMsg             `json:"redelegate,omitempty"`
	Undelegate             *UndelegateMsg             `json:"undelegate,omitempty"`
	OpenLiquidityRequest   *OpenLiquidityRequestMsg   `json:"open_liquidity_request,omitempty"`
	CloseLiquidityRequest  *CloseLiquidityRequestMsg  `json:"close_liquidity_request,omitempty"`
	AcceptLiquidityRequest *AcceptLiquidityRequestMsg `json:"accept_liquidity_request,omitempty"`
	ClaimDelegatorRewards  *ClaimDelegatorRewardsMsg  `json:"claim_delegator_rewards,omitempty"`
	RepayLoan              *RepayLoanMsg              `json:"repay_loan,omitempty"`
	LiquidateCollateral    *LiquidateCollateralMsg    `json:"liquidate_collateral,omitempty"`
	Vote                   *VoteMsg                   `json:"vote,omitempty"`
	TransferOwnership      *TransferOwnershipMsg      `json:"transfer_ownership,omitempty"`
	WithdrawBalance        *WithdrawBalanceMsg        `json:"withdraw_balance,omitempty"`
}

// Action returns the authorization action the message requests, or zero when
// the message does not set exactly one field.
func (m ExecuteMsg) Action() Action {
	var action Action
	count := 0
	set := func(present bool, a Action) {
		if present {
			action = a
			count++
		}
	}
	set(m.Delegate != nil, ActionDelegate)
	set(m.Redelegate != nil, ActionRedelegate)
	set(m.Undelegate != nil, ActionUndelegate)
	set(m.OpenLiquidityRequest != nil, ActionOpenLiquidityRequest)
	set(m.CloseLiquidityRequest != nil, ActionCloseLiquidityRequest)
	set(m.AcceptLiquidityRequest != nil, ActionAcceptLiquidityRequest)
	set(m.ClaimDelegatorRewards != nil, ActionClaimDelegatorRewards)
	set(m.RepayLoan != nil, ActionRepayLoan)
	set(m.LiquidateCollateral != nil, ActionLiquidateCollateral)
	set(m.Vote != nil, ActionVote)
	set(m.TransferOwnership != nil, ActionTransferOwnership)
	set(m.WithdrawBalance != nil, ActionWithdrawBalance)
	if count != 1 {
		return 0
	}
	return action
}

// InfoResponse answers the Info query.
type InfoResponse struct {
	Config           Config        `json:"config"`
	LiquidityRequest *ActiveOption `json:"liquidity_request"`
}

// Response is the result of a successful execution: outgoing ledger
// instructions the host must dispatch in order, and the events to publish
// once they succeed.
type Response struct {
	Messages []types.Msg    `json:"messages"`
	Events   []*types.Event `json:"events"`
}

func (r *Response) addMessages(msgs ...types.Msg) {
	r.Messages = append(r.Messages, msgs...)
}

func (r *Response) addEvent(evt *types.Event) {
	if evt != nil {
		r.Events = append(r.Events, evt)
	}
}
