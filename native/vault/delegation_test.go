package vault

import (
	"errors"
	"testing"

	"stakevault/core/types"
	nativecommon "stakevault/native/common"
)

func TestDelegationGuards(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 1_000), types.NewCoin(loanDenom, 5))

	delegate := func(validator string, coin types.Coin) error {
		_, err := h.exec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: validator, Amount: coin}})
		return err
	}
	if err := delegate(valA, types.NewCoin(loanDenom, 5)); !errors.Is(err, ErrInvalidStakingDenom) {
		t.Fatalf("wrong denom: %v", err)
	}
	if err := delegate(valJailed, types.NewCoin(bondDenom, 5)); !errors.Is(err, ErrValidatorIsInactive) {
		t.Fatalf("inactive validator: %v", err)
	}
	if err := delegate(valA, types.NewCoin(bondDenom, 1_001)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over balance: %v", err)
	}
	if err := delegate(valA, types.NewCoin(bondDenom, 800)); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	redelegate := ExecuteMsg{Redelegate: &RedelegateMsg{SrcValidator: valA, DstValidator: valB, Amount: types.NewCoin(bondDenom, 801)}}
	_, err := h.exec(ownerAddr, nil, redelegate)
	var maxErr *MaxUndelegateAmountExceededError
	if !errors.As(err, &maxErr) || maxErr.Max.Uint64() != 800 {
		t.Fatalf("redelegate over stake: %v", err)
	}
	redelegate.Redelegate.DstValidator = valJailed
	redelegate.Redelegate.Amount = types.NewCoin(bondDenom, 300)
	if _, err := h.exec(ownerAddr, nil, redelegate); !errors.Is(err, ErrValidatorIsInactive) {
		t.Fatalf("redelegate to inactive: %v", err)
	}
	redelegate.Redelegate.DstValidator = valB
	h.mustExec(ownerAddr, nil, redelegate)
	if got := h.ledger.Delegation(h.vault, valB).Uint64(); got != 300 {
		t.Fatalf("redelegated %d, want 300", got)
	}

	undelegate := ExecuteMsg{Undelegate: &UndelegateMsg{Validator: valB, Amount: types.NewCoin(bondDenom, 301)}}
	if _, err := h.exec(ownerAddr, nil, undelegate); !errors.Is(err, ErrMaxUndelegateAmountExceeded) {
		t.Fatalf("undelegate over stake: %v", err)
	}
	undelegate.Undelegate.Amount = types.NewCoin(bondDenom, 300)
	h.mustExec(ownerAddr, nil, undelegate)
	if got := h.ledger.UnbondingBalance(h.vault).Uint64(); got != 300 {
		t.Fatalf("unbonding %d, want 300", got)
	}
}

func TestUndelegateBlockedWhileActive(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 1_000))
	h.mustExec(ownerAddr, nil, ExecuteMsg{Delegate: &DelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 1_000)}})
	h.mustExec(ownerAddr, nil, open(loanOption(10, 1, 500, 100)))

	undelegate := ExecuteMsg{Undelegate: &UndelegateMsg{Validator: valA, Amount: types.NewCoin(bondDenom, 10)}}
	h.mustExec(ownerAddr, nil, undelegate)

	h.mint(lenderAddr, types.NewCoin(loanDenom, 10))
	h.mustExec(lenderAddr, types.Coins{types.NewCoin(loanDenom, 10)}, acceptMsg)
	if _, err := h.exec(ownerAddr, nil, undelegate); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized while active, got %v", err)
	}
}

func TestVoteRights(t *testing.T) {
	vote := ExecuteMsg{Vote: &VoteMsg{ProposalID: 7, Vote: types.VoteYes}}

	h := newHarness(t)
	h.openAndAccept(rentalOption(10, 100, true))
	h.mustExec(lenderAddr, nil, vote)
	if got, ok := h.ledger.VoteOf(7, h.vault); !ok || got != types.VoteYes {
		t.Fatalf("vault ballot not recorded: %q %v", got, ok)
	}
	h.mustExec(ownerAddr, nil, ExecuteMsg{Vote: &VoteMsg{ProposalID: 7, Vote: types.VoteNo}})
	if got, _ := h.ledger.VoteOf(7, h.vault); got != types.VoteNo {
		t.Fatalf("owner ballot not recorded: %q", got)
	}
	if _, err := h.exec(ownerAddr, nil, ExecuteMsg{Vote: &VoteMsg{ProposalID: 7, Vote: "maybe"}}); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("invalid ballot: %v", err)
	}

	h2 := newHarness(t)
	h2.openAndAccept(interestOption(10, 5, false))
	if _, err := h2.exec(lenderAddr, nil, vote); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("lender without voting rights: %v", err)
	}
}

func TestWithdrawBalance(t *testing.T) {
	h := newHarness(t)
	h.mint(h.vault, types.NewCoin(bondDenom, 500))

	_, err := h.exec(ownerAddr, nil, withdraw(types.NewCoin(bondDenom, 501)))
	var balErr *InsufficientBalanceError
	if !errors.As(err, &balErr) || balErr.Available.Amount.Uint64() != 500 {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if _, err := h.exec(ownerAddr, nil, withdraw(types.NewCoin(bondDenom, 0))); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero withdraw: %v", err)
	}
	if _, err := h.exec(strangerAddr, nil, withdraw(types.NewCoin(bondDenom, 1))); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger withdraw: %v", err)
	}

	beneficiary := testAddr("beneficiary")
	h.mustExec(ownerAddr, nil, ExecuteMsg{WithdrawBalance: &WithdrawBalanceMsg{
		ToAddress: beneficiary,
		Funds:     types.NewCoin(bondDenom, 200),
	}})
	h.mustExec(ownerAddr, nil, withdraw(types.NewCoin(bondDenom, 300)))
	if h.balance(beneficiary, bondDenom) != 200 || h.balance(ownerAddr, bondDenom) != 300 {
		t.Fatalf("unexpected balances beneficiary=%d owner=%d", h.balance(beneficiary, bondDenom), h.balance(ownerAddr, bondDenom))
	}
}

func TestPausedModuleRejectsMutations(t *testing.T) {
	h := newHarness(t)
	pauses := nativecommon.NewStaticPauses(ModuleName)
	h.engine.SetPauses(pauses)
	if _, err := h.exec(ownerAddr, nil, open(rentalOption(10, 10, false))); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if Classify(nativecommon.ErrModulePaused) != ClassUnavailable {
		t.Fatalf("paused errors must classify as unavailable")
	}
	pauses.Set(ModuleName, false)
	h.mustExec(ownerAddr, nil, open(rentalOption(10, 10, false)))
}

func TestClassify(t *testing.T) {
	cases := map[error]ErrorClass{
		ErrUnauthorized:                  ClassAuthorization,
		ErrInvalidLiquidityRequestOption: ClassValidation,
		&InvalidInputAmountError{}:       ClassValidation,
		ErrInvalidStakingDenom:           ClassValidation,
		&InsufficientBalanceError{}:      ClassResource,
		ErrMaxUndelegateAmountExceeded:   ClassResource,
		ErrValidatorIsInactive:           ClassResource,
		ErrLiquidityRequestIsActive:      ClassInvariant,
		ErrLiquidationInProgress:         ClassInvariant,
		ErrVaultNotFound:                 ClassNotFound,
		errors.New("boom"):               ClassInternal,
	}
	for err, want := range cases {
		if got := Classify(err); got != want {
			t.Errorf("Classify(%v) = %s, want %s", err, got, want)
		}
	}
}
