package vault

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"stakevault/core/types"
	"stakevault/crypto"
	"stakevault/native/staking"
	"stakevault/storage"
)

const (
	bondDenom       = "ustake"
	loanDenom       = "uibc"
	unbondingPeriod = int64(21 * 24 * 3600)
	year            = uint64(365 * 24 * 3600)
	genesisTime     = int64(1_700_000_000)
)

func testAddr(name string) string {
	return crypto.NewAddress(crypto.AccountPrefix, ethcrypto.Keccak256([]byte(name))[:20]).String()
}

func testValidator(name string) string {
	return crypto.NewAddress(crypto.ValidatorPrefix, ethcrypto.Keccak256([]byte(name))[:20]).String()
}

var (
	ownerAddr    = testAddr("owner")
	lenderAddr   = testAddr("lender")
	strangerAddr = testAddr("stranger")
	valA         = testValidator("validator-a")
	valB         = testValidator("validator-b")
	valJailed    = testValidator("validator-jailed")
)

// harness plays the host: it moves attached funds, runs the engine against a
// write-buffered store and dispatches the returned instructions, undoing
// everything when any step fails.
type harness struct {
	t      *testing.T
	now    int64
	ledger *staking.Ledger
	db     *storage.MemDB
	engine *Engine
	vault  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		now:    genesisTime,
		ledger: staking.NewLedger(staking.Params{BondDenom: bondDenom, UnbondingPeriod: unbondingPeriod}),
		db:     storage.NewMemDB(),
		engine: NewEngine(),
		vault:  crypto.DeriveVaultAddress(ownerAddr, 1, 0).String(),
	}
	for _, v := range []staking.Validator{
		{Address: valA, Active: true},
		{Address: valB, Active: true},
		{Address: valJailed, Active: false},
	} {
		if err := h.ledger.AddValidator(v); err != nil {
			t.Fatalf("add validator: %v", err)
		}
	}
	h.engine.SetGateway(h.ledger)
	h.engine.SetNowFunc(func() int64 { return h.now })
	h.engine.SetState(NewStore(h.db))
	if _, err := h.engine.Instantiate(h.vault, Config{Owner: ownerAddr, CodeID: 1, Index: 0}); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return h
}

func (h *harness) mint(addr string, coins ...types.Coin) {
	h.t.Helper()
	if err := h.ledger.Mint(addr, coins); err != nil {
		h.t.Fatalf("mint: %v", err)
	}
}

func (h *harness) advance(seconds int64) {
	h.now += seconds
	h.ledger.MatureUnbonding(h.now)
}

func (h *harness) exec(sender string, funds types.Coins, msg ExecuteMsg) (*Response, error) {
	h.t.Helper()
	cache := storage.NewCacheDB(h.db)
	h.engine.SetState(NewStore(cache))
	defer h.engine.SetState(NewStore(h.db))

	snap, err := h.ledger.Snapshot()
	if err != nil {
		h.t.Fatalf("snapshot: %v", err)
	}
	fail := func(err error) (*Response, error) {
		cache.Discard()
		if restoreErr := h.ledger.Restore(snap); restoreErr != nil {
			h.t.Fatalf("restore: %v", restoreErr)
		}
		return nil, err
	}
	if len(funds) > 0 {
		if err := h.ledger.Send(sender, h.vault, funds); err != nil {
			return fail(err)
		}
	}
	resp, err := h.engine.Execute(h.vault, Info{Sender: sender, Funds: funds}, msg)
	if err != nil {
		return fail(err)
	}
	for _, m := range resp.Messages {
		if err := h.ledger.Dispatch(h.vault, m, h.now); err != nil {
			return fail(err)
		}
	}
	if err := cache.Commit(); err != nil {
		h.t.Fatalf("commit: %v", err)
	}
	h.ledger.DrainEvents()
	return resp, nil
}

func (h *harness) mustExec(sender string, funds types.Coins, msg ExecuteMsg) *Response {
	h.t.Helper()
	resp, err := h.exec(sender, funds, msg)
	if err != nil {
		h.t.Fatalf("execute %s: %v", msg.Action(), err)
	}
	return resp
}

func (h *harness) option() *ActiveOption {
	h.t.Helper()
	info, err := h.engine.Info(h.vault)
	if err != nil {
		h.t.Fatalf("info: %v", err)
	}
	return info.LiquidityRequest
}

func (h *harness) balance(addr, denom string) uint64 {
	return h.ledger.Balance(addr, denom).Uint64()
}

func (h *harness) addRewards(validator string, amount uint64) {
	h.ledger.AddRewards(h.vault, validator, uint256.NewInt(amount))
}

func open(option LiquidityRequestOption) ExecuteMsg {
	return ExecuteMsg{OpenLiquidityRequest: &OpenLiquidityRequestMsg{Option: option}}
}

var (
	acceptMsg    = ExecuteMsg{AcceptLiquidityRequest: &AcceptLiquidityRequestMsg{}}
	closeMsg     = ExecuteMsg{CloseLiquidityRequest: &CloseLiquidityRequestMsg{}}
	claimMsg     = ExecuteMsg{ClaimDelegatorRewards: &ClaimDelegatorRewardsMsg{}}
	repayMsg     = ExecuteMsg{RepayLoan: &RepayLoanMsg{}}
	liquidateMsg = ExecuteMsg{LiquidateCollateral: &LiquidateCollateralMsg{}}
)

func withdraw(coin types.Coin) ExecuteMsg {
	return ExecuteMsg{WithdrawBalance: &WithdrawBalanceMsg{Funds: coin}}
}

func amt(v uint64) *uint256.Int { return uint256.NewInt(v) }

func loanOption(requested, interest, collateral, duration uint64) LiquidityRequestOption {
	return LiquidityRequestOption{FixedTermLoan: &FixedTermLoan{
		RequestedAmount:  types.NewCoin(loanDenom, requested),
		InterestAmount:   amt(interest),
		CollateralAmount: amt(collateral),
		Duration:         duration,
	}}
}

func rentalOption(requested, duration uint64, canVote bool) LiquidityRequestOption {
	return LiquidityRequestOption{FixedTermRental: &FixedTermRental{
		RequestedAmount: types.NewCoin(loanDenom, requested),
		Duration:        duration,
		CanCastVote:     canVote,
	}}
}

func interestOption(requested, claimable uint64, canVote bool) LiquidityRequestOption {
	return LiquidityRequestOption{FixedInterestRental: &FixedInterestRental{
		RequestedAmount: types.NewCoin(loanDenom, requested),
		ClaimableTokens: amt(claimable),
		CanCastVote:     canVote,
	}}
}

// openAndAccept opens option as the owner and accepts it as the lender.
func (h *harness) openAndAccept(option LiquidityRequestOption) {
	h.t.Helper()
	h.mustExec(ownerAddr, nil, open(option))
	requested := option.RequestedAmount()
	h.mint(lenderAddr, requested)
	h.mustExec(lenderAddr, types.Coins{requested}, acceptMsg)
}
