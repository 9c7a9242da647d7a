package vault

import (
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"

	"stakevault/core/types"
)

// Config is the per-vault configuration. Only Owner changes after creation.
type Config struct {
	Owner  string `json:"owner"`
	CodeID uint64 `json:"code_id"`
	Index  uint64 `json:"index"`
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// OptionKind identifies the liquidity request variant.
type OptionKind uint8

const (
	KindUnknown OptionKind = iota
	KindFixedTermRental
	KindFixedInterestRental
	KindFixedTermLoan
)

func (k OptionKind) String() string {
	switch k {
	case KindFixedTermRental:
		return "fixed_term_rental"
	case KindFixedInterestRental:
		return "fixed_interest_rental"
	case KindFixedTermLoan:
		return "fixed_term_loan"
	default:
		return "unknown"
	}
}

// FixedTermRental rents the vault's staking yield for Duration seconds.
type FixedTermRental struct {
	RequestedAmount types.Coin `json:"requested_amount"`
	Duration        uint64     `json:"duration"`
	CanCastVote     bool       `json:"can_cast_vote"`
}

// FixedInterestRental pays the lender up to ClaimableTokens out of claimed
// rewards, with no time bound.
type FixedInterestRental struct {
	RequestedAmount types.Coin   `json:"requested_amount"`
	ClaimableTokens *uint256.Int `json:"claimable_tokens"`
	CanCastVote     bool         `json:"can_cast_vote"`
}

// FixedTermLoan borrows RequestedAmount against CollateralAmount of bonded
// stake, repayable with InterestAmount before Duration elapses.
type FixedTermLoan struct {
	RequestedAmount  types.Coin   `json:"requested_amount"`
	InterestAmount   *uint256.Int `json:"interest_amount"`
	CollateralAmount *uint256.Int `json:"collateral_amount"`
	Duration         uint64       `json:"duration"`
}

// LiquidityRequestOption is the proposal an owner opens. Exactly one field is set.
type LiquidityRequestOption struct {
	FixedTermRental     *FixedTermRental     `json:"fixed_term_rental,omitempty"`
	FixedInterestRental *FixedInterestRental `json:"fixed_interest_rental,omitempty"`
	FixedTermLoan       *FixedTermLoan       `json:"fixed_term_loan,omitempty"`
}

// Kind returns the populated variant, or KindUnknown when zero or several are set.
func (o LiquidityRequestOption) Kind() OptionKind {
	kind, count := KindUnknown, 0
	if o.FixedTermRental != nil {
		kind, count = KindFixedTermRental, count+1
	}
	if o.FixedInterestRental != nil {
		kind, count = KindFixedInterestRental, count+1
	}
	if o.FixedTermLoan != nil {
		kind, count = KindFixedTermLoan, count+1
	}
	if count != 1 {
		return KindUnknown
	}
	return kind
}

// RequestedAmount returns the coin a lender must attach to accept.
func (o LiquidityRequestOption) RequestedAmount() types.Coin {
	switch o.Kind() {
	case KindFixedTermRental:
		return o.FixedTermRental.RequestedAmount.Clone()
	case KindFixedInterestRental:
		return o.FixedInterestRental.RequestedAmount.Clone()
	case KindFixedTermLoan:
		return o.FixedTermLoan.RequestedAmount.Clone()
	default:
		return types.Coin{}
	}
}

// MaxDuration bounds option durations so start plus duration always fits in
// a unix timestamp.
const MaxDuration = uint64(math.MaxInt64 / 2)

func validDuration(d uint64) error {
	if d == 0 {
		return invalidOption("duration must be positive")
	}
	if d > MaxDuration {
		return invalidOption("duration %d exceeds %d seconds", d, MaxDuration)
	}
	return nil
}

func invalidOption(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidLiquidityRequestOption, fmt.Sprintf(format, args...))
}

func isPositive(v *uint256.Int) bool { return v != nil && !v.IsZero() }

// Validate checks the variant invariants.
func (o LiquidityRequestOption) Validate() error {
	kind := o.Kind()
	if kind == KindUnknown {
		return invalidOption("exactly one option variant must be set")
	}
	requested := o.RequestedAmount()
	if strings.TrimSpace(requested.Denom) == "" {
		return invalidOption("requested amount denom required")
	}
	if requested.IsZero() {
		return invalidOption("requested amount must be positive")
	}
	switch kind {
	case KindFixedTermRental:
		if err := validDuration(o.FixedTermRental.Duration); err != nil {
			return err
		}
	case KindFixedInterestRental:
		if !isPositive(o.FixedInterestRental.ClaimableTokens) {
			return invalidOption("claimable tokens must be positive")
		}
	case KindFixedTermLoan:
		loan := o.FixedTermLoan
		if !isPositive(loan.CollateralAmount) {
			return invalidOption("collateral amount must be positive")
		}
		if err := validDuration(loan.Duration); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy.
func (o LiquidityRequestOption) Clone() LiquidityRequestOption {
	var out LiquidityRequestOption
	if o.FixedTermRental != nil {
		v := *o.FixedTermRental
		v.RequestedAmount = v.RequestedAmount.Clone()
		out.FixedTermRental = &v
	}
	if o.FixedInterestRental != nil {
		v := *o.FixedInterestRental
		v.RequestedAmount = v.RequestedAmount.Clone()
		v.ClaimableTokens = cloneAmount(v.ClaimableTokens)
		out.FixedInterestRental = &v
	}
	if o.FixedTermLoan != nil {
		v := *o.FixedTermLoan
		v.RequestedAmount = v.RequestedAmount.Clone()
		v.InterestAmount = cloneAmount(v.InterestAmount)
		v.CollateralAmount = cloneAmount(v.CollateralAmount)
		out.FixedTermLoan = &v
	}
	return out
}

// FixedTermRentalState tracks a running fixed-term rental.
type FixedTermRentalState struct {
	RequestedAmount types.Coin   `json:"requested_amount"`
	StartTime       int64        `json:"start_time"`
	LastClaimTime   int64        `json:"last_claim_time"`
	EndTime         int64        `json:"end_time"`
	AlreadyClaimed  *uint256.Int `json:"already_claimed"`
	CanCastVote     bool         `json:"can_cast_vote"`
}

// FixedInterestRentalState tracks a running interest rental.
type FixedInterestRentalState struct {
	RequestedAmount types.Coin   `json:"requested_amount"`
	StartTime       int64        `json:"start_time"`
	ClaimableTokens *uint256.Int `json:"claimable_tokens"`
	AlreadyClaimed  *uint256.Int `json:"already_claimed"`
	CanCastVote     bool         `json:"can_cast_vote"`
}

// FixedTermLoanState tracks a running loan and, after default, its liquidation.
type FixedTermLoanState struct {
	RequestedAmount       types.Coin   `json:"requested_amount"`
	InterestAmount        *uint256.Int `json:"interest_amount"`
	CollateralAmount      *uint256.Int `json:"collateral_amount"`
	StartTime             int64        `json:"start_time"`
	EndTime               int64        `json:"end_time"`
	AlreadyClaimed        *uint256.Int `json:"already_claimed"`
	ProcessingLiquidation bool         `json:"processing_liquidation"`
	LastLiquidationDate   *int64       `json:"last_liquidation_date,omitempty"`
	LiquidatedCollateral  *uint256.Int `json:"liquidated_collateral"`
}

// Debt is principal plus interest.
func (s *FixedTermLoanState) Debt() *uint256.Int {
	return new(uint256.Int).Add(s.RequestedAmount.AmountOrZero(), amountOrZero(s.InterestAmount))
}

// Outstanding is the part of the debt the lender has not recovered yet.
func (s *FixedTermLoanState) Outstanding() *uint256.Int {
	return saturatingSub(s.Debt(), amountOrZero(s.AlreadyClaimed))
}

// LiquidityRequestState mirrors the option variants with runtime bookkeeping.
type LiquidityRequestState struct {
	FixedTermRental     *FixedTermRentalState     `json:"fixed_term_rental,omitempty"`
	FixedInterestRental *FixedInterestRentalState `json:"fixed_interest_rental,omitempty"`
	FixedTermLoan       *FixedTermLoanState       `json:"fixed_term_loan,omitempty"`
}

// Kind returns the populated variant.
func (s *LiquidityRequestState) Kind() OptionKind {
	switch {
	case s == nil:
		return KindUnknown
	case s.FixedTermRental != nil:
		return KindFixedTermRental
	case s.FixedInterestRental != nil:
		return KindFixedInterestRental
	case s.FixedTermLoan != nil:
		return KindFixedTermLoan
	default:
		return KindUnknown
	}
}

// CanCastVote reports whether the lender may vote with the vault's stake.
func (s *LiquidityRequestState) CanCastVote() bool {
	switch s.Kind() {
	case KindFixedTermRental:
		return s.FixedTermRental.CanCastVote
	case KindFixedInterestRental:
		return s.FixedInterestRental.CanCastVote
	default:
		return false
	}
}

// Clone returns a deep copy.
func (s *LiquidityRequestState) Clone() *LiquidityRequestState {
	if s == nil {
		return nil
	}
	out := &LiquidityRequestState{}
	if s.FixedTermRental != nil {
		v := *s.FixedTermRental
		v.RequestedAmount = v.RequestedAmount.Clone()
		v.AlreadyClaimed = cloneAmount(v.AlreadyClaimed)
		out.FixedTermRental = &v
	}
	if s.FixedInterestRental != nil {
		v := *s.FixedInterestRental
		v.RequestedAmount = v.RequestedAmount.Clone()
		v.ClaimableTokens = cloneAmount(v.ClaimableTokens)
		v.AlreadyClaimed = cloneAmount(v.AlreadyClaimed)
		out.FixedInterestRental = &v
	}
	if s.FixedTermLoan != nil {
		v := *s.FixedTermLoan
		v.RequestedAmount = v.RequestedAmount.Clone()
		v.InterestAmount = cloneAmount(v.InterestAmount)
		v.CollateralAmount = cloneAmount(v.CollateralAmount)
		v.AlreadyClaimed = cloneAmount(v.AlreadyClaimed)
		v.LiquidatedCollateral = cloneAmount(v.LiquidatedCollateral)
		if v.LastLiquidationDate != nil {
			date := *v.LastLiquidationDate
			v.LastLiquidationDate = &date
		}
		out.FixedTermLoan = &v
	}
	return out
}

// ActiveOption is the single liquidity request slot of a vault. A pending
// option has neither lender nor state; an accepted one has both.
type ActiveOption struct {
	Lender string                 `json:"lender,omitempty"`
	State  *LiquidityRequestState `json:"state,omitempty"`
	Msg    LiquidityRequestOption `json:"msg"`
}

// IsPending reports whether the option still awaits a lender.
func (a *ActiveOption) IsPending() bool {
	return a != nil && a.Lender == "" && a.State == nil
}

// IsActive reports whether a lender has accepted the option.
func (a *ActiveOption) IsActive() bool {
	return a != nil && a.Lender != "" && a.State != nil
}

// Clone returns a deep copy.
func (a *ActiveOption) Clone() *ActiveOption {
	if a == nil {
		return nil
	}
	return &ActiveOption{Lender: a.Lender, State: a.State.Clone(), Msg: a.Msg.Clone()}
}

// newState stamps the runtime state for an option accepted at now.
func newState(option LiquidityRequestOption, now int64) *LiquidityRequestState {
	switch option.Kind() {
	case KindFixedTermRental:
		o := option.FixedTermRental
		return &LiquidityRequestState{FixedTermRental: &FixedTermRentalState{
			RequestedAmount: o.RequestedAmount.Clone(),
			StartTime:       now,
			LastClaimTime:   now,
			EndTime:         now + int64(o.Duration),
			AlreadyClaimed:  new(uint256.Int),
			CanCastVote:     o.CanCastVote,
		}}
	case KindFixedInterestRental:
		o := option.FixedInterestRental
		return &LiquidityRequestState{FixedInterestRental: &FixedInterestRentalState{
			RequestedAmount: o.RequestedAmount.Clone(),
			StartTime:       now,
			ClaimableTokens: cloneAmount(o.ClaimableTokens),
			AlreadyClaimed:  new(uint256.Int),
			CanCastVote:     o.CanCastVote,
		}}
	case KindFixedTermLoan:
		o := option.FixedTermLoan
		return &LiquidityRequestState{FixedTermLoan: &FixedTermLoanState{
			RequestedAmount:      o.RequestedAmount.Clone(),
			InterestAmount:       amountOrZero(o.InterestAmount),
			CollateralAmount:     cloneAmount(o.CollateralAmount),
			StartTime:            now,
			EndTime:              now + int64(o.Duration),
			AlreadyClaimed:       new(uint256.Int),
			LiquidatedCollateral: new(uint256.Int),
		}}
	default:
		return nil
	}
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return new(uint256.Int).Set(v)
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

func minAmount(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

func saturatingSub(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}
