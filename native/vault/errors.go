package vault

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"stakevault/core/types"
	nativecommon "stakevault/native/common"
)

var (
	ErrUnauthorized                  = errors.New("vault: unauthorized")
	ErrInvalidLiquidityRequestOption = errors.New("vault: invalid liquidity request option")
	ErrInvalidInputAmount            = errors.New("vault: invalid input amount")
	ErrInvalidStakingDenom           = errors.New("vault: invalid staking denom")
	ErrInsufficientBalance           = errors.New("vault: insufficient balance")
	ErrMaxUndelegateAmountExceeded   = errors.New("vault: max undelegate amount exceeded")
	ErrValidatorIsInactive           = errors.New("vault: validator is inactive")
	ErrLiquidityRequestIsActive      = errors.New("vault: liquidity request is active")

	ErrNoLiquidityRequest    = errors.New("vault: no liquidity request")
	ErrNotFixedTermLoan      = errors.New("vault: liquidity request is not a fixed term loan")
	ErrLoanNotExpired        = errors.New("vault: loan has not expired")
	ErrLiquidationInProgress = errors.New("vault: liquidation in progress")
	ErrInvalidAmount         = errors.New("vault: amount must be positive")
	ErrInvalidAddress        = errors.New("vault: invalid address")
	ErrInvalidMessage        = errors.New("vault: message must set exactly one action")
	ErrVaultNotFound         = errors.New("vault: vault not found")
	ErrVaultExists           = errors.New("vault: vault already exists")

	errNilState   = errors.New("vault: state not configured")
	errNilGateway = errors.New("vault: gateway not configured")
)

// InvalidInputAmountError reports funds attached to an acceptance that differ
// from the requested amount.
type InvalidInputAmountError struct {
	Required types.Coin
	Received types.Coins
}

func (e *InvalidInputAmountError) Error() string {
	return fmt.Sprintf("%s: required %s, received %q", ErrInvalidInputAmount, e.Required, e.Received.String())
}

func (e *InvalidInputAmountError) Unwrap() error { return ErrInvalidInputAmount }

// InsufficientBalanceError reports a vault balance below what an operation needs.
type InsufficientBalanceError struct {
	Required  types.Coin
	Available types.Coin
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: required %s, available %s", ErrInsufficientBalance, e.Required, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// MaxUndelegateAmountExceededError reports an undelegation or redelegation
// larger than the bonded stake at the source validator.
type MaxUndelegateAmountExceededError struct {
	Requested *uint256.Int
	Max       *uint256.Int
}

func (e *MaxUndelegateAmountExceededError) Error() string {
	return fmt.Sprintf("%s: requested %s, max %s", ErrMaxUndelegateAmountExceeded, e.Requested.Dec(), e.Max.Dec())
}

func (e *MaxUndelegateAmountExceededError) Unwrap() error { return ErrMaxUndelegateAmountExceeded }

// ErrorClass groups errors by how a caller should react to them.
type ErrorClass string

const (
	ClassNone          ErrorClass = ""
	ClassAuthorization ErrorClass = "authorization"
	ClassValidation    ErrorClass = "validation"
	ClassResource      ErrorClass = "resource"
	ClassInvariant     ErrorClass = "invariant"
	ClassNotFound      ErrorClass = "not_found"
	ClassUnavailable   ErrorClass = "unavailable"
	ClassInternal      ErrorClass = "internal"
)

// Classify maps err onto the error taxonomy.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrUnauthorized):
		return ClassAuthorization
	case errors.Is(err, ErrInvalidLiquidityRequestOption),
		errors.Is(err, ErrInvalidInputAmount),
		errors.Is(err, ErrInvalidStakingDenom),
		errors.Is(err, ErrNotFixedTermLoan),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrInvalidMessage):
		return ClassValidation
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrMaxUndelegateAmountExceeded),
		errors.Is(err, ErrValidatorIsInactive),
		errors.Is(err, ErrLoanNotExpired):
		return ClassResource
	case errors.Is(err, ErrLiquidityRequestIsActive),
		errors.Is(err, ErrNoLiquidityRequest),
		errors.Is(err, ErrLiquidationInProgress),
		errors.Is(err, ErrVaultExists):
		return ClassInvariant
	case errors.Is(err, ErrVaultNotFound):
		return ClassNotFound
	case errors.Is(err, nativecommon.ErrModulePaused):
		return ClassUnavailable
	default:
		return ClassInternal
	}
}
