package staking

import "errors"

var (
	ErrInvalidAmount          = errors.New("staking: amount must be positive")
	ErrInvalidDenom           = errors.New("staking: invalid denom")
	ErrInsufficientFunds      = errors.New("staking: insufficient funds")
	ErrUnknownValidator       = errors.New("staking: unknown validator")
	ErrValidatorInactive      = errors.New("staking: validator inactive")
	ErrInsufficientDelegation = errors.New("staking: insufficient delegation")
	ErrInvalidVote            = errors.New("staking: invalid vote")
	ErrUnknownMsg             = errors.New("staking: unknown message")
)
