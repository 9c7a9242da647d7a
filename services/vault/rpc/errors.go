package vaultrpc

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stakevault/core"
	"stakevault/native/staking"
	"stakevault/native/vault"
)

// Code maps an engine, ledger or host error onto a gRPC status code.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return st.Code()
	}
	switch {
	case errors.Is(err, core.ErrInvalidFunds):
		return codes.InvalidArgument
	case errors.Is(err, staking.ErrInsufficientFunds),
		errors.Is(err, staking.ErrInsufficientDelegation):
		return codes.ResourceExhausted
	case errors.Is(err, staking.ErrInvalidAmount),
		errors.Is(err, staking.ErrInvalidDenom),
		errors.Is(err, staking.ErrUnknownValidator),
		errors.Is(err, staking.ErrValidatorInactive),
		errors.Is(err, staking.ErrInvalidVote):
		return codes.InvalidArgument
	}
	switch vault.Classify(err) {
	case vault.ClassAuthorization:
		return codes.PermissionDenied
	case vault.ClassValidation:
		return codes.InvalidArgument
	case vault.ClassResource:
		return codes.ResourceExhausted
	case vault.ClassInvariant:
		return codes.FailedPrecondition
	case vault.ClassNotFound:
		return codes.NotFound
	case vault.ClassUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status error. Internal failures are not
// described to the caller.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := Code(err)
	if code == codes.Internal {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

// HTTPStatus maps a gRPC code onto the equivalent HTTP status.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted, codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
