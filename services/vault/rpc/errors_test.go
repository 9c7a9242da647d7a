package vaultrpc

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stakevault/core"
	nativecommon "stakevault/native/common"
	"stakevault/native/staking"
	"stakevault/native/vault"
)

func TestCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{vault.ErrUnauthorized, codes.PermissionDenied},
		{fmt.Errorf("wrap: %w", vault.ErrInvalidLiquidityRequestOption), codes.InvalidArgument},
		{&vault.InsufficientBalanceError{}, codes.ResourceExhausted},
		{vault.ErrLiquidityRequestIsActive, codes.FailedPrecondition},
		{vault.ErrVaultNotFound, codes.NotFound},
		{nativecommon.ErrModulePaused, codes.Unavailable},
		{core.ErrInvalidFunds, codes.InvalidArgument},
		{fmt.Errorf("dispatch 0: %w", staking.ErrInsufficientFunds), codes.ResourceExhausted},
		{staking.ErrValidatorInactive, codes.InvalidArgument},
		{status.Error(codes.Unauthenticated, "nope"), codes.Unauthenticated},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tc := range cases {
		if got := Code(tc.err); got != tc.want {
			t.Errorf("Code(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestToStatusHidesInternalErrors(t *testing.T) {
	st, _ := status.FromError(ToStatus(errors.New("secret path /var/db")))
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Fatalf("unexpected status %v", st)
	}
	st, _ = status.FromError(ToStatus(vault.ErrLiquidationInProgress))
	if st.Code() != codes.FailedPrecondition || st.Message() != vault.ErrLiquidationInProgress.Error() {
		t.Fatalf("unexpected status %v", st)
	}
	if HTTPStatus(codes.FailedPrecondition) != http.StatusConflict || HTTPStatus(codes.Unauthenticated) != http.StatusUnauthorized {
		t.Fatalf("unexpected http mapping")
	}
}
