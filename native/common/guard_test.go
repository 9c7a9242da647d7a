package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	pauses := NewStaticPauses("vault")
	if err := Guard(pauses, "vault"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(pauses, "staking"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pauses.Set("VAULT", false)
	if err := Guard(pauses, "vault"); err != nil {
		t.Fatalf("expected unpaused, got %v", err)
	}
	if err := Guard(nil, "vault"); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
}
