package vmerr

import (
	"errors"
	"strings"
	"testing"

	"github.com/kettlevm/kettlevm/pkg/heap"
	"github.com/kettlevm/kettlevm/pkg/tyck"
)

func TestLifetimeErrorMessage(t *testing.T) {
	err := &LifetimeError{
		Required: []heap.State{heap.StateOwned},
		Action:   tyck.ActionMove,
		Actual:   heap.StateMovedToHost,
		Extra:    "cannot move a shared, already-moved, or dropped item",
	}
	msg := err.Error()
	if !strings.Contains(msg, "Move") || !strings.Contains(msg, "MovedToHost") {
		t.Fatalf("message missing key details: %q", msg)
	}
	if !strings.Contains(msg, "cannot move") {
		t.Fatalf("message missing Extra: %q", msg)
	}
}

func TestNullErrorMessage(t *testing.T) {
	if (&NullError{}).Error() == "" {
		t.Fatalf("NullError.Error() returned empty string")
	}
}

func TestUserExceptionUnwraps(t *testing.T) {
	inner := errors.New("boom")
	wrapped := &UserException{Err: inner}
	if !errors.Is(wrapped, inner) {
		t.Fatalf("errors.Is did not see through UserException.Unwrap")
	}
}

func TestTypeErrorMessageUsesNamesWhenProvided(t *testing.T) {
	err := &TypeError{RequiredName: "Counter", ActualName: "string"}
	msg := err.Error()
	if !strings.Contains(msg, "Counter") || !strings.Contains(msg, "string") {
		t.Fatalf("message = %q, want it to mention both type names", msg)
	}
}
