package heap

import (
	"reflect"
	"testing"
)

func TestOwnedLifecycle(t *testing.T) {
	obj := NewOwned(10)
	if obj.State() != StateOwned {
		t.Fatalf("State() = %v, want Owned", obj.State())
	}
	if obj.Value().Interface().(int) != 10 {
		t.Fatalf("Value() = %v, want 10", obj.Value().Interface())
	}
	if obj.TypeID() != reflect.TypeOf(0) {
		t.Fatalf("TypeID() mismatched")
	}
}

func TestMoveOutTransitionsToMovedToHost(t *testing.T) {
	obj := NewOwned("payload")
	dest := reflect.New(reflect.TypeOf("")).Elem()

	obj.MoveOut(dest)

	if obj.State() != StateMovedToHost {
		t.Fatalf("State() after MoveOut = %v, want MovedToHost", obj.State())
	}
	if dest.Interface().(string) != "payload" {
		t.Fatalf("MoveOut did not transfer the payload, got %q", dest.Interface())
	}
}

func TestMoveOutCheckedPanicsWhenNotOwned(t *testing.T) {
	obj := NewOwned(5)
	obj.SetState(StateSharedWithHost)

	defer func() {
		if recover() == nil {
			t.Fatalf("MoveOutChecked did not panic when state was not Owned")
		}
	}()

	dest := reflect.New(reflect.TypeOf(0)).Elem()
	obj.MoveOutChecked(dest)
}

func TestSharedAndMutSharedBorrowSameMemory(t *testing.T) {
	n := 7
	shared := NewShared(&n)
	if shared.State() != StateSharedWithHost {
		t.Fatalf("State() = %v, want SharedWithHost", shared.State())
	}
	ptr := shared.Pointer().Interface().(*int)
	*ptr = 99
	if n != 99 {
		t.Fatalf("Shared did not borrow the original variable's memory, got n = %d", n)
	}

	mut := NewMutShared(&n)
	if mut.State() != StateMutSharedWithHost {
		t.Fatalf("State() = %v, want MutSharedWithHost", mut.State())
	}
	if mut.Pointer().Interface().(*int) != &n {
		t.Fatalf("MutShared did not borrow the original variable's memory")
	}
}

func TestTypeCheckMatchesOnlyOwnType(t *testing.T) {
	obj := NewOwned(3.14)
	if !obj.TypeCheck(obj.TyckInfo()) {
		t.Fatalf("TypeCheck against its own plan should always succeed")
	}

	other := NewOwned("mismatch")
	if obj.TypeCheck(other.TyckInfo()) {
		t.Fatalf("TypeCheck matched a plan for a different concrete type")
	}
}
