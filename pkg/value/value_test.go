package value

import (
	"testing"

	"github.com/kettlevm/kettlevm/pkg/heap"
)

func TestInlinePrimitiveRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"int", FromInt64(42), KindInt},
		{"float", FromFloat64(3.5), KindFloat},
		{"char", FromChar('x'), KindChar},
		{"byte", FromByte(0xAB), KindByte},
		{"bool true", FromBool(true), KindBool},
		{"bool false", FromBool(false), KindBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Fatalf("Kind() = %v, want %v", tt.v.Kind(), tt.kind)
			}
			if !tt.v.IsInlinePrimitive() {
				t.Fatalf("IsInlinePrimitive() = false, want true")
			}
			if tt.v.IsHeapPointer() {
				t.Fatalf("IsHeapPointer() = true, want false")
			}
			if tt.v.LifecycleState() != heap.StateStack {
				t.Fatalf("LifecycleState() = %v, want Stack", tt.v.LifecycleState())
			}
		})
	}

	if FromInt64(7).Int() != 7 {
		t.Errorf("Int() round trip failed")
	}
	if FromFloat64(2.25).Float() != 2.25 {
		t.Errorf("Float() round trip failed")
	}
	if FromChar('z').Char() != 'z' {
		t.Errorf("Char() round trip failed")
	}
	if FromByte(9).Byte() != 9 {
		t.Errorf("Byte() round trip failed")
	}
	if !FromBool(true).Bool() {
		t.Errorf("Bool() round trip failed")
	}
}

func TestNullValues(t *testing.T) {
	if !Null().IsNull() {
		t.Errorf("Null().IsNull() = false, want true")
	}
	if Null().Kind() != KindNull {
		t.Errorf("Null().Kind() = %v, want KindNull", Null().Kind())
	}
	if !NullOf(KindInt).IsNull() {
		t.Errorf("NullOf(KindInt).IsNull() = false, want true")
	}
	if NullOf(KindInt).Kind() != KindInt {
		t.Errorf("NullOf(KindInt).Kind() = %v, want KindInt", NullOf(KindInt).Kind())
	}
	if FromObject(nil).Kind() != KindNull {
		t.Errorf("FromObject(nil).Kind() = %v, want KindNull", FromObject(nil).Kind())
	}
}

func TestFromObjectAndPointerState(t *testing.T) {
	obj := heap.NewOwned(42)
	v := FromObject(obj)

	if !v.IsHeapPointer() {
		t.Fatalf("IsHeapPointer() = false, want true")
	}
	if v.IsNull() {
		t.Fatalf("IsNull() = true, want false for an Owned object")
	}
	if v.LifecycleState() != heap.StateOwned {
		t.Fatalf("LifecycleState() = %v, want Owned", v.LifecycleState())
	}
	if v.Object() != obj {
		t.Fatalf("Object() did not return the wrapped pointer")
	}

	obj.SetState(heap.StateDropped)
	if !v.IsNull() {
		t.Fatalf("IsNull() = false, want true once the wrapper is Dropped")
	}
}

func TestAsRef(t *testing.T) {
	obj := heap.NewOwned("hello")
	v := FromObject(obj)

	ptr, ok := AsRef[string](v)
	if !ok {
		t.Fatalf("AsRef[string] failed to match")
	}
	if *ptr != "hello" {
		t.Errorf("AsRef[string] = %q, want %q", *ptr, "hello")
	}

	if _, ok := AsRef[int](v); ok {
		t.Errorf("AsRef[int] matched a string-typed object")
	}

	if _, ok := AsRef[string](FromInt64(1)); ok {
		t.Errorf("AsRef[string] matched a non-pointer Value")
	}
}

func TestTypeID(t *testing.T) {
	if FromInt64(1).TypeID() != intType {
		t.Errorf("TypeID() for int mismatched")
	}
	obj := heap.NewOwned(1.0)
	v := FromObject(obj)
	if v.TypeID() != obj.TypeID() {
		t.Errorf("TypeID() for pointer did not delegate to wrapper")
	}
}
