// Package value implements the tagged Value word that every VM register
// slot holds: either an inline primitive (int, float, char, byte, bool) or a
// pointer into the guest heap, distinguishable without dereferencing,
// mirroring the original VM's tagged Value/ValueData union (data.rs) without
// resorting to unsafe unions — Go structs with a discriminant field do the
// same job and stay memory-safe.
package value

import (
	"math"
	"reflect"

	"github.com/kettlevm/kettlevm/pkg/heap"
)

// Kind discriminates the inline-primitive cases from the heap-pointer case.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindChar
	KindByte
	KindBool
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindChar:
		return "Char"
	case KindByte:
		return "Byte"
	case KindBool:
		return "Bool"
	case KindPointer:
		return "Pointer"
	default:
		return "?"
	}
}

var (
	intType   = reflect.TypeOf(int64(0))
	floatType = reflect.TypeOf(float64(0))
	charType  = reflect.TypeOf(rune(0))
	byteType  = reflect.TypeOf(byte(0))
	boolType  = reflect.TypeOf(false)
)

// Value is one VM register slot. The zero Value is Null.
type Value struct {
	kind Kind
	null bool // set by NullOf: a typed null carrying an inline kind
	bits uint64
	obj  *heap.Object
}

// Null returns the null value of no particular inline type.
func Null() Value { return Value{kind: KindNull} }

// NullOf returns the null value tagged with an inline primitive kind, as the
// original's null_value_type constructor does: a null int is still
// distinguishable from a null float without consulting a pointer.
func NullOf(k Kind) Value { return Value{kind: k, null: true, bits: 0} }

// FromInt64 wraps a 64-bit integer.
func FromInt64(v int64) Value { return Value{kind: KindInt, bits: uint64(v)} }

// FromFloat64 wraps a 64-bit float.
func FromFloat64(v float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(v)} }

// FromChar wraps a rune.
func FromChar(v rune) Value { return Value{kind: KindChar, bits: uint64(v)} }

// FromByte wraps a single byte.
func FromByte(v byte) Value { return Value{kind: KindByte, bits: uint64(v)} }

// FromBool wraps a boolean.
func FromBool(v bool) Value {
	var b uint64
	if v {
		b = 1
	}
	return Value{kind: KindBool, bits: b}
}

// FromObject wraps a heap pointer. A nil object produces Null.
func FromObject(obj *heap.Object) Value {
	if obj == nil {
		return Null()
	}
	return Value{kind: KindPointer, obj: obj}
}

// IsNull reports whether the slot is null, whether that's an untyped Null,
// a typed-null inline primitive, or a heap pointer whose wrapper has been
// dropped or is itself in the Null state.
func (v Value) IsNull() bool {
	if v.kind == KindPointer {
		if v.obj == nil {
			return true
		}
		st := v.obj.State()
		return st == heap.StateNull || st == heap.StateDropped
	}
	return v.kind == KindNull || v.null
}

// IsInlinePrimitive reports whether the slot holds a primitive directly,
// with no heap indirection.
func (v Value) IsInlinePrimitive() bool {
	if v.null {
		return false
	}
	switch v.kind {
	case KindInt, KindFloat, KindChar, KindByte, KindBool:
		return true
	default:
		return false
	}
}

// IsHeapPointer reports whether the slot holds a pointer into the guest
// heap.
func (v Value) IsHeapPointer() bool { return v.kind == KindPointer }

// Kind returns the slot's discriminant.
func (v Value) Kind() Kind { return v.kind }

// Int returns the inline integer payload. Undefined if Kind() != KindInt.
func (v Value) Int() int64 { return int64(v.bits) }

// Float returns the inline float payload. Undefined if Kind() != KindFloat.
func (v Value) Float() float64 { return math.Float64frombits(v.bits) }

// Char returns the inline rune payload. Undefined if Kind() != KindChar.
func (v Value) Char() rune { return rune(v.bits) }

// Byte returns the inline byte payload. Undefined if Kind() != KindByte.
func (v Value) Byte() byte { return byte(v.bits) }

// Bool returns the inline boolean payload. Undefined if Kind() != KindBool.
func (v Value) Bool() bool { return v.bits != 0 }

// Object returns the wrapped heap pointer, or nil if this slot is not a
// pointer.
func (v Value) Object() *heap.Object {
	if v.kind != KindPointer {
		return nil
	}
	return v.obj
}

// TypeID returns the reflect identity of the slot's runtime type, usable
// without dereferencing a heap pointer for inline primitives and by
// delegating to the wrapper's own vtable for pointers.
func (v Value) TypeID() reflect.Type {
	switch v.kind {
	case KindInt:
		return intType
	case KindFloat:
		return floatType
	case KindChar:
		return charType
	case KindByte:
		return byteType
	case KindBool:
		return boolType
	case KindPointer:
		if v.obj == nil {
			return nil
		}
		return v.obj.TypeID()
	default:
		return nil
	}
}

// LifecycleState returns the slot's lifecycle state: Stack for inline
// primitives (they are never heap-managed), or the wrapper's own state for
// pointers.
func (v Value) LifecycleState() heap.State {
	if v.kind == KindPointer {
		if v.obj == nil {
			return heap.StateNull
		}
		return v.obj.State()
	}
	return heap.StateStack
}

// AsRef extracts a read-only pointer to the wrapped payload of type T. It
// reports false if the slot isn't a heap pointer or T doesn't match the
// wrapped type.
func AsRef[T any](v Value) (*T, bool) {
	obj := v.Object()
	if obj == nil {
		return nil, false
	}
	var zero T
	if obj.TypeID() != reflect.TypeOf(zero) {
		return nil, false
	}
	ptr := obj.Pointer().Interface().(*T)
	return ptr, true
}
