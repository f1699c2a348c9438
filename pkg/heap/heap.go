// Package heap implements the wrapper protocol around guest-visible,
// non-primitive values: a type-erased handle (Object) carrying a lifecycle
// state plus a small vtable that knows how to read, borrow, or move out the
// concrete Go value underneath. It is the Go analogue of the original VM's
// DynBase trait object and its Ptr/GcInfo pairing, expressed with reflect
// instead of unsafe pointers and atomics since a single kettlevm instance
// never shares its heap across goroutines (see SPEC_FULL.md §5).
package heap

import (
	"fmt"
	"reflect"

	"github.com/kettlevm/kettlevm/pkg/tyck"
)

// State is the lifecycle state of a wrapper, following spec.md's own naming
// rather than the original's GcInfo (which varies across the original's
// files: OnVMStack/OnVMHeap in some, OnVMHeap/SharedWithHost/... in others).
type State uint8

const (
	StateStack State = iota
	StateOwned
	StateSharedWithHost
	StateMutSharedWithHost
	StateMovedToHost
	StateDropped
	StateNull
)

func (s State) String() string {
	switch s {
	case StateStack:
		return "Stack"
	case StateOwned:
		return "Owned"
	case StateSharedWithHost:
		return "SharedWithHost"
	case StateMutSharedWithHost:
		return "MutSharedWithHost"
	case StateMovedToHost:
		return "MovedToHost"
	case StateDropped:
		return "Dropped"
	case StateNull:
		return "Null"
	default:
		return "?"
	}
}

// vtable is implemented once, generically, by reflectBox: it knows how to
// produce a value copy, a borrowed pointer, or move the owned payload out,
// without the rest of the package needing a Go type parameter for T.
type vtable interface {
	typeID() reflect.Type
	value() reflect.Value
	pointer() reflect.Value
	moveOut(dest reflect.Value)
}

// reflectBox holds either an owned copy of a value (addressable, so it can
// be moved out or mutated in place) or a borrowed pointer into host memory.
// At most one of the two is set at a time; neither is set once the owned
// payload has been moved out.
type reflectBox struct {
	t        reflect.Type
	owned    reflect.Value // addressable Elem() of a reflect.New(t), or invalid
	borrowed reflect.Value // a *T pointing into host memory, or invalid
}

func (b *reflectBox) typeID() reflect.Type { return b.t }

func (b *reflectBox) value() reflect.Value {
	if b.owned.IsValid() {
		return b.owned
	}
	return b.borrowed.Elem()
}

func (b *reflectBox) pointer() reflect.Value {
	if b.borrowed.IsValid() {
		return b.borrowed
	}
	return b.owned.Addr()
}

func (b *reflectBox) moveOut(dest reflect.Value) {
	dest.Set(b.owned)
	b.owned = reflect.Value{}
}

// Object is the heap wrapper the guest's Value.Object() exposes. It never
// moves, never gets collected (SPEC_FULL.md §13: no garbage collector), and
// is otherwise exactly the state machine spec.md §3 describes.
type Object struct {
	state State
	vt    vtable
}

// Owned wraps a value the VM heap allocates and owns outright.
func Owned(t reflect.Type, v reflect.Value) *Object {
	ptr := reflect.New(t)
	ptr.Elem().Set(v)
	return &Object{state: StateOwned, vt: &reflectBox{t: t, owned: ptr.Elem()}}
}

// Shared wraps an immutable borrow into host-owned memory.
func Shared(t reflect.Type, ptr reflect.Value) *Object {
	return &Object{state: StateSharedWithHost, vt: &reflectBox{t: t, borrowed: ptr}}
}

// MutShared wraps a mutable borrow into host-owned memory.
func MutShared(t reflect.Type, ptr reflect.Value) *Object {
	return &Object{state: StateMutSharedWithHost, vt: &reflectBox{t: t, borrowed: ptr}}
}

// NewOwned is a generic convenience constructor for call sites (chiefly
// tests and the embedder) that know T at compile time.
func NewOwned[T any](v T) *Object {
	return Owned(reflect.TypeOf(v), reflect.ValueOf(v))
}

// NewShared is the generic convenience form of Shared.
func NewShared[T any](v *T) *Object {
	var zero T
	return Shared(reflect.TypeOf(zero), reflect.ValueOf(v))
}

// NewMutShared is the generic convenience form of MutShared.
func NewMutShared[T any](v *T) *Object {
	var zero T
	return MutShared(reflect.TypeOf(zero), reflect.ValueOf(v))
}

// TypeID returns the erased Go type the wrapper holds.
func (o *Object) TypeID() reflect.Type { return o.vt.typeID() }

// TypeName returns a printable name for the wrapped type, used in error
// messages and the disassembler.
func (o *Object) TypeName() string { return o.vt.typeID().String() }

// TyckInfo returns this object's own structural plan: always
// Simple(TypeID()). A wrapper never reports a Container plan, so it matches
// only Simple parameter plans of its exact type (or Bypass).
func (o *Object) TyckInfo() tyck.Info { return tyck.Simple(o.vt.typeID()) }

// TypeCheck reports whether this object's own plan satisfies the given
// parameter plan, per tyck.Match's asymmetric matching rules.
func (o *Object) TypeCheck(plan tyck.Info) bool { return tyck.Match(o.TyckInfo(), plan) }

// State returns the wrapper's current lifecycle state.
func (o *Object) State() State { return o.state }

// SetState forcibly transitions the wrapper's lifecycle state. Called by the
// FFI marshaling layer's lifetime guards, never by guest-visible opcodes.
func (o *Object) SetState(s State) { o.state = s }

// Value returns a reflect.Value holding a readable copy of (or reference to)
// the wrapped payload. Used for Copy marshaling.
func (o *Object) Value() reflect.Value { return o.vt.value() }

// Pointer returns a reflect.Value of type *T pointing at the wrapped
// payload. Used for Share/MutShare marshaling, where the host receives the
// pointer itself.
func (o *Object) Pointer() reflect.Value { return o.vt.pointer() }

// MoveOut transfers the owned payload into dest (an addressable reflect.Value
// of the object's element type) and advances the wrapper to MovedToHost.
// This is the unchecked variant: callers (the FFI guard construction) are
// expected to have already verified State() == Owned.
func (o *Object) MoveOut(dest reflect.Value) {
	o.vt.moveOut(dest)
	o.state = StateMovedToHost
}

// MoveOutChecked is MoveOut's debug-mode sibling: it panics instead of
// corrupting the wrapper when the precondition is violated, matching the
// original's debug_assert! on move_out's entry state.
func (o *Object) MoveOutChecked(dest reflect.Value) {
	if o.state != StateOwned {
		panic(fmt.Sprintf("heap: move_out precondition violated: state is %v, want Owned", o.state))
	}
	o.MoveOut(dest)
}
