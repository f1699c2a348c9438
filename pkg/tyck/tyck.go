// Package tyck implements the structural type-check descriptors used at the
// FFI boundary: the compile-time-derived plan that describes a guest-visible
// value's shape, and the per-parameter transfer discipline (FFIAction) that
// goes with it. Matching rules mirror the original T10 VM's tyck/fusion
// specialization lattice, collapsed into a single descriptor table per the
// design notes: no generic specialization, just one Match function.
package tyck

import "reflect"

// Kind distinguishes the three TypeCheckInfo variants.
type Kind uint8

const (
	KindSimple Kind = iota
	KindContainer
	KindBypass
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "Simple"
	case KindContainer:
		return "Container"
	case KindBypass:
		return "Bypass"
	default:
		return "?"
	}
}

// Info is a TypeCheckInfo plan: Simple(base), Container(base, elems...), or
// Bypass. Container identifiers are the "erased" container type (e.g. both
// []int64 and []string share the same Base when built via Container with a
// slice element type), differing only in Elems.
type Info struct {
	Kind  Kind
	Base  reflect.Type
	Elems []Info
}

// Simple builds a plan describing a scalar or opaque host type.
func Simple(t reflect.Type) Info {
	return Info{Kind: KindSimple, Base: t}
}

// Container builds a plan describing a parameterized container type. Passing
// no element plans yields a "generic" plan that accepts any element type.
func Container(t reflect.Type, elems ...Info) Info {
	return Info{Kind: KindContainer, Base: t, Elems: elems}
}

// Bypass builds the pass-through plan used for the opaque Value type, which
// matches (and is matched by) anything.
func Bypass() Info {
	return Info{Kind: KindBypass}
}

// Match reports whether the object's own plan (have) satisfies a declared
// parameter's plan (want). Matching is asymmetric for containers: a concrete
// Vec[int64] object is compatible with both a Vec[int64] and a generic Vec
// parameter, but a generic Vec object is only compatible with a generic Vec
// parameter.
func Match(have, want Info) bool {
	if have.Kind == KindBypass || want.Kind == KindBypass {
		return true
	}
	switch have.Kind {
	case KindSimple:
		return want.Kind == KindSimple && have.Base == want.Base
	case KindContainer:
		if want.Kind != KindContainer || have.Base != want.Base {
			return false
		}
		if len(want.Elems) == 0 {
			return true
		}
		if len(have.Elems) != len(want.Elems) {
			return false
		}
		for i := range have.Elems {
			if !Match(have.Elems[i], want.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Action is the ownership-transfer discipline for one FFI parameter or
// return value.
type Action uint8

const (
	ActionCopy Action = iota
	ActionMove
	ActionShare
	ActionMutShare
	ActionBypass
)

func (a Action) String() string {
	switch a {
	case ActionCopy:
		return "Copy"
	case ActionMove:
		return "Move"
	case ActionShare:
		return "Share"
	case ActionMutShare:
		return "MutShare"
	case ActionBypass:
		return "Bypass"
	default:
		return "?"
	}
}

// ParamSpec is the derived plan for one host-function parameter.
type ParamSpec struct {
	Plan     Info
	Action   Action
	Nullable bool
}

// ExceptionSpec records whether a return is fallible and, if so, the
// declared type of the host routine's error result. ffi.Bind accepts only
// the built-in error interface there, so ErrorKind is always that interface
// type and does not identify the concrete error a call returns.
type ExceptionSpec struct {
	Fallible  bool
	ErrorKind reflect.Type
}

// ReturnSpec is the derived plan for a host function's return value.
type ReturnSpec struct {
	Plan      Info
	Action    Action
	Exception ExceptionSpec
}
