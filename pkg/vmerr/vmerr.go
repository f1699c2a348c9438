// Package vmerr implements the error taxonomy that crosses the host/guest
// boundary: LifetimeError, TypeError, NullError, UncheckedException, and
// UserException, mirroring the original VM's TError enum (error.rs) as
// concrete Go error types rather than one closed sum type, so embedders can
// use errors.As against the specific kind they care about.
package vmerr

import (
	"fmt"
	"reflect"

	"github.com/kettlevm/kettlevm/pkg/heap"
	"github.com/kettlevm/kettlevm/pkg/tyck"
)

// LifetimeError reports that an FFI marshaling guard found a wrapper in a
// lifecycle state incompatible with the action the host signature demands,
// e.g. trying to Move a value already MovedToHost.
type LifetimeError struct {
	Required []heap.State
	Action   tyck.Action
	Actual   heap.State
	Extra    string
}

func (e *LifetimeError) Error() string {
	msg := fmt.Sprintf("lifetime error: performing %v requires state in %v, got %v", e.Action, e.Required, e.Actual)
	if e.Extra != "" {
		msg += ": " + e.Extra
	}
	return msg
}

// TypeError reports a structural type mismatch at the FFI boundary.
type TypeError struct {
	Required     reflect.Type
	Actual       reflect.Type
	RequiredName string
	ActualName   string
	Extra        string
}

func (e *TypeError) Error() string {
	reqName := e.RequiredName
	if reqName == "" && e.Required != nil {
		reqName = e.Required.String()
	}
	actName := e.ActualName
	if actName == "" && e.Actual != nil {
		actName = e.Actual.String()
	}
	msg := fmt.Sprintf("type error: expected %s, got %s", reqName, actName)
	if e.Extra != "" {
		msg += ": " + e.Extra
	}
	return msg
}

// NullError reports that a non-nullable FFI slot received null.
type NullError struct{}

func (e *NullError) Error() string { return "null error: non-nullable slot received null" }

// UncheckedException reports a VM-internal invariant violation: reaching
// UnreachableInsc, a debug-mode type confusion in an interpreter opcode, or
// similar programmer errors in the guest program itself (not the host).
type UncheckedException struct {
	Info string
}

func (e *UncheckedException) Error() string { return "unchecked exception: " + e.Info }

// UserException wraps an error a host routine deliberately returned as its
// fallible result.
type UserException struct {
	Err error
}

func (e *UserException) Error() string { return "user exception: " + e.Err.Error() }

func (e *UserException) Unwrap() error { return e.Err }
