// Package program implements the compiled program model: function and
// host-function tables shared by both instruction encodings, and the
// variant-record (in-memory) instruction form. Grounded on the original VM's
// turbofan generation (turbofan/rd93/insc.rs for the variant-record form,
// turbofan/r15_300 for the packed form this package's sibling file
// implements) — not the early rd93 bring-up core, which this repository does
// not port (see DESIGN.md).
package program

import (
	"github.com/kettlevm/kettlevm/pkg/tyck"
	"github.com/kettlevm/kettlevm/pkg/value"
)

// FunctionEntry describes one guest function: where its code starts, how
// many arguments/returns it takes, and how large a stack frame it needs.
type FunctionEntry struct {
	Name        string
	EntryOffset uint32
	ArgCount    uint32
	ReturnCount uint32
	FrameSize   uint32
}

// HostFuncEntry describes one host function bindable into FFICall
// instructions: its derived parameter/return plans, matching spec.md §6's
// host-function descriptor.
type HostFuncEntry struct {
	Name     string
	Params   []tyck.ParamSpec
	Return   tyck.ReturnSpec
	Callable HostCallable
}

// HostCallable is the narrow interface pkg/ffi's HostFunc satisfies; kept
// here (rather than importing pkg/ffi directly into the instruction types)
// so that pkg/program's dependency surface stays limited to the data model.
type HostCallable interface {
	Call(args []value.Value, rets []value.Value) error
}

// Insc is the variant-record instruction sum type. Every concrete
// instruction implements it via a zero-cost marker method, the same pattern
// the teacher's RTL Operation/Instruction interfaces use.
type Insc interface {
	implInsc()
}

type MakeIntConst struct {
	Const int64
	Dest  uint32
}

type IntAdd struct{ Lhs, Rhs, Dest uint32 }

type IntSub struct{ Lhs, Rhs, Dest uint32 }

type IntEq struct{ Lhs, Rhs, Dest uint32 }

type IntGt struct{ Lhs, Rhs, Dest uint32 }

type Incr struct{ Slot uint32 }

type Jump struct{ Target uint32 }

type JumpIfTrue struct {
	Cond   uint32
	Target uint32
}

type FuncCall struct {
	FuncID uint32
	Args   []uint32
	Rets   []uint32
}

type FFICall struct {
	FuncID uint32
	Args   []uint32
	Rets   []uint32
}

type ReturnOne struct{ Slot uint32 }

type ReturnMultiple struct{ Slots []uint32 }

type ReturnNothing struct{}

type UnreachableInsc struct{}

func (MakeIntConst) implInsc()    {}
func (IntAdd) implInsc()          {}
func (IntSub) implInsc()          {}
func (IntEq) implInsc()           {}
func (IntGt) implInsc()           {}
func (Incr) implInsc()            {}
func (Jump) implInsc()            {}
func (JumpIfTrue) implInsc()      {}
func (FuncCall) implInsc()        {}
func (FFICall) implInsc()         {}
func (ReturnOne) implInsc()       {}
func (ReturnMultiple) implInsc()  {}
func (ReturnNothing) implInsc()   {}
func (UnreachableInsc) implInsc() {}

// CompiledProgram is the variant-record encoding of a whole compiled unit:
// an in-memory instruction slice indexed by integer offset, plus the
// function and host-function tables.
type CompiledProgram struct {
	Instructions []Insc
	Functions    []FunctionEntry
	HostFuncs    []HostFuncEntry
}
