// Package vm implements the register-based bytecode interpreter: the
// dispatch loop over the variant-record and packed instruction encodings,
// and the run_func entry point spec.md §6 describes. Grounded on the
// original VM's turbofan::rd93::RD93::run_func (variant form, in this
// file) and turbofan::r15_300::R15_300::run_func (packed form, in
// packed.go).
package vm

import (
	"fmt"

	"github.com/kettlevm/kettlevm/pkg/program"
	"github.com/kettlevm/kettlevm/pkg/stack"
	"github.com/kettlevm/kettlevm/pkg/value"
	"github.com/kettlevm/kettlevm/pkg/vmerr"
)

// Options tunes the interpreter. Debug mirrors the original's
// #[cfg(debug_assertions)] gate as a runtime toggle: Go has no zero-cost
// compile-time assertion elision, so the extra operand-kind checks it
// enables are a plain branch rather than a build-tag split.
type Options struct {
	Debug bool
}

func requireInt(opts Options, v value.Value, context string) error {
	if opts.Debug && (!v.IsInlinePrimitive() || v.Kind() != value.KindInt) {
		return &vmerr.UncheckedException{Info: fmt.Sprintf("%s: expected an inline Int value, got %v", context, v.Kind())}
	}
	return nil
}

func requireBool(opts Options, v value.Value, context string) error {
	if opts.Debug && (!v.IsInlinePrimitive() || v.Kind() != value.KindBool) {
		return &vmerr.UncheckedException{Info: fmt.Sprintf("%s: expected an inline Bool value, got %v", context, v.Kind())}
	}
	return nil
}

// RunFunc executes a compiled function using the variant-record instruction
// encoding, returning its declared return-value slots.
func RunFunc(prog *program.CompiledProgram, funcID uint32, args []value.Value, opts Options) ([]value.Value, error) {
	if int(funcID) >= len(prog.Functions) {
		return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("run_func: no such function %d", funcID)}
	}
	fn := prog.Functions[funcID]
	if uint32(len(args)) != fn.ArgCount {
		return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("run_func: %s expects %d args, got %d", fn.Name, fn.ArgCount, len(args))}
	}

	st := stack.New()
	slice := st.EnterExternal(fn.FrameSize, args)
	ip := fn.EntryOffset

	for {
		if int(ip) >= len(prog.Instructions) {
			return nil, &vmerr.UncheckedException{Info: "run_func: instruction pointer ran off the end of the program"}
		}
		insc := prog.Instructions[ip]

		switch i := insc.(type) {
		case program.MakeIntConst:
			slice.Set(i.Dest, value.FromInt64(i.Const))
			ip++

		case program.IntAdd:
			lhs, rhs := slice.Get(i.Lhs), slice.Get(i.Rhs)
			if err := requireInt(opts, lhs, "IntAdd"); err != nil {
				return nil, err
			}
			if err := requireInt(opts, rhs, "IntAdd"); err != nil {
				return nil, err
			}
			slice.Set(i.Dest, value.FromInt64(lhs.Int()+rhs.Int()))
			ip++

		case program.IntSub:
			lhs, rhs := slice.Get(i.Lhs), slice.Get(i.Rhs)
			if err := requireInt(opts, lhs, "IntSub"); err != nil {
				return nil, err
			}
			if err := requireInt(opts, rhs, "IntSub"); err != nil {
				return nil, err
			}
			slice.Set(i.Dest, value.FromInt64(lhs.Int()-rhs.Int()))
			ip++

		case program.IntEq:
			lhs, rhs := slice.Get(i.Lhs), slice.Get(i.Rhs)
			if err := requireInt(opts, lhs, "IntEq"); err != nil {
				return nil, err
			}
			if err := requireInt(opts, rhs, "IntEq"); err != nil {
				return nil, err
			}
			slice.Set(i.Dest, value.FromBool(lhs.Int() == rhs.Int()))
			ip++

		case program.IntGt:
			lhs, rhs := slice.Get(i.Lhs), slice.Get(i.Rhs)
			if err := requireInt(opts, lhs, "IntGt"); err != nil {
				return nil, err
			}
			if err := requireInt(opts, rhs, "IntGt"); err != nil {
				return nil, err
			}
			slice.Set(i.Dest, value.FromBool(lhs.Int() > rhs.Int()))
			ip++

		case program.Incr:
			v := slice.Get(i.Slot)
			if err := requireInt(opts, v, "Incr"); err != nil {
				return nil, err
			}
			slice.Set(i.Slot, value.FromInt64(v.Int()+1))
			ip++

		case program.Jump:
			ip = i.Target

		case program.JumpIfTrue:
			cond := slice.Get(i.Cond)
			if err := requireBool(opts, cond, "JumpIfTrue"); err != nil {
				return nil, err
			}
			if cond.Bool() {
				ip = i.Target
			} else {
				ip++
			}

		case program.FuncCall:
			if int(i.FuncID) >= len(prog.Functions) {
				return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("FuncCall: no such function %d", i.FuncID)}
			}
			callee := prog.Functions[i.FuncID]
			slice = st.Call(callee.FrameSize, i.Args, i.Rets, ip+1)
			ip = callee.EntryOffset

		case program.FFICall:
			if int(i.FuncID) >= len(prog.HostFuncs) {
				return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("FFICall: no such host function %d", i.FuncID)}
			}
			hf := prog.HostFuncs[i.FuncID]
			ffiArgs := make([]value.Value, len(i.Args))
			for k, a := range i.Args {
				ffiArgs[k] = slice.Get(a)
			}
			ffiRets := make([]value.Value, len(i.Rets))
			if err := hf.Callable.Call(ffiArgs, ffiRets); err != nil {
				return nil, err
			}
			for k, r := range i.Rets {
				slice.Set(r, ffiRets[k])
			}
			ip++

		case program.ReturnOne:
			val := slice.Get(i.Slot)
			newSlice, retAddr, ok := st.ReturnOne(i.Slot)
			if !ok {
				return []value.Value{val}, nil
			}
			slice, ip = newSlice, retAddr

		case program.ReturnMultiple:
			vals := make([]value.Value, len(i.Slots))
			for k, s := range i.Slots {
				vals[k] = slice.Get(s)
			}
			newSlice, retAddr, ok := st.Return(i.Slots)
			if !ok {
				return vals, nil
			}
			slice, ip = newSlice, retAddr

		case program.ReturnNothing:
			newSlice, retAddr, ok := st.Return(nil)
			if !ok {
				return nil, nil
			}
			slice, ip = newSlice, retAddr

		case program.UnreachableInsc:
			return nil, &vmerr.UncheckedException{Info: "reached UnreachableInsc"}

		default:
			return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("unknown instruction %T", insc)}
		}
	}
}
