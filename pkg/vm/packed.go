package vm

import (
	"fmt"

	"github.com/kettlevm/kettlevm/pkg/program"
	"github.com/kettlevm/kettlevm/pkg/stack"
	"github.com/kettlevm/kettlevm/pkg/value"
	"github.com/kettlevm/kettlevm/pkg/vmerr"
)

// alignUp8 rounds ip up to the next multiple of 8, mirroring the padding
// program.Builder inserts before every emitted instruction.
func alignUp8(ip uint32) uint32 {
	return (ip + 7) &^ 7
}

// RunFuncPacked executes a compiled function using the packed-byte
// instruction encoding. It must behave identically to RunFunc for any
// program that means the same thing in both encodings (spec.md's dual-
// encoding equivalence requirement): same dispatch, same arithmetic, same
// error taxonomy, just reading operands out of a byte stream by offset
// instead of destructuring a Go struct.
func RunFuncPacked(prog *program.PackedProgram, funcID uint32, args []value.Value, opts Options) ([]value.Value, error) {
	if int(funcID) >= len(prog.Functions) {
		return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("run_func: no such function %d", funcID)}
	}
	fn := prog.Functions[funcID]
	if uint32(len(args)) != fn.ArgCount {
		return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("run_func: %s expects %d args, got %d", fn.Name, fn.ArgCount, len(args))}
	}

	code := prog.Code
	st := stack.New()
	slice := st.EnterExternal(fn.FrameSize, args)
	ip := fn.EntryOffset

	for {
		if int(ip) >= len(code) {
			return nil, &vmerr.UncheckedException{Info: "run_func: instruction pointer ran off the end of the program"}
		}
		op := program.OpCode(code[ip])

		switch op {
		case program.OpMakeIntConst:
			dest := code.U32At(ip + 4)
			val := code.I64At(ip + 8)
			slice.Set(dest, value.FromInt64(val))
			ip += 16

		case program.OpIntAdd, program.OpIntSub, program.OpIntEq, program.OpIntGt:
			lhs := code.U32At(ip + 4)
			rhs := code.U32At(ip + 8)
			dest := code.U32At(ip + 12)
			lv, rv := slice.Get(lhs), slice.Get(rhs)
			if err := requireInt(opts, lv, op.String()); err != nil {
				return nil, err
			}
			if err := requireInt(opts, rv, op.String()); err != nil {
				return nil, err
			}
			switch op {
			case program.OpIntAdd:
				slice.Set(dest, value.FromInt64(lv.Int()+rv.Int()))
			case program.OpIntSub:
				slice.Set(dest, value.FromInt64(lv.Int()-rv.Int()))
			case program.OpIntEq:
				slice.Set(dest, value.FromBool(lv.Int() == rv.Int()))
			case program.OpIntGt:
				slice.Set(dest, value.FromBool(lv.Int() > rv.Int()))
			}
			ip += 16

		case program.OpIncr:
			slotIdx := code.U32At(ip + 4)
			v := slice.Get(slotIdx)
			if err := requireInt(opts, v, "Incr"); err != nil {
				return nil, err
			}
			slice.Set(slotIdx, value.FromInt64(v.Int()+1))
			ip += 8

		case program.OpJump:
			ip = code.U32At(ip + 4)

		case program.OpJumpIfTrue:
			cond := slice.Get(code.U32At(ip + 4))
			if err := requireBool(opts, cond, "JumpIfTrue"); err != nil {
				return nil, err
			}
			target := code.U32At(ip + 8)
			if cond.Bool() {
				ip = target
			} else {
				ip = alignUp8(ip + 12)
			}

		case program.OpFuncCall, program.OpFFICall:
			argCnt := int(code.Byte(ip + 1))
			retCnt := int(code.Byte(ip + 2))
			funcID := code.U32At(ip + 4)
			argsStart := ip + 8
			retsStart := argsStart + uint32(argCnt)*4
			args := make([]uint32, argCnt)
			for k := 0; k < argCnt; k++ {
				args[k] = code.U32At(argsStart + uint32(k)*4)
			}
			rets := make([]uint32, retCnt)
			for k := 0; k < retCnt; k++ {
				rets[k] = code.U32At(retsStart + uint32(k)*4)
			}
			// The Builder realigns to an 8-byte boundary before emitting the
			// next instruction, so the computed end of a variable-length
			// FuncCall/FFICall isn't necessarily where dispatch resumes.
			next := alignUp8(retsStart + uint32(retCnt)*4)

			if op == program.OpFuncCall {
				if int(funcID) >= len(prog.Functions) {
					return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("FuncCall: no such function %d", funcID)}
				}
				callee := prog.Functions[funcID]
				slice = st.Call(callee.FrameSize, args, rets, next)
				ip = callee.EntryOffset
			} else {
				if int(funcID) >= len(prog.HostFuncs) {
					return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("FFICall: no such host function %d", funcID)}
				}
				hf := prog.HostFuncs[funcID]
				ffiArgs := make([]value.Value, len(args))
				for k, a := range args {
					ffiArgs[k] = slice.Get(a)
				}
				ffiRets := make([]value.Value, len(rets))
				if err := hf.Callable.Call(ffiArgs, ffiRets); err != nil {
					return nil, err
				}
				for k, r := range rets {
					slice.Set(r, ffiRets[k])
				}
				ip = next
			}

		case program.OpReturnOne:
			slotIdx := code.U32At(ip + 4)
			val := slice.Get(slotIdx)
			newSlice, retAddr, ok := st.ReturnOne(slotIdx)
			if !ok {
				return []value.Value{val}, nil
			}
			slice, ip = newSlice, retAddr

		case program.OpReturnMultiple:
			cnt := int(code.Byte(ip + 1))
			slots := make([]uint32, cnt)
			for k := 0; k < cnt; k++ {
				slots[k] = code.U32At(ip + 4 + uint32(k)*4)
			}
			vals := make([]value.Value, cnt)
			for k, s := range slots {
				vals[k] = slice.Get(s)
			}
			newSlice, retAddr, ok := st.Return(slots)
			if !ok {
				return vals, nil
			}
			slice, ip = newSlice, retAddr

		case program.OpReturnNothing:
			newSlice, retAddr, ok := st.Return(nil)
			if !ok {
				return nil, nil
			}
			slice, ip = newSlice, retAddr

		case program.OpUnreachableInsc:
			return nil, &vmerr.UncheckedException{Info: "reached UnreachableInsc"}

		default:
			return nil, &vmerr.UncheckedException{Info: fmt.Sprintf("unknown opcode %d", op)}
		}
	}
}
