package program

import (
	"fmt"
	"io"
)

// Printer writes a human-readable disassembly of a PackedProgram, in the
// same io.Writer-wrapping style the teacher's IR printers use.
type Printer struct {
	w io.Writer
}

// NewPrinter wraps w for disassembly output.
func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// PrintProgram disassembles every function in prog in turn.
func (p *Printer) PrintProgram(prog *PackedProgram) {
	for id := range prog.Functions {
		p.PrintFunction(prog, uint32(id))
	}
}

// PrintFunction disassembles one function's instruction stream, stopping at
// the next function's entry offset (or the end of the code) if one follows.
func (p *Printer) PrintFunction(prog *PackedProgram, funcID uint32) {
	fn := prog.Functions[funcID]
	end := uint32(len(prog.Code))
	for _, other := range prog.Functions {
		if other.EntryOffset > fn.EntryOffset && other.EntryOffset < end {
			end = other.EntryOffset
		}
	}

	fmt.Fprintf(p.w, "func %s(%d args, %d rets, frame %d) @%d:\n", fn.Name, fn.ArgCount, fn.ReturnCount, fn.FrameSize, fn.EntryOffset)

	code := prog.Code
	ip := fn.EntryOffset
	for ip < end {
		op := OpCode(code.Byte(ip))
		switch op {
		case OpMakeIntConst:
			fmt.Fprintf(p.w, "  %04d  MakeIntConst dest=%d const=%d\n", ip, code.U32At(ip+4), code.I64At(ip+8))
			ip += 16
		case OpIntAdd, OpIntSub, OpIntEq, OpIntGt:
			fmt.Fprintf(p.w, "  %04d  %s lhs=%d rhs=%d dest=%d\n", ip, op, code.U32At(ip+4), code.U32At(ip+8), code.U32At(ip+12))
			ip += 16
		case OpIncr:
			fmt.Fprintf(p.w, "  %04d  Incr slot=%d\n", ip, code.U32At(ip+4))
			ip += 8
		case OpJump:
			fmt.Fprintf(p.w, "  %04d  Jump target=%d\n", ip, code.U32At(ip+4))
			ip += 8
		case OpJumpIfTrue:
			fmt.Fprintf(p.w, "  %04d  JumpIfTrue cond=%d target=%d\n", ip, code.U32At(ip+4), code.U32At(ip+8))
			ip += 12
		case OpFuncCall, OpFFICall:
			argCnt := int(code.Byte(ip + 1))
			retCnt := int(code.Byte(ip + 2))
			funcID := code.U32At(ip + 4)
			argsStart := ip + 8
			retsStart := argsStart + uint32(argCnt)*4
			fmt.Fprintf(p.w, "  %04d  %s func=%d args=", ip, op, funcID)
			for k := 0; k < argCnt; k++ {
				fmt.Fprintf(p.w, "%d,", code.U32At(argsStart+uint32(k)*4))
			}
			fmt.Fprint(p.w, " rets=")
			for k := 0; k < retCnt; k++ {
				fmt.Fprintf(p.w, "%d,", code.U32At(retsStart+uint32(k)*4))
			}
			fmt.Fprintln(p.w)
			ip = retsStart + uint32(retCnt)*4
		case OpReturnOne:
			fmt.Fprintf(p.w, "  %04d  ReturnOne slot=%d\n", ip, code.U32At(ip+4))
			ip += 8
		case OpReturnMultiple:
			cnt := int(code.Byte(ip + 1))
			fmt.Fprintf(p.w, "  %04d  ReturnMultiple slots=", ip)
			for k := 0; k < cnt; k++ {
				fmt.Fprintf(p.w, "%d,", code.U32At(ip+4+uint32(k)*4))
			}
			fmt.Fprintln(p.w)
			ip += 4 + uint32(cnt)*4
		case OpReturnNothing:
			fmt.Fprintf(p.w, "  %04d  ReturnNothing\n", ip)
			ip++
		case OpUnreachableInsc:
			fmt.Fprintf(p.w, "  %04d  UnreachableInsc\n", ip)
			ip++
		default:
			fmt.Fprintf(p.w, "  %04d  <unknown opcode %d>\n", ip, op)
			return
		}
		for ip%8 != 0 && ip < end {
			ip++
		}
	}
}
