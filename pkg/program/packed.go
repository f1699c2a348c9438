// Packed instruction encoding: an 8-byte-aligned byte stream interpreted the
// same way the variant-record form is, grounded directly on the original
// VM's turbofan::r15_300 module (program.rs for the OpCode/layout, turbine.rs
// for the builder). Every opcode's on-wire layout below is reproduced from
// that module's field-width comments.
package program

import "encoding/binary"

// OpCode is the packed encoding's one-byte instruction discriminant.
type OpCode uint8

const (
	OpMakeIntConst OpCode = iota + 1
	OpIntAdd
	OpIntSub
	OpIntEq
	OpIntGt
	OpIncr
	OpJump
	OpJumpIfTrue
	OpFuncCall
	OpFFICall
	OpReturnOne
	OpReturnMultiple
	OpReturnNothing
	OpUnreachableInsc
)

// Code is the packed instruction byte stream, read via little-endian fixed
// widths exactly like the original's AlignedBytes reader.
type Code []byte

func (c Code) Byte(off uint32) byte  { return c[off] }
func (c Code) U32At(off uint32) uint32 { return binary.LittleEndian.Uint32(c[off:]) }
func (c Code) U64At(off uint32) uint64 { return binary.LittleEndian.Uint64(c[off:]) }
func (c Code) I64At(off uint32) int64  { return int64(c.U64At(off)) }

func (o OpCode) String() string {
	switch o {
	case OpMakeIntConst:
		return "MakeIntConst"
	case OpIntAdd:
		return "IntAdd"
	case OpIntSub:
		return "IntSub"
	case OpIntEq:
		return "IntEq"
	case OpIntGt:
		return "IntGt"
	case OpIncr:
		return "Incr"
	case OpJump:
		return "Jump"
	case OpJumpIfTrue:
		return "JumpIfTrue"
	case OpFuncCall:
		return "FuncCall"
	case OpFFICall:
		return "FFICall"
	case OpReturnOne:
		return "ReturnOne"
	case OpReturnMultiple:
		return "ReturnMultiple"
	case OpReturnNothing:
		return "ReturnNothing"
	case OpUnreachableInsc:
		return "UnreachableInsc"
	default:
		return "?"
	}
}

// PackedProgram is the packed-byte encoding of a whole compiled unit: the
// same function/host-function tables as CompiledProgram, paired with a flat
// instruction byte stream instead of a Go slice of Insc values.
type PackedProgram struct {
	Code      Code
	Functions []FunctionEntry
	HostFuncs []HostFuncEntry
}

// Builder assembles a PackedProgram incrementally, resolving forward jump
// targets ("dangling" jumps, in the original's terminology) once every
// instruction has been emitted.
type Builder struct {
	code      []byte
	functions []FunctionEntry
	hostFuncs []HostFuncEntry
	labels    map[uint32]uint32
	nextLabel uint32
	patches   []patch
}

type patch struct {
	offset uint32 // byte offset of the u32 operand to patch
	label  uint32
}

// NewBuilder returns an empty packed-program builder.
func NewBuilder() *Builder {
	return &Builder{labels: map[uint32]uint32{}}
}

func (b *Builder) align8() {
	for len(b.code)%8 != 0 {
		b.code = append(b.code, 0)
	}
}

func (b *Builder) pushByte(v byte)   { b.code = append(b.code, v) }
func (b *Builder) pushZeros(n int)   { b.code = append(b.code, make([]byte, n)...) }
func (b *Builder) pushU32(v uint32)  { b.code = binary.LittleEndian.AppendUint32(b.code, v) }
func (b *Builder) pushU64(v uint64)  { b.code = binary.LittleEndian.AppendUint64(b.code, v) }

// CreateFunc reserves a function slot and marks the builder's current
// (8-byte-aligned) position as its entry point. Returns the function id to
// use in FuncCall.
func (b *Builder) CreateFunc(name string, argCount, retCount, frameSize uint32) uint32 {
	b.align8()
	id := uint32(len(b.functions))
	b.functions = append(b.functions, FunctionEntry{
		Name:        name,
		EntryOffset: uint32(len(b.code)),
		ArgCount:    argCount,
		ReturnCount: retCount,
		FrameSize:   frameSize,
	})
	return id
}

// AddHostFunc registers a host function descriptor and returns its id.
func (b *Builder) AddHostFunc(entry HostFuncEntry) uint32 {
	id := uint32(len(b.hostFuncs))
	b.hostFuncs = append(b.hostFuncs, entry)
	return id
}

// CreateLabel allocates a fresh label for a future jump target.
func (b *Builder) CreateLabel() uint32 {
	id := b.nextLabel
	b.nextLabel++
	return id
}

// PlaceLabel binds a label to the builder's current (8-byte-aligned)
// position. Every created label must be placed exactly once before Build.
func (b *Builder) PlaceLabel(label uint32) {
	b.align8()
	b.labels[label] = uint32(len(b.code))
}

// [OP:1] [PAD:3] [DEST:4] [VALUE:8]
func (b *Builder) MakeIntConst(c int64, dest uint32) {
	b.align8()
	b.pushByte(byte(OpMakeIntConst))
	b.pushZeros(3)
	b.pushU32(dest)
	b.pushU64(uint64(c))
}

// [OP:1] [PAD:3] [LHS:4] [RHS:4] [DEST:4]
func (b *Builder) threeOperand(op OpCode, lhs, rhs, dest uint32) {
	b.align8()
	b.pushByte(byte(op))
	b.pushZeros(3)
	b.pushU32(lhs)
	b.pushU32(rhs)
	b.pushU32(dest)
}

func (b *Builder) IntAdd(lhs, rhs, dest uint32) { b.threeOperand(OpIntAdd, lhs, rhs, dest) }
func (b *Builder) IntSub(lhs, rhs, dest uint32) { b.threeOperand(OpIntSub, lhs, rhs, dest) }
func (b *Builder) IntEq(lhs, rhs, dest uint32)  { b.threeOperand(OpIntEq, lhs, rhs, dest) }
func (b *Builder) IntGt(lhs, rhs, dest uint32)  { b.threeOperand(OpIntGt, lhs, rhs, dest) }

// [OP:1] [PAD:3] [SLOT:4]
func (b *Builder) Incr(slot uint32) {
	b.align8()
	b.pushByte(byte(OpIncr))
	b.pushZeros(3)
	b.pushU32(slot)
}

// [OP:1] [PAD:3] [TARGET:4]
func (b *Builder) Jump(label uint32) {
	b.align8()
	b.pushByte(byte(OpJump))
	b.pushZeros(3)
	b.patches = append(b.patches, patch{offset: uint32(len(b.code)), label: label})
	b.pushU32(0)
}

// [OP:1] [PAD:3] [COND:4] [TARGET:4]
func (b *Builder) JumpIfTrue(cond, label uint32) {
	b.align8()
	b.pushByte(byte(OpJumpIfTrue))
	b.pushZeros(3)
	b.pushU32(cond)
	b.patches = append(b.patches, patch{offset: uint32(len(b.code)), label: label})
	b.pushU32(0)
}

// [OP:1] [ARG_CNT:1] [RET_CNT:1] [PAD:1] [FUNC:4] [ARGS:4*ARG_CNT] [RETS:4*RET_CNT]
func (b *Builder) call(op OpCode, funcID uint32, args, rets []uint32) {
	b.align8()
	b.pushByte(byte(op))
	b.pushByte(byte(len(args)))
	b.pushByte(byte(len(rets)))
	b.pushByte(0)
	b.pushU32(funcID)
	for _, a := range args {
		b.pushU32(a)
	}
	for _, r := range rets {
		b.pushU32(r)
	}
}

func (b *Builder) FuncCall(funcID uint32, args, rets []uint32) { b.call(OpFuncCall, funcID, args, rets) }
func (b *Builder) FFICall(funcID uint32, args, rets []uint32)  { b.call(OpFFICall, funcID, args, rets) }

// [OP:1] [PAD:3] [SLOT:4]
func (b *Builder) ReturnOne(slot uint32) {
	b.align8()
	b.pushByte(byte(OpReturnOne))
	b.pushZeros(3)
	b.pushU32(slot)
}

// [OP:1] [CNT:1] [PAD:2] [SLOTS:4*CNT]
func (b *Builder) ReturnMultiple(slots []uint32) {
	b.align8()
	b.pushByte(byte(OpReturnMultiple))
	b.pushByte(byte(len(slots)))
	b.pushZeros(2)
	for _, s := range slots {
		b.pushU32(s)
	}
}

// [OP:1]
func (b *Builder) ReturnNothing() {
	b.align8()
	b.pushByte(byte(OpReturnNothing))
}

// [OP:1]
func (b *Builder) UnreachableInsc() {
	b.align8()
	b.pushByte(byte(OpUnreachableInsc))
}

// Build resolves every dangling jump target and returns the finished
// PackedProgram. Panics if a jump references a label that was never placed
// — a guest-program build error, not a runtime one.
func (b *Builder) Build() *PackedProgram {
	for _, p := range b.patches {
		target, ok := b.labels[p.label]
		if !ok {
			panic("program: jump references an unplaced label")
		}
		binary.LittleEndian.PutUint32(b.code[p.offset:], target)
	}
	return &PackedProgram{Code: Code(b.code), Functions: b.functions, HostFuncs: b.hostFuncs}
}
