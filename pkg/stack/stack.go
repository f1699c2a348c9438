// Package stack implements the VM's register stack and call-frame protocol:
// a single contiguous slice of Values, partitioned into per-call frames,
// grown and shrunk as functions are entered and returned from. Grounded
// directly on the original VM's turbofan::stack module
// (ext_func_call_grow_stack, func_call_grow_stack,
// done_func_call_shrink_stack[1]), which this package's EnterExternal/Call/
// Return/ReturnOne mirror one-to-one.
package stack

import "github.com/kettlevm/kettlevm/pkg/value"

// FrameInfo records one active call's position in the stack and where its
// return values should land in the caller's frame.
type FrameInfo struct {
	Start      int
	End        int
	RetDests   []uint32
	ReturnAddr uint32
}

// Slice is a register window into one frame's slots. It aliases the
// backing Stack's values, so index assignment is visible through any other
// Slice over the same underlying array — but a Slice obtained before a Call
// or Return must not be used afterward, since growth can reallocate the
// backing array.
type Slice struct {
	values []value.Value
}

// Get reads one register slot.
func (s Slice) Get(idx uint32) value.Value { return s.values[idx] }

// Set writes one register slot.
func (s Slice) Set(idx uint32, v value.Value) { s.values[idx] = v }

// Len returns the number of slots in this frame.
func (s Slice) Len() int { return len(s.values) }

// Stack is the VM's whole register stack plus its frame table.
type Stack struct {
	values []value.Value
	frames []FrameInfo
}

// New returns an empty stack, ready for EnterExternal.
func New() *Stack {
	return &Stack{
		values: make([]value.Value, 0, 64),
		frames: make([]FrameInfo, 0, 8),
	}
}

// Depth returns the number of active frames.
func (s *Stack) Depth() int { return len(s.frames) }

// EnterExternal pushes the root frame for a run_func entry point: the
// frame's leading slots are the caller-supplied arguments, sized up to
// frameSize. There must be no active frames already.
func (s *Stack) EnterExternal(frameSize uint32, args []value.Value) Slice {
	if len(s.frames) != 0 {
		panic("stack: EnterExternal called with frames already active")
	}
	s.values = make([]value.Value, frameSize)
	copy(s.values, args)
	s.frames = append(s.frames, FrameInfo{Start: 0, End: int(frameSize)})
	return Slice{values: s.values[0:frameSize]}
}

// Call grows the stack by one new frame for a guest-to-guest call: argSrc
// indexes the caller's current frame for the callee's leading argument
// slots, retDests records where (in the caller's frame) the callee's
// eventual return values land, and returnAddr is the instruction to resume
// at in the caller. Returns the new frame's Slice.
func (s *Stack) Call(frameSize uint32, argSrc []uint32, retDests []uint32, returnAddr uint32) Slice {
	caller := s.frames[len(s.frames)-1]
	start := len(s.values)
	end := start + int(frameSize)
	s.values = append(s.values, make([]value.Value, frameSize)...)

	callerSlice := Slice{values: s.values[caller.Start:caller.End]}
	newSlice := Slice{values: s.values[start:end]}
	for i, srcIdx := range argSrc {
		newSlice.Set(uint32(i), callerSlice.Get(srcIdx))
	}

	s.frames = append(s.frames, FrameInfo{Start: start, End: end, RetDests: retDests, ReturnAddr: returnAddr})
	return newSlice
}

// Return pops the current frame, copying retSrc-indexed slots from it into
// the caller frame's RetDests slots. Reports ok == false when the popped
// frame was the root frame (nothing left to resume) — the caller must read
// the values named by retSrc itself before calling Return in that case,
// since the frame is gone afterward.
func (s *Stack) Return(retSrc []uint32) (callerSlice Slice, returnAddr uint32, ok bool) {
	n := len(s.frames)
	this := s.frames[n-1]

	if n == 1 {
		s.values = s.values[:0]
		s.frames = s.frames[:0]
		return Slice{}, 0, false
	}

	prev := s.frames[n-2]
	thisSlice := Slice{values: s.values[this.Start:this.End]}
	prevSlice := Slice{values: s.values[prev.Start:prev.End]}
	for i, srcIdx := range retSrc {
		prevSlice.Set(this.RetDests[i], thisSlice.Get(srcIdx))
	}

	returnAddr = this.ReturnAddr
	s.values = s.values[:this.Start]
	s.frames = s.frames[:n-1]
	return Slice{values: s.values[prev.Start:prev.End]}, returnAddr, true
}

// ReturnOne is Return's single-value fast path.
func (s *Stack) ReturnOne(slot uint32) (Slice, uint32, bool) {
	return s.Return([]uint32{slot})
}

// Current returns the active frame's Slice.
func (s *Stack) Current() Slice {
	f := s.frames[len(s.frames)-1]
	return Slice{values: s.values[f.Start:f.End]}
}
