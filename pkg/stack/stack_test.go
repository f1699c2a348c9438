package stack

import (
	"testing"

	"github.com/kettlevm/kettlevm/pkg/value"
)

func TestEnterExternalCopiesArgsIntoRootFrame(t *testing.T) {
	s := New()
	slice := s.EnterExternal(3, []value.Value{value.FromInt64(10), value.FromInt64(20)})

	if slice.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", slice.Len())
	}
	if slice.Get(0).Int() != 10 || slice.Get(1).Int() != 20 {
		t.Fatalf("args not copied into root frame: %v, %v", slice.Get(0), slice.Get(1))
	}
	if !slice.Get(2).IsNull() {
		t.Fatalf("slot 2 should be zero-valued Null, got %v", slice.Get(2))
	}
	if s.Depth() != 1 {
		t.Fatalf("Depth() = %d, want 1", s.Depth())
	}
}

func TestEnterExternalPanicsIfFramesActive(t *testing.T) {
	s := New()
	s.EnterExternal(1, nil)

	defer func() {
		if recover() == nil {
			t.Fatalf("EnterExternal did not panic with a frame already active")
		}
	}()
	s.EnterExternal(1, nil)
}

func TestCallAndReturnRoundTrip(t *testing.T) {
	s := New()
	caller := s.EnterExternal(2, []value.Value{value.FromInt64(7), value.Null()})

	callee := s.Call(1, []uint32{0}, []uint32{1}, 42)
	if s.Depth() != 2 {
		t.Fatalf("Depth() after Call = %d, want 2", s.Depth())
	}
	if callee.Get(0).Int() != 7 {
		t.Fatalf("callee did not receive the caller's argument, got %v", callee.Get(0))
	}

	callee.Set(0, value.FromInt64(99))
	newCallerSlice, retAddr, ok := s.ReturnOne(0)
	if !ok {
		t.Fatalf("ReturnOne reported ok=false returning to a non-root frame")
	}
	if retAddr != 42 {
		t.Fatalf("retAddr = %d, want 42", retAddr)
	}
	if newCallerSlice.Get(1).Int() != 99 {
		t.Fatalf("return value not written to caller's RetDests slot, got %v", newCallerSlice.Get(1))
	}
	if s.Depth() != 1 {
		t.Fatalf("Depth() after Return = %d, want 1", s.Depth())
	}
	_ = caller
}

func TestReturnFromRootFrameReportsNotOk(t *testing.T) {
	s := New()
	s.EnterExternal(1, []value.Value{value.FromInt64(5)})

	_, _, ok := s.ReturnOne(0)
	if ok {
		t.Fatalf("Return from the root frame reported ok=true, want false")
	}
	if s.Depth() != 0 {
		t.Fatalf("Depth() after returning from root = %d, want 0", s.Depth())
	}
}

func TestCallSurvivesBackingArrayReallocation(t *testing.T) {
	s := New()
	s.EnterExternal(1, []value.Value{value.FromInt64(1)})

	// Push enough nested calls to force the underlying values slice to grow
	// past its initial capacity at least once, and make sure every
	// previously obtained Slice used immediately after a Call still sees
	// the right window.
	for i := 0; i < 100; i++ {
		callee := s.Call(4, nil, nil, uint32(i))
		callee.Set(0, value.FromInt64(int64(i)))
		if callee.Get(0).Int() != int64(i) {
			t.Fatalf("iteration %d: callee slot mismatch after growth", i)
		}
	}
}
