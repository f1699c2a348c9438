package ffi

import (
	"errors"
	"testing"

	"github.com/kettlevm/kettlevm/pkg/heap"
	"github.com/kettlevm/kettlevm/pkg/tyck"
	"github.com/kettlevm/kettlevm/pkg/value"
	"github.com/kettlevm/kettlevm/pkg/vmerr"
)

func TestBindCopyParams(t *testing.T) {
	hf := Bind(func(a, b int64) int64 { return a + b })
	if len(hf.Params) != 2 {
		t.Fatalf("Params len = %d, want 2", len(hf.Params))
	}
	for _, p := range hf.Params {
		if p.Action != tyck.ActionCopy {
			t.Errorf("Action = %v, want Copy for a registered int64 parameter", p.Action)
		}
	}

	rets := make([]value.Value, 1)
	if err := hf.Call([]value.Value{value.FromInt64(2), value.FromInt64(3)}, rets); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if rets[0].Int() != 5 {
		t.Fatalf("result = %d, want 5", rets[0].Int())
	}
}

func TestCallNullIntoNonNullableFails(t *testing.T) {
	hf := Bind(func(a int64) int64 { return a })

	rets := make([]value.Value, 1)
	err := hf.Call([]value.Value{value.Null()}, rets)
	if err == nil {
		t.Fatalf("expected an error marshaling null into a non-nullable int64 parameter")
	}
	var nullErr *vmerr.NullError
	if !errors.As(err, &nullErr) {
		t.Fatalf("error = %v (%T), want *vmerr.NullError", err, err)
	}
}

func TestCallOptionalAcceptsNull(t *testing.T) {
	hf := Bind(func(a Optional[int64]) int64 {
		if !a.Present {
			return -1
		}
		return a.Value
	})

	rets := make([]value.Value, 1)
	if err := hf.Call([]value.Value{value.Null()}, rets); err != nil {
		t.Fatalf("Call with null optional returned error: %v", err)
	}
}

func TestCallOptionalAcceptsPresentValue(t *testing.T) {
	hf := Bind(func(a Optional[int64]) int64 {
		if !a.Present {
			return -1
		}
		return a.Value
	})

	rets := make([]value.Value, 1)
	if err := hf.Call([]value.Value{value.FromInt64(42)}, rets); err != nil {
		t.Fatalf("Call with a present optional returned error: %v", err)
	}
	if rets[0].Int() != 42 {
		t.Fatalf("result = %d, want 42", rets[0].Int())
	}
}

func TestCallOptionalMovesPresentHeapValue(t *testing.T) {
	hf := Bind(func(s Optional[string]) string {
		if !s.Present {
			return ""
		}
		return s.Value + s.Value
	})

	obj := heap.NewOwned("hi")
	rets := make([]value.Value, 1)
	if err := hf.Call([]value.Value{value.FromObject(obj)}, rets); err != nil {
		t.Fatalf("Call moving a present optional heap value returned error: %v", err)
	}
	if obj.State() != heap.StateMovedToHost {
		t.Fatalf("State() after Move = %v, want MovedToHost", obj.State())
	}
}

func TestMoveOnceThenMoveTwiceFails(t *testing.T) {
	hf := Bind(func(s string) string { return s + s })

	obj := heap.NewOwned("hi")
	arg := value.FromObject(obj)

	rets := make([]value.Value, 1)
	if err := hf.Call([]value.Value{arg}, rets); err != nil {
		t.Fatalf("first Move call failed: %v", err)
	}
	if obj.State() != heap.StateMovedToHost {
		t.Fatalf("State() after Move = %v, want MovedToHost", obj.State())
	}

	err := hf.Call([]value.Value{arg}, rets)
	if err == nil {
		t.Fatalf("expected an error moving an already-moved object a second time")
	}
	var lifeErr *vmerr.LifetimeError
	if !errors.As(err, &lifeErr) {
		t.Fatalf("error = %v (%T), want *vmerr.LifetimeError", err, err)
	}
	if lifeErr.Action != tyck.ActionMove {
		t.Errorf("LifetimeError.Action = %v, want Move", lifeErr.Action)
	}
}

type Counter struct {
	N int64
}

func TestShareRevertsToOwnedAfterCall(t *testing.T) {
	RegisterShared[Counter]()

	hf := Bind(func(c *Counter) int64 {
		c.N++
		return c.N
	})

	obj := heap.NewOwned(Counter{N: 10})
	arg := value.FromObject(obj)

	rets := make([]value.Value, 1)
	if err := hf.Call([]value.Value{arg}, rets); err != nil {
		t.Fatalf("Share call failed: %v", err)
	}
	if rets[0].Int() != 11 {
		t.Fatalf("result = %d, want 11", rets[0].Int())
	}
	if obj.State() != heap.StateOwned {
		t.Fatalf("State() after a successful Share call = %v, want Owned", obj.State())
	}

	// The borrow is live only during the call; a second call should see the
	// mutation the host made through the pointer and revert again.
	if err := hf.Call([]value.Value{arg}, rets); err != nil {
		t.Fatalf("second Share call failed: %v", err)
	}
	if rets[0].Int() != 12 {
		t.Fatalf("result = %d, want 12", rets[0].Int())
	}
}

type Gauge struct {
	N int64
}

func TestMutShareRequiresOwnedState(t *testing.T) {
	RegisterMutShared[Gauge]()

	hf := Bind(func(g *Gauge) int64 { return g.N })

	obj := heap.NewOwned(Gauge{N: 1})
	obj.SetState(heap.StateSharedWithHost)
	arg := value.FromObject(obj)

	rets := make([]value.Value, 1)
	err := hf.Call([]value.Value{arg}, rets)
	if err == nil {
		t.Fatalf("expected an error mutably sharing an object already SharedWithHost")
	}
	var lifeErr *vmerr.LifetimeError
	if !errors.As(err, &lifeErr) {
		t.Fatalf("error = %v (%T), want *vmerr.LifetimeError", err, err)
	}
}

func TestCallFallibleUserException(t *testing.T) {
	hf := Bind(func(a int64) (int64, error) {
		if a < 0 {
			return 0, errors.New("negative input")
		}
		return a, nil
	})

	rets := make([]value.Value, 1)
	err := hf.Call([]value.Value{value.FromInt64(-1)}, rets)
	if err == nil {
		t.Fatalf("expected a UserException for a negative input")
	}
	var userErr *vmerr.UserException
	if !errors.As(err, &userErr) {
		t.Fatalf("error = %v (%T), want *vmerr.UserException", err, err)
	}
}
