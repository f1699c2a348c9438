// Package ffi implements the host-function marshaling bridge: deriving a
// TypeCheckInfo/FFIAction/Nullable plan from a Go host function's signature
// (via reflect, once per signature and cached), and running the
// pre-call/guard-commit/post-call protocol spec.md §4.4 describes. It is the
// Go analogue of the original VM's func.rs (RustCallable/RustCallBindN) and
// cast/mod.rs (lifetime_check), collapsed into one reflect-driven mechanism
// instead of one generated binding struct per arity.
package ffi

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/kettlevm/kettlevm/pkg/heap"
	"github.com/kettlevm/kettlevm/pkg/tyck"
	"github.com/kettlevm/kettlevm/pkg/value"
	"github.com/kettlevm/kettlevm/pkg/vmerr"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Optional marks a host parameter or return type as nullable. A present
// Optional carries Value; an absent one (Present == false) marshals from or
// to a null Value.
type Optional[T any] struct {
	Value   T
	Present bool
}

func (Optional[T]) ffiOptional() {}

type optionalMarker interface{ ffiOptional() }

var optionalMarkerType = reflect.TypeOf((*optionalMarker)(nil)).Elem()

type typeDescriptor struct {
	plan   tyck.Info
	action tyck.Action
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]typeDescriptor{}
)

func init() {
	register[int64](tyck.ActionCopy)
	register[float64](tyck.ActionCopy)
	register[rune](tyck.ActionCopy)
	register[byte](tyck.ActionCopy)
	register[bool](tyck.ActionCopy)
}

func register[T any](action tyck.Action) {
	var zero T
	t := reflect.TypeOf(zero)
	registryMu.Lock()
	registry[t] = typeDescriptor{plan: tyck.Simple(t), action: action}
	registryMu.Unlock()
}

// RegisterCopy declares that host type T, passed or returned by value, is
// marshaled with FFIAction Copy: the guest wrapper is left untouched.
func RegisterCopy[T any]() { register[T](tyck.ActionCopy) }

// RegisterMove declares that host type T, passed or returned by value,
// consumes the guest wrapper's payload (FFIAction Move).
func RegisterMove[T any]() { register[T](tyck.ActionMove) }

// RegisterShared declares that *T, used as a parameter or return type, is an
// immutable borrow into VM-owned storage (FFIAction Share).
func RegisterShared[T any]() {
	var zero T
	elem := reflect.TypeOf(zero)
	pt := reflect.PointerTo(elem)
	registryMu.Lock()
	registry[pt] = typeDescriptor{plan: tyck.Simple(elem), action: tyck.ActionShare}
	registryMu.Unlock()
}

// RegisterMutShared declares that *T, used as a parameter or return type, is
// a mutable borrow into VM-owned storage (FFIAction MutShare).
func RegisterMutShared[T any]() {
	var zero T
	elem := reflect.TypeOf(zero)
	pt := reflect.PointerTo(elem)
	registryMu.Lock()
	registry[pt] = typeDescriptor{plan: tyck.Simple(elem), action: tyck.ActionMutShare}
	registryMu.Unlock()
}

func describe(t reflect.Type) (typeDescriptor, bool) {
	if t.Implements(optionalMarkerType) {
		elemType := t.Field(0).Type
		d, nullable := describe(elemType)
		_ = nullable
		return d, true
	}
	registryMu.RLock()
	d, ok := registry[t]
	registryMu.RUnlock()
	if ok {
		return d, false
	}
	// Unregistered types default to Move, matching the original's
	// default-to-move StaticBaseImpl unless a Copy specialization exists.
	return typeDescriptor{plan: tyck.Simple(t), action: tyck.ActionMove}, false
}

// HostFunc is a bound, signature-derived host function descriptor.
type HostFunc struct {
	fn     reflect.Value
	ftype  reflect.Type
	Params []tyck.ParamSpec
	Return tyck.ReturnSpec
}

type cachedPlan struct {
	params []tyck.ParamSpec
	ret    tyck.ReturnSpec
}

var planCache sync.Map // reflect.Type -> *cachedPlan

// Bind derives a HostFunc descriptor from a Go function value. The function
// must return either (T) or (T, error); plan derivation is one-shot per
// distinct signature and cached across calls.
func Bind(fn any) *HostFunc {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		panic("ffi.Bind: not a function")
	}

	if cached, ok := planCache.Load(ft); ok {
		cp := cached.(*cachedPlan)
		return &HostFunc{fn: fv, ftype: ft, Params: cp.params, Return: cp.ret}
	}

	params := make([]tyck.ParamSpec, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		d, nullable := describe(ft.In(i))
		params[i] = tyck.ParamSpec{Plan: d.plan, Action: d.action, Nullable: nullable}
	}

	var ret tyck.ReturnSpec
	switch ft.NumOut() {
	case 1:
		d, nullable := describe(ft.Out(0))
		ret = tyck.ReturnSpec{Plan: d.plan, Action: d.action, Exception: tyck.ExceptionSpec{}}
		_ = nullable
	case 2:
		if ft.Out(1) != errorType {
			panic("ffi.Bind: second return value of a fallible host function must be error")
		}
		d, _ := describe(ft.Out(0))
		ret = tyck.ReturnSpec{Plan: d.plan, Action: d.action, Exception: tyck.ExceptionSpec{Fallible: true, ErrorKind: ft.Out(1)}}
	default:
		panic("ffi.Bind: host function must return (T) or (T, error)")
	}

	cp := &cachedPlan{params: params, ret: ret}
	planCache.Store(ft, cp)
	return &HostFunc{fn: fv, ftype: ft, Params: params, Return: ret}
}

// guard is the transactional record of one parameter's tentative state
// transition, per spec.md §4.4's LifetimeGuard.
type guard struct {
	obj       *heap.Object
	prior     heap.State
	onSuccess heap.State
	active    bool
}

func (g *guard) commit() {
	if !g.active {
		return
	}
	g.obj.SetState(g.onSuccess)
}

func (g *guard) rollback() {
	if !g.active {
		return
	}
	g.obj.SetState(g.prior)
}

// newGuard constructs the pre-call guard for one argument and produces the
// reflect.Value to pass to the host function. On success the wrapper's
// tentative state is already applied; commit() or rollback() decide which
// state survives once every parameter has been checked.
func newGuard(v value.Value, spec tyck.ParamSpec, hostType reflect.Type) (*guard, reflect.Value, error) {
	if spec.Action == tyck.ActionBypass {
		return &guard{}, reflect.ValueOf(v), nil
	}

	// hostType is the declared parameter type, which for a nullable
	// parameter is Optional[T] rather than T. Marshal the payload as T
	// and wrap it into a present Optional[T] just before it's handed to
	// the host function.
	payloadType := hostType
	if spec.Nullable {
		payloadType = hostType.Field(0).Type
	}
	wrap := func(cv reflect.Value) reflect.Value {
		if !spec.Nullable {
			return cv
		}
		return wrapOptional(hostType, cv)
	}

	if !v.IsHeapPointer() {
		cv, err := inlineToReflect(v, payloadType)
		if err != nil {
			return &guard{}, reflect.Value{}, err
		}
		return &guard{}, wrap(cv), nil
	}

	obj := v.Object()
	if obj == nil {
		return &guard{}, reflect.Value{}, &vmerr.NullError{}
	}
	st := obj.State()

	switch spec.Action {
	case tyck.ActionCopy:
		if st != heap.StateOwned && st != heap.StateSharedWithHost && st != heap.StateMutSharedWithHost {
			return nil, reflect.Value{}, &vmerr.LifetimeError{
				Required: []heap.State{heap.StateOwned, heap.StateSharedWithHost, heap.StateMutSharedWithHost},
				Action:   tyck.ActionCopy,
				Actual:   st,
			}
		}
		return &guard{}, wrap(obj.Value()), nil

	case tyck.ActionShare:
		if st != heap.StateOwned && st != heap.StateSharedWithHost {
			return nil, reflect.Value{}, &vmerr.LifetimeError{
				Required: []heap.State{heap.StateOwned, heap.StateSharedWithHost},
				Action:   tyck.ActionShare,
				Actual:   st,
				Extra:    "cannot immutably share a mutably shared or moved item",
			}
		}
		g := &guard{obj: obj, prior: st, onSuccess: st, active: true}
		obj.SetState(heap.StateSharedWithHost)
		return g, wrap(obj.Pointer()), nil

	case tyck.ActionMutShare:
		if st != heap.StateOwned {
			return nil, reflect.Value{}, &vmerr.LifetimeError{
				Required: []heap.State{heap.StateOwned},
				Action:   tyck.ActionMutShare,
				Actual:   st,
				Extra:    "cannot mutably share an already shared, moved, or dropped item",
			}
		}
		g := &guard{obj: obj, prior: st, onSuccess: st, active: true}
		obj.SetState(heap.StateMutSharedWithHost)
		return g, wrap(obj.Pointer()), nil

	case tyck.ActionMove:
		if st != heap.StateOwned {
			return nil, reflect.Value{}, &vmerr.LifetimeError{
				Required: []heap.State{heap.StateOwned},
				Action:   tyck.ActionMove,
				Actual:   st,
				Extra:    "cannot move a shared, already-moved, or dropped item",
			}
		}
		g := &guard{obj: obj, prior: st, onSuccess: heap.StateMovedToHost, active: true}
		dest := reflect.New(payloadType).Elem()
		obj.MoveOut(dest)
		return g, wrap(dest), nil

	default:
		return nil, reflect.Value{}, fmt.Errorf("ffi: unhandled action %v", spec.Action)
	}
}

// wrapOptional builds a present Optional[T] (optType) from a payload value
// of the Optional's element type.
func wrapOptional(optType reflect.Type, payload reflect.Value) reflect.Value {
	opt := reflect.New(optType).Elem()
	opt.Field(0).Set(payload)
	opt.Field(1).SetBool(true)
	return opt
}

func inlineToReflect(v value.Value, hostType reflect.Type) (reflect.Value, error) {
	switch hostType.Kind() {
	case reflect.Int64:
		return reflect.ValueOf(v.Int()).Convert(hostType), nil
	case reflect.Float64:
		return reflect.ValueOf(v.Float()).Convert(hostType), nil
	case reflect.Int32:
		return reflect.ValueOf(v.Char()).Convert(hostType), nil
	case reflect.Uint8:
		return reflect.ValueOf(v.Byte()).Convert(hostType), nil
	case reflect.Bool:
		return reflect.ValueOf(v.Bool()).Convert(hostType), nil
	default:
		return reflect.Value{}, &vmerr.TypeError{Actual: v.TypeID(), Required: hostType, Extra: "inline primitive does not match host parameter type"}
	}
}

func reflectToValue(rv reflect.Value, action tyck.Action) value.Value {
	switch action {
	case tyck.ActionCopy:
		switch rv.Kind() {
		case reflect.Int64:
			return value.FromInt64(rv.Int())
		case reflect.Float64:
			return value.FromFloat64(rv.Float())
		case reflect.Int32:
			return value.FromChar(rune(rv.Int()))
		case reflect.Uint8:
			return value.FromByte(byte(rv.Uint()))
		case reflect.Bool:
			return value.FromBool(rv.Bool())
		default:
			return value.FromObject(heap.Owned(rv.Type(), rv))
		}
	case tyck.ActionMove:
		return value.FromObject(heap.Owned(rv.Type(), rv))
	case tyck.ActionShare:
		return value.FromObject(heap.Shared(rv.Type().Elem(), rv))
	case tyck.ActionMutShare:
		return value.FromObject(heap.MutShared(rv.Type().Elem(), rv))
	default:
		return value.FromObject(heap.Owned(rv.Type(), rv))
	}
}

// Call runs the full pre-call/guard-commit/post-call protocol: arity check,
// per-argument null/type/lifetime checks and guard construction, the host
// call itself, then commit of every guard in construction order. If any
// argument fails its checks, the guards built so far are rolled back in
// reverse construction order and the host function is not called. Guards are
// also committed when a fallible host function returns an error.
func (h *HostFunc) Call(args []value.Value, rets []value.Value) error {
	if len(args) != len(h.Params) {
		return &vmerr.UncheckedException{Info: fmt.Sprintf("ffi arity mismatch: expected %d args, got %d", len(h.Params), len(args))}
	}
	if len(rets) != 1 {
		return &vmerr.UncheckedException{Info: fmt.Sprintf("ffi return arity mismatch: expected 1 return slot, got %d", len(rets))}
	}

	guards := make([]*guard, 0, len(args))
	callArgs := make([]reflect.Value, len(args))

	rollbackAll := func() {
		for i := len(guards) - 1; i >= 0; i-- {
			guards[i].rollback()
		}
	}

	for i, a := range args {
		spec := h.Params[i]
		hostType := h.ftype.In(i)

		if a.IsNull() {
			if !spec.Nullable {
				rollbackAll()
				return &vmerr.NullError{}
			}
			callArgs[i] = reflect.Zero(hostType)
			guards = append(guards, &guard{})
			continue
		}

		if spec.Action != tyck.ActionBypass {
			if obj := a.Object(); obj != nil && !obj.TypeCheck(spec.Plan) {
				rollbackAll()
				return &vmerr.TypeError{
					Required:     spec.Plan.Base,
					Actual:       obj.TypeID(),
					RequiredName: fmt.Sprint(spec.Plan.Base),
					ActualName:   obj.TypeName(),
				}
			}
		}

		g, cv, err := newGuard(a, spec, hostType)
		if err != nil {
			rollbackAll()
			return err
		}
		guards = append(guards, g)
		callArgs[i] = cv
	}

	results := h.fn.Call(callArgs)

	if h.Return.Exception.Fallible {
		errVal := results[1]
		if !errVal.IsNil() {
			for _, g := range guards {
				g.commit()
			}
			return &vmerr.UserException{Err: errVal.Interface().(error)}
		}
	}

	for _, g := range guards {
		g.commit()
	}

	ret := results[0]
	if ret.Type().Implements(optionalMarkerType) {
		if !ret.Field(1).Bool() {
			rets[0] = value.Null()
			return nil
		}
		ret = ret.Field(0)
	}
	rets[0] = reflectToValue(ret, h.Return.Action)
	return nil
}
