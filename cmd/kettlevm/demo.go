package main

import (
	"github.com/kettlevm/kettlevm/pkg/ffi"
	"github.com/kettlevm/kettlevm/pkg/program"
	"github.com/kettlevm/kettlevm/pkg/value"
)

// demoProgram is a named, ready-to-run packed program plus the guest-level
// argument list the "run" subcommand feeds it by default. There is no
// on-disk bytecode format (persisting compiled programs is out of scope,
// per SPEC_FULL.md §13), so the reference embedder just builds a few
// representative programs in memory, one per spec.md §8 scenario.
type demoProgram struct {
	name   string
	build  func() *program.PackedProgram
	funcID uint32
	args   []value.Value
}

func demoPrograms() map[string]demoProgram {
	return map[string]demoProgram{
		"add":     {name: "add", build: buildAddProgram, funcID: 0, args: []value.Value{value.FromInt64(2), value.FromInt64(3)}},
		"fib":     {name: "fib", build: buildFibProgram, funcID: 0, args: []value.Value{value.FromInt64(10)}},
		"loopsum": {name: "loopsum", build: buildLoopSumProgram, funcID: 0, args: []value.Value{value.FromInt64(10000), value.FromInt64(10000)}},
		"ffi-add": {name: "ffi-add", build: buildFFIAddProgram, funcID: 0, args: []value.Value{value.FromInt64(4), value.FromInt64(5)}},
	}
}

// buildAddProgram: fn add(a, b) { return a + b }
func buildAddProgram() *program.PackedProgram {
	b := program.NewBuilder()
	b.CreateFunc("add", 2, 1, 3)
	b.IntAdd(0, 1, 2)
	b.ReturnOne(2)
	return b.Build()
}

// buildFibProgram: fn fib(n) { if n > 1 { return fib(n-1) + fib(n-2) } return n }
//
// slots: 0=n 1=one 2=cond 3=fib(n-1) 4=fib(n-2) 5=sum
func buildFibProgram() *program.PackedProgram {
	b := program.NewBuilder()
	id := b.CreateFunc("fib", 1, 1, 6)

	recurse := b.CreateLabel()

	b.MakeIntConst(1, 1)
	b.IntGt(0, 1, 2)
	b.JumpIfTrue(2, recurse)
	b.ReturnOne(0)

	b.PlaceLabel(recurse)
	b.IntSub(0, 1, 3)
	b.FuncCall(id, []uint32{3}, []uint32{3})
	b.MakeIntConst(2, 4)
	b.IntSub(0, 4, 4)
	b.FuncCall(id, []uint32{4}, []uint32{4})
	b.IntAdd(3, 4, 5)
	b.ReturnOne(5)

	return b.Build()
}

// buildLoopSumProgram: fn loopsum(n, m) counts n*m increments through a
// nested loop, exercising Jump/JumpIfTrue/Incr/IntEq under sustained
// iteration.
//
// slots: 0=n 1=m 2=acc 3=i 4=j 5=condI 6=condJ
func buildLoopSumProgram() *program.PackedProgram {
	b := program.NewBuilder()
	b.CreateFunc("loopsum", 2, 1, 7)

	outer := b.CreateLabel()
	outerDone := b.CreateLabel()
	inner := b.CreateLabel()
	innerDone := b.CreateLabel()

	b.MakeIntConst(0, 2) // acc = 0
	b.MakeIntConst(0, 3) // i = 0

	b.PlaceLabel(outer)
	b.IntEq(3, 0, 5) // condI = i == n
	b.JumpIfTrue(5, outerDone)
	b.MakeIntConst(0, 4) // j = 0

	b.PlaceLabel(inner)
	b.IntEq(4, 1, 6) // condJ = j == m
	b.JumpIfTrue(6, innerDone)
	b.Incr(2) // acc++
	b.Incr(4) // j++
	b.Jump(inner)

	b.PlaceLabel(innerDone)
	b.Incr(3) // i++
	b.Jump(outer)

	b.PlaceLabel(outerDone)
	b.ReturnOne(2)

	return b.Build()
}

// buildFFIAddProgram: fn main(a, b) { return hostAdd(a, b) }, where hostAdd
// is a host Go function bound through pkg/ffi.
func buildFFIAddProgram() *program.PackedProgram {
	b := program.NewBuilder()
	b.CreateFunc("main", 2, 1, 2)
	hf := ffi.Bind(func(a, c int64) int64 { return a + c })
	hostID := b.AddHostFunc(program.HostFuncEntry{Name: "hostAdd", Params: hf.Params, Return: hf.Return, Callable: hf})
	b.FFICall(hostID, []uint32{0, 1}, []uint32{1})
	b.ReturnOne(1)
	return b.Build()
}
