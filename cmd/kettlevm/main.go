// Command kettlevm is a reference embedder for the register-based bytecode
// VM implemented by the pkg/vm, pkg/program, pkg/stack, pkg/value, pkg/heap,
// pkg/tyck, and pkg/ffi packages. It mirrors the teacher repo's cmd/ralph-cc
// command-line shape: a cobra root command, persistent out/errOut writers,
// SilenceUsage/SilenceErrors, and a run()/main() split where main() only
// calls os.Exit.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kettlevm/kettlevm/pkg/program"
	"github.com/kettlevm/kettlevm/pkg/value"
	"github.com/kettlevm/kettlevm/pkg/vm"
)

var version = "0.1.0"

var debugMode bool

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kettlevm",
		Short:         "kettlevm runs and disassembles register-based bytecode programs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug-mode operand checks in the interpreter")

	rootCmd.AddCommand(newRunCmd(out, errOut))
	rootCmd.AddCommand(newDisasmCmd(out, errOut))
	rootCmd.AddCommand(newListCmd(out))

	return rootCmd
}

func newListCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list the built-in demo programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for name := range demoPrograms() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func newRunCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run <program>",
		Short: "run a built-in demo program and print its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			demo, ok := demoPrograms()[args[0]]
			if !ok {
				return fmt.Errorf("kettlevm: no such program %q (see `kettlevm list`)", args[0])
			}
			packedProg := demo.build()
			opts := vm.Options{Debug: debugMode}

			outputs, err := vm.RunFuncPacked(packedProg, demo.funcID, demo.args, opts)
			if err != nil {
				return err
			}
			for i, o := range outputs {
				fmt.Fprintf(out, "result[%d] = %s\n", i, formatValue(o))
			}
			return nil
		},
	}
}

func newDisasmCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <program>",
		Short: "disassemble a built-in demo program's packed instruction stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			demo, ok := demoPrograms()[args[0]]
			if !ok {
				return fmt.Errorf("kettlevm: no such program %q (see `kettlevm list`)", args[0])
			}
			packedProg := demo.build()
			program.NewPrinter(out).PrintProgram(packedProg)
			return nil
		},
	}
}

func formatValue(v value.Value) string {
	switch v.Kind() {
	case value.KindInt:
		return fmt.Sprintf("%d", v.Int())
	case value.KindFloat:
		return fmt.Sprintf("%g", v.Float())
	case value.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case value.KindChar:
		return fmt.Sprintf("%q", v.Char())
	case value.KindByte:
		return fmt.Sprintf("0x%02x", v.Byte())
	case value.KindNull:
		return "null"
	case value.KindPointer:
		if v.IsNull() {
			return "null"
		}
		return fmt.Sprintf("<%s %s>", v.Object().TypeName(), v.LifecycleState())
	default:
		return "?"
	}
}
