package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/swarmlang/swarm/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <input>",
	Short: "Compile and execute a Swarm program",
	Long: `Compile a Swarm source file and execute the resulting ISA on the
virtual machine.

Examples:
  # Run a program
  swarmc run program.swm

  # Run with a larger worker pool and source-position diagnostics
  swarmc run program.swm --max-threads=8 --debug`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	prog, err := compileSource(args[0], source)
	if err != nil {
		return err
	}
	// The CFG builder strips position annotations; in debug mode the
	// unoptimized stream runs instead so runtime errors keep their source
	// positions.
	if !debugEnabled() {
		prog, err = optimizeProgram(prog)
		if err != nil {
			return err
		}
	}

	machine, err := vm.New(prog, runtimeConfig())
	if err != nil {
		return &compileError{err: err}
	}
	machine.SetOutput(os.Stdout, os.Stderr)
	if err := machine.Run(); err != nil {
		return &runtimeError{err: err}
	}
	return nil
}
