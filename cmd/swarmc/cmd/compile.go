package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swarmlang/swarm/internal/isa"
)

var (
	compileOut    string
	compileBinary bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <input>",
	Short: "Compile a Swarm program to ISA",
	Long: `Compile a Swarm source file through name analysis, type analysis,
lowering, and the CFG optimizer, and emit the resulting ISA stream.

Examples:
  # Print the textual ISA to stdout
  swarmc compile program.swm

  # Write the binary ISA form
  swarmc compile program.swm --binary -o program.svi`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&compileOut, "output", "o", "", "write to a file instead of stdout")
	compileCmd.Flags().BoolVar(&compileBinary, "binary", false, "emit the binary ISA form instead of text")
}

func runCompile(_ *cobra.Command, args []string) error {
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	prog, err := compileSource(args[0], source)
	if err != nil {
		return err
	}
	prog, err = optimizeProgram(prog)
	if err != nil {
		return err
	}

	var payload []byte
	if compileBinary {
		payload, err = isa.EncodeProgram(prog)
		if err != nil {
			return &compileError{err: err}
		}
	} else {
		payload = []byte(prog.String())
	}

	if compileOut == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(compileOut, payload, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", compileOut, err)
	}
	return nil
}
