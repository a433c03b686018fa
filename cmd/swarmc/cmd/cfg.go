package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swarmlang/swarm/internal/cfg"
)

var cfgOut string

var cfgCmd = &cobra.Command{
	Use:   "cfg <input>",
	Short: "Emit a program's control-flow graph as DOT",
	Long: `Compile a Swarm source file, build its control-flow graph, run the
enabled optimizer passes, and emit the graph in Graphviz DOT form.

Example:
  swarmc cfg program.swm | dot -Tsvg -o program.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runCfg,
}

func init() {
	rootCmd.AddCommand(cfgCmd)
	cfgCmd.Flags().StringVarP(&cfgOut, "output", "o", "", "write to a file instead of stdout")
}

func runCfg(_ *cobra.Command, args []string) error {
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	prog, err := compileSource(args[0], source)
	if err != nil {
		return err
	}
	graph, err := cfg.Build(prog)
	if err != nil {
		return &compileError{err: err}
	}
	cfg.Optimize(graph, optimizerOptions())

	dot := graph.Dot()
	if cfgOut == "" {
		fmt.Print(dot)
		return nil
	}
	if err := os.WriteFile(cfgOut, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", cfgOut, err)
	}
	return nil
}
