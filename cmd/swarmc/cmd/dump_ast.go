package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarmlang/swarm/internal/lexer"
	"github.com/swarmlang/swarm/internal/parser"
)

var dumpASTCmd = &cobra.Command{
	Use:   "dump-ast <input>",
	Short: "Print a program's parsed AST",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpAST,
}

func init() {
	rootCmd.AddCommand(dumpASTCmd)
}

func runDumpAST(_ *cobra.Command, args []string) error {
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	l := lexer.New(args[0], source)
	p := parser.New(l, args[0], source)
	prog := p.ParseProgram()
	if err := p.Diagnostics().Err(); err != nil {
		return err
	}
	fmt.Println(prog.String())
	return nil
}
