package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarmlang/swarm/internal/lexer"
)

var dumpTokensCmd = &cobra.Command{
	Use:   "dump-tokens <input>",
	Short: "Print a program's token stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpTokens,
}

func init() {
	rootCmd.AddCommand(dumpTokensCmd)
}

func runDumpTokens(_ *cobra.Command, args []string) error {
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	l := lexer.New(args[0], source)
	for {
		tok := l.NextToken()
		fmt.Printf("%d:%d\t%-12s %q\n", tok.Pos.StartLine, tok.Pos.StartCol, tok.Type, tok.Literal)
		if tok.Type == lexer.EOF {
			return nil
		}
	}
}
