// Package cmd implements the swarmc command tree.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/swarmlang/swarm/internal/cfg"
	"github.com/swarmlang/swarm/internal/diag"
	"github.com/swarmlang/swarm/internal/isa"
	"github.com/swarmlang/swarm/internal/lexer"
	"github.com/swarmlang/swarm/internal/lower"
	"github.com/swarmlang/swarm/internal/parser"
	"github.com/swarmlang/swarm/internal/semantic"
	"github.com/swarmlang/swarm/internal/vm"
)

// Exit codes: 0 success, 1 parse/analysis failure, 2 runtime
// failure, 3 CLI misuse.
const (
	exitOK       = 0
	exitCompile  = 1
	exitRuntime  = 2
	exitCLIUsage = 3
)

var (
	flagDebug            bool
	flagNoConstProp      bool
	flagNoRemoveSelfAsgn bool
	flagFoldConstants    bool
	flagMaxThreads       int
	flagQueueSleepUS     int
	flagLockMaxRetries   int
)

var rootCmd = &cobra.Command{
	Use:   "swarmc",
	Short: "Swarm compiler and virtual machine",
	Long: `swarmc compiles Swarm source to the flat three-address ISA and
executes it on the multi-threaded Swarm virtual machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runtimeError distinguishes execution failures (exit 2) from compile
// failures (exit 1).
type runtimeError struct{ err error }

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

// Execute runs the root command and maps its failure onto the exit
// codes above.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	var stage *diag.StageError
	if errors.As(err, &stage) {
		fmt.Fprintln(os.Stderr, stage.Format(isTerminal(os.Stderr)))
		return exitCompile
	}
	var rt *runtimeError
	if errors.As(err, &rt) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", rt.err)
		return exitRuntime
	}
	var compile *compileError
	if errors.As(err, &compile) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", compile.err)
		return exitCompile
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCLIUsage
}

// compileError marks non-diagnostic pipeline failures (I/O on the input,
// internal lowering faults) that still belong to exit code 1.
type compileError struct{ err error }

func (e *compileError) Error() string { return e.err.Error() }
func (e *compileError) Unwrap() error { return e.err }

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagDebug, "debug", false, "emit position annotations and runtime source positions")
	pf.BoolVar(&flagNoConstProp, "no-const-prop", false, "disable the constant-propagation pass")
	pf.BoolVar(&flagNoRemoveSelfAsgn, "no-remove-self-assign", false, "disable dead self-assignment removal")
	pf.BoolVar(&flagFoldConstants, "fold-constants", false, "fold literal-operand arithmetic in the optimizer")
	pf.IntVar(&flagMaxThreads, "max-threads", 0, "queue worker pool size (default: SWARM_MAX_THREADS or 4)")
	pf.IntVar(&flagQueueSleepUS, "queue-sleep", 0, "cooperative yield interval in microseconds (default: SWARM_QUEUE_SLEEP_US)")
	pf.IntVar(&flagLockMaxRetries, "lock-max-retries", 0, "lock acquisition attempts before failing (default: SWARM_LOCK_MAX_RETRIES)")
}

// debugEnabled folds the --debug flag with the SWARM_DEBUG environment
// variable; the flag wins when set.
func debugEnabled() bool {
	if flagDebug {
		return true
	}
	return vm.ConfigFromEnv().Debug
}

// runtimeConfig resolves the VM tunables: environment first, flags on
// top.
func runtimeConfig() vm.Config {
	cfg := vm.ConfigFromEnv()
	if flagMaxThreads > 0 {
		cfg.MaxThreads = flagMaxThreads
	}
	if flagQueueSleepUS > 0 {
		cfg.QueueSleep = time.Duration(flagQueueSleepUS) * time.Microsecond
	}
	if flagLockMaxRetries > 0 {
		cfg.LockMaxRetries = flagLockMaxRetries
	}
	cfg.Debug = debugEnabled()
	return cfg
}

func optimizerOptions() cfg.Options {
	opts := cfg.DefaultOptions()
	opts.ConstProp = !flagNoConstProp
	opts.RemoveSelfAssign = !flagNoRemoveSelfAsgn
	opts.FoldConstants = flagFoldConstants
	return opts
}

// readSource loads the input file for a command.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &compileError{err: fmt.Errorf("cannot read %s: %w", path, err)}
	}
	return string(data), nil
}

// compileSource runs the front half of the pipeline: lex/parse, name and
// type analysis, lowering. Diagnostics surface as *diag.StageError.
func compileSource(file, source string) (*isa.Program, error) {
	l := lexer.New(file, source)
	p := parser.New(l, file, source)
	prog := p.ParseProgram()
	if err := p.Diagnostics().Err(); err != nil {
		return nil, err
	}

	types, err := semantic.Analyze(file, source, prog)
	if err != nil {
		return nil, err
	}

	lowered, err := lower.Lower(prog, types, debugEnabled())
	if err != nil {
		return nil, &compileError{err: err}
	}
	return lowered, nil
}

// optimizeProgram runs the CFG optimizer over a lowered program and
// reconstructs the linear stream.
func optimizeProgram(prog *isa.Program) (*isa.Program, error) {
	graph, err := cfg.Build(prog)
	if err != nil {
		return nil, &compileError{err: err}
	}
	cfg.Optimize(graph, optimizerOptions())
	return graph.Reconstruct(), nil
}
