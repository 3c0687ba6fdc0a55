// Command boxc compiles Box source into target-VM assembly (spec §6).
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arti-max/boxlang4/internal/ast"
	"github.com/arti-max/boxlang4/internal/compiler"
	"github.com/arti-max/boxlang4/internal/diagnostics"
)

func main() {
	var (
		outputPath       string
		optimizationFlag int
		dumpAST          bool
		verbose          bool
	)

	root := &cobra.Command{
		Use:   "boxc <input>",
		Short: "Compile Box source to target-VM assembly",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if optimizationFlag < 0 || optimizationFlag > 3 {
				return fmt.Errorf("-O/--optimization must be 0, 1, 2, or 3, got %d", optimizationFlag)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], outputPath, optimizationFlag, dumpAST, verbose)
		},
	}

	root.Flags().StringVarP(&outputPath, "output", "o", "a.out", "output path for generated assembly")
	root.Flags().IntVarP(&optimizationFlag, "optimization", "O", 0, "optimization level (0-3)")
	root.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the parsed AST and exit")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace pipeline stage timings to stderr")

	if err := root.Execute(); err != nil {
		if _, silent := err.(silentError); !silent {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(inputPath, outputPath string, optimizationLevel int, dumpAST, verbose bool) error {
	r := diagnostics.New(os.Stderr)

	if dumpAST {
		prog, err := compiler.ParseFile(inputPath, r)
		if err != nil {
			return exitWithoutMessage(err)
		}
		ast.Print(os.Stdout, prog)
		return nil
	}

	var tracer compiler.StageTracer
	if verbose {
		logger := log.New(os.Stderr, "", 0)
		tracer = func(stage string, elapsed time.Duration, detail string) {
			if detail != "" {
				logger.Printf("[%s] %s in %s", stage, detail, elapsed)
			} else {
				logger.Printf("[%s] done in %s", stage, elapsed)
			}
		}
	}

	result, err := compiler.CompileFile(inputPath, r, compiler.Options{
		OptimizationLevel: optimizationLevel,
		Trace:             tracer,
	})
	if err != nil {
		return exitWithoutMessage(err)
	}

	if err := os.WriteFile(outputPath, []byte(result.Assembly), 0o644); err != nil {
		return fmt.Errorf("fatal error: could not write to output file '%s'", outputPath)
	}

	fmt.Printf("Compilation successful. Output written to '%s'.\n", outputPath)
	return nil
}

// exitWithoutMessage converts a pipeline error into a cobra RunE
// return that exits with status 1 but prints no second message: a
// post-diagnostic abort already had its diagnostics written to stderr
// by the reporter, and an I/O-not-found error gets its own
// "fatal error:" framing here instead of cobra's default.
func exitWithoutMessage(err error) error {
	if compiler.IsAbort(err) {
		return silentError{}
	}
	return fmt.Errorf("fatal error: %s", err)
}

type silentError struct{}

func (silentError) Error() string { return "" }
