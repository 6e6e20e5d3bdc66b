// Command amlrun is a minimal driver exercising pkg/aml: it runs a source
// file (or an inline -e expression) to completion and reports the result,
// without the REPL/debugger surface this project deliberately omits.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aml-lang/aml/pkg/aml"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "amlrun",
	Short:   "Run scripts against the embeddable interpreter",
	Version: version,
}

func main() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("amlrun version %s (%s)\n", version, commit))
	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	evalExpr    string
	searchPaths []string
	entrypoint  string
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a script file or an inline expression",
	Long: `Execute a script from a file or inline source.

Examples:
  amlrun run script.aml
  amlrun run -e 'print("hello")'
  amlrun run --entrypoint main script.aml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline source instead of reading from a file")
	runCmd.Flags().StringSliceVar(&searchPaths, "search-path", nil, "additional import search path (repeatable)")
	runCmd.Flags().StringVar(&entrypoint, "entrypoint", "", "dotted function name to invoke after the top-level program runs")
}

func runScript(_ *cobra.Command, args []string) error {
	rt := aml.New(context.Background())
	for _, p := range searchPaths {
		rt.AddAmlSearchPath(p)
	}
	if entrypoint != "" {
		rt.SetEntrypoint(entrypoint)
	}

	var (
		result interface{ Inspect() string }
		err    error
	)

	if evalExpr != "" {
		v, runErr := rt.RunSource(evalExpr)
		result, err = v, runErr
	} else if len(args) == 1 {
		v, runErr := rt.RunFile(args[0])
		result, err = v, runErr
	} else {
		return fmt.Errorf("either provide a file path or use -e for inline source")
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return fmt.Errorf("run failed")
	}

	if entrypoint != "" {
		ev, evErr := rt.InvokeEntrypoint()
		if evErr != nil {
			fmt.Fprintln(os.Stderr, evErr)
			return fmt.Errorf("entrypoint failed")
		}
		result = ev
	}

	if result != nil {
		fmt.Println(result.Inspect())
	}
	return nil
}
