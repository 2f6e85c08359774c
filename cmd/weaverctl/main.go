// Command weaverctl compiles a diagram definition into a spec document,
// following the CLI conventions of compiler/__main__.py and the cobra
// root-command wiring used elsewhere in the retrieval pack.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "weaverctl",
		Short:         "weaverctl compiles Sankey diagram definitions into routing specs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "weaverctl:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the exit codes documented for the CLI: 0
// on success, 1 on a user error (bad input, compile-time diagram error),
// 2 on an internal error (I/O failure, cache backend failure).
func exitCodeFor(err error) int {
	if _, ok := err.(userError); ok {
		return 1
	}
	return 2
}

// userError marks errors that stem from the caller's input rather than
// from an internal failure, so main can choose the right exit code.
type userError struct{ err error }

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

func asUserError(err error) error {
	if err == nil {
		return nil
	}
	return userError{err}
}
