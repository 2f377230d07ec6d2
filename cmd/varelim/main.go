// Command varelim runs exact inference queries over CUE-defined Bayesian
// networks by variable elimination.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/varelim/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands report their own ExitErrors; anything else (bad flags,
		// invalid --format) has not been printed yet.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
