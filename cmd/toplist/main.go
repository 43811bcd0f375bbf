// Command toplist ranks a user's board games by pairwise questions.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/toplist/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own errors; argument and flag errors do not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
