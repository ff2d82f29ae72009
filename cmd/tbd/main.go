// Command tbd is the thin cobra frontend over the sync engine, worktree
// manager, and doctor diagnostics. Argument parsing and presentation are
// explicitly out of scope for the underlying packages (spec.md §1); this
// file and its siblings only wire flags onto internal/sync, internal/doctor,
// and internal/worktree.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jlevy/tbd/internal/terrors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var te *terrors.Error
	if errors.As(err, &te) {
		return te.Kind.ExitCode()
	}
	return 1
}
