package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errCriticalGaps) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// errCriticalGaps makes the process exit non-zero without an error line;
// the summary already lists the gaps.
var errCriticalGaps = errors.New("critical security gaps found")
