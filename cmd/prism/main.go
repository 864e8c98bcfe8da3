package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/prismtools/prism/internal/cli"
	"github.com/prismtools/prism/pkg/prism"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(prism.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(prism.ExitCodeForError(err))
	}
}
