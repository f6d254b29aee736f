package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)

	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		// Interrupted; cobra already reported whatever was in flight.
		return 1
	default:
		fmt.Fprintf(os.Stderr, "veil: %v\n", err)
		return 1
	}
}
