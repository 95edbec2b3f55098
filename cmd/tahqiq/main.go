package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mawsuah/tahqiq/internal/cli"
	"github.com/mawsuah/tahqiq/internal/model"
)

// Exit statuses, scriptable by operators.
const (
	exitOK             = 0
	exitFatal          = 1 // Configuration or storage failure
	exitPartialFailure = 2 // Run finished with permanently failed items
	exitBudgetExceeded = 3 // Hard cost limit halted the run
)

func main() {
	err := cli.Execute()
	if err == nil {
		os.Exit(exitOK)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, model.ErrBudgetExceeded):
		os.Exit(exitBudgetExceeded)
	case errors.Is(err, cli.ErrPartialFailure):
		os.Exit(exitPartialFailure)
	default:
		os.Exit(exitFatal)
	}
}
