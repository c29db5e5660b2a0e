// Package main provides the CLI entry point for gitlab-mr-conflict-detector.
package main

import (
	"fmt"
	"os"

	"github.com/galushkoart/gitlab-mr-conflict-detector/pkg/errors"
)

// Exit codes per §6/§7 of the conflict-detection specification.
const (
	ExitNoConflicts = 0
	ExitConflicts   = 1
	ExitError       = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if _, ok := err.(*conflictsDetectedError); ok {
		return ExitConflicts
	}
	if appErr, ok := err.(*errors.AppError); ok {
		fmt.Fprintf(os.Stderr, "Error: %s\n", appErr.Message)
		if appErr.Context != "" {
			fmt.Fprintf(os.Stderr, "Context: %s\n", appErr.Context)
		}
		return ExitError
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	return ExitError
}
