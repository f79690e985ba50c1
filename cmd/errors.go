package cmd

import (
	"errors"
	"fmt"

	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

const (
	exitFailure  = 1
	exitProblems = 2
)

// UnknownKindError indicates a check name that is not in the catalog.
type UnknownKindError struct {
	Name string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown check %q (run 'seca-audit catalog' to list checks)", e.Name)
}

func (e *UnknownKindError) Unwrap() error {
	return sharedErrors.ErrUnknownKind
}

// ProblemsError signals that a strict run finished with fail or error results.
type ProblemsError struct {
	Problems int
	Total    int
}

func (e *ProblemsError) Error() string {
	return fmt.Sprintf("%d of %d checks reported problems", e.Problems, e.Total)
}

// ProfileError signals that the network profile resolved only partially.
type ProfileError struct {
	Message string
}

func (e *ProfileError) Error() string {
	return "network profile incomplete: " + e.Message
}

// exitCode separates "the audit found problems" from "the tool failed".
func exitCode(err error) int {
	var problems *ProblemsError
	if errors.As(err, &problems) {
		return exitProblems
	}
	return exitFailure
}
