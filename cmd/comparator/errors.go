package comparator

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeContext is returned when a negative number of context lines is requested
	ErrNegativeContext = errors.New("context lines must be zero or greater")
	// ErrNoDiffEngine is returned when a comparator is built without an engine
	ErrNoDiffEngine = errors.New("no diff engine configured")
)

// DiffToolError reports a diff run that failed for reasons other than the
// inputs differing: the binary is missing, it exited with an unexpected
// status, or it ran past its timeout.
type DiffToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *DiffToolError) Error() string {
	detail := e.Stderr
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		detail = "unknown diff error"
	}
	return fmt.Sprintf("diff command %q failed (exit %d): %s", e.Command, e.ExitCode, detail)
}

func (e *DiffToolError) Unwrap() error {
	return e.Err
}
