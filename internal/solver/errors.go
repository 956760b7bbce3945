package solver

import (
	"errors"
	"fmt"
)

// ErrMultiTrajectoryResume is returned when resume is requested for a run
// with more than one trajectory. Resume is defined for single-trajectory
// runs only; the request is rejected before any process is spawned.
var ErrMultiTrajectoryResume = errors.New("resume is only supported for single-trajectory runs")

// ErrResumeBeforePause is returned when a resume's end time is not later
// than the time already simulated.
var ErrResumeBeforePause = errors.New("resume end time must be later than the paused time")

// ErrModelMismatch is returned when prior results were produced by a
// different model than the one the solver was rebuilt from. Splicing
// across models would silently misalign every species column.
var ErrModelMismatch = errors.New("prior results do not match the model")

// ExecutionError reports a child process that exited non-zero or produced
// undecodable output. Diagnostic carries the process's stderr verbatim.
type ExecutionError struct {
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("simulation failed (exit %d): %v\n%s", e.ExitCode, e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("simulation failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
