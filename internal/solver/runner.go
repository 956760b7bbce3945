// Package solver supervises compiled simulation executables: it constructs
// their invocation arguments, runs them under an optional timeout with live
// partial output, decodes their raw output stream and manages pause/resume
// across runs.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"
)

// Display receives partial result snapshots while a run is in progress.
// Updates arrive from an auxiliary goroutine; the final decode never
// blocks on the display.
type Display interface {
	Update(partial *Results)
}

// liveInterval is how often a live display is fed a fresh snapshot.
const liveInterval = 500 * time.Millisecond

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Variable marks the executable as a variable-mode build accepting
	// population and parameter overrides.
	Variable bool

	// Timeout bounds a run; zero means unbounded. A run cut off by the
	// timeout pauses rather than fails when its output allows it.
	Timeout time.Duration

	// Display, when set, receives live partial snapshots.
	Display Display

	Logger *slog.Logger
}

// Runner executes one solver executable. It is stateless across runs; an
// execution record lives only for the duration of one Run call.
type Runner struct {
	executable string
	species    []string
	variable   bool
	timeout    time.Duration
	display    Display
	logger     *slog.Logger
}

// NewRunner wraps a built executable. species is the sanitized species
// name order, which fixes the meaning of every decoded column.
func NewRunner(executable string, species []string, opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		executable: executable,
		species:    species,
		variable:   opts.Variable,
		timeout:    opts.Timeout,
		display:    opts.Display,
		logger:     logger,
	}
}

// Run executes the solver with the given parameters and decodes its
// output. A timed-out run that stopped at a clean output boundary returns
// Paused results and a nil error; PausedExecution is an outcome, not a
// failure.
func (r *Runner) Run(ctx context.Context, p Params) (*Results, error) {
	if err := r.validate(p); err != nil {
		return nil, err
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := buildArgs(p, r.variable)
	cmd := exec.CommandContext(runCtx, r.executable, args...)
	// On timeout, interrupt so the program can emit its stop marker at a
	// clean boundary; escalate to kill if it ignores the signal.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout lockedBuffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stopLive := r.startLive(&stdout, p)
	r.logger.Debug("starting simulation", "exe", r.executable, "args", args)

	runErr := cmd.Run()
	stopLive()

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled)

	dec, decErr := decodeOutput(stdout.Bytes(), p.Trajectories, p.Timesteps(), len(r.species))
	if decErr != nil {
		return nil, &ExecutionError{
			ExitCode:   exitCode(cmd),
			Diagnostic: stderr.String(),
			Err:        decErr,
		}
	}

	results := &Results{
		Species:      r.species,
		Time:         dec.times,
		Trajectories: dec.trajectories,
		TimeStopped:  dec.timeStopped,
	}

	switch {
	case !dec.complete:
		// Output stopped early but cleanly: a resumable pause, whether
		// from our timeout or an external interruption.
		results.Status = Paused
		r.logger.Info("simulation paused", "time_stopped", dec.timeStopped, "timed_out", timedOut)
	case runErr != nil && !timedOut:
		return nil, &ExecutionError{
			ExitCode:   exitCode(cmd),
			Diagnostic: stderr.String(),
			Err:        runErr,
		}
	default:
		results.Status = Completed
	}
	return results, nil
}

// Resume continues a paused single-trajectory run to a new end time. The
// remaining span is simulated from the paused populations and spliced onto
// prev so the combined series is contiguous with no duplicated boundary
// sample. Requires a variable-mode build.
func (r *Runner) Resume(ctx context.Context, prev *Results, p Params) (*Results, error) {
	if prev.Status != Paused {
		return nil, fmt.Errorf("only paused runs can be resumed (status %s)", prev.Status)
	}
	if !slices.Equal(prev.Species, r.species) {
		return nil, fmt.Errorf("%w: prior species %v, model species %v",
			ErrModelMismatch, prev.Species, r.species)
	}
	if p.Trajectories != 1 || len(prev.Trajectories) != 1 {
		return nil, ErrMultiTrajectoryResume
	}
	if !r.variable {
		return nil, fmt.Errorf("resume requires a variable-mode build")
	}
	if p.Overrides == nil {
		return nil, fmt.Errorf("resume requires parameter overrides for the variable build")
	}

	remaining := p.End - prev.TimeStopped
	if remaining <= 0 {
		return nil, fmt.Errorf("%w: end %g, paused at %g", ErrResumeBeforePause, p.End, prev.TimeStopped)
	}

	seg := p
	seg.End = remaining
	seg.Overrides = &Overrides{
		InitialPopulations: prev.FinalPopulations(0),
		Parameters:         p.Overrides.Parameters,
	}

	segResults, err := r.Run(ctx, seg)
	if err != nil {
		return nil, err
	}
	return splice(prev, segResults, prev.TimeStopped), nil
}

func (r *Runner) validate(p Params) error {
	if p.Trajectories < 1 {
		return fmt.Errorf("trajectory count must be at least 1, got %d", p.Trajectories)
	}
	if p.End <= 0 || p.Increment <= 0 {
		return fmt.Errorf("end time and increment must be positive")
	}
	if r.variable && p.Overrides == nil {
		return fmt.Errorf("variable-mode build requires overrides")
	}
	return nil
}

// exitCode reports the child's exit code, or -1 if it never started.
func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// startLive feeds the display partial snapshots until the returned stop
// function is called. Without a display it does nothing.
func (r *Runner) startLive(buf *lockedBuffer, p Params) func() {
	if r.display == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(liveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				dec, ok := decodePartial(buf.Snapshot(), p.Trajectories, p.Timesteps(), len(r.species))
				if !ok {
					continue
				}
				r.display.Update(&Results{
					Species:      r.species,
					Time:         dec.times,
					Trajectories: dec.trajectories,
					TimeStopped:  dec.timeStopped,
				})
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// lockedBuffer is a write buffer safe to snapshot while the child process
// is still writing to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Snapshot copies the current contents.
func (b *lockedBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}
