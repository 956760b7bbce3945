package solver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSolver writes a shell script standing in for a compiled solver.
func fakeSolver(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake solver scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "solver")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

// gridSolver emits a full sampling grid for one species, population
// counting down from the first init_pop value (default 100), but never
// past a wall-clock limit of t=5. Runs with end <= 5 complete; longer
// runs stop cleanly at t=5 and decode as paused.
const gridSolver = `
POP=100
while [ $# -gt 1 ]; do
  case "$1" in
    -end) END=$2 ;;
    -increment) INC=$2 ;;
    -timesteps) TS=$2 ;;
    -trajectories) TRAJ=$2 ;;
    -init_pop) POP=$2 ;;
  esac
  shift 2
done
awk -v end="$END" -v inc="$INC" -v ts="$TS" -v traj="$TRAJ" -v pop="$POP" 'BEGIN {
  n = ts
  if (end > 5) n = int(5 / inc) + 1
  for (k = 0; k < traj; k++)
    for (i = 0; i < n; i++)
      printf "%g,%g,", i * inc, pop - i * inc
  printf "%g", (n - 1) * inc
}'
`

func TestRun_Completed(t *testing.T) {
	exe := fakeSolver(t, gridSolver)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{})

	res, err := r.Run(context.Background(), Params{Trajectories: 2, End: 4, Increment: 1})
	require.NoError(t, err)

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, 4.0, res.TimeStopped)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, res.Time)
	require.Len(t, res.Trajectories, 2)
	assert.Equal(t, []float64{100}, res.Trajectories[0][0])
	assert.Equal(t, []float64{96}, res.Trajectories[1][4])
}

func TestRun_PausedOnShortOutput(t *testing.T) {
	exe := fakeSolver(t, gridSolver)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{})

	res, err := r.Run(context.Background(), Params{Trajectories: 1, End: 10, Increment: 1})
	require.NoError(t, err)

	assert.Equal(t, Paused, res.Status)
	assert.Equal(t, 5.0, res.TimeStopped)
	assert.Equal(t, []float64{95}, res.FinalPopulations(0))
}

func TestRun_FailedOnNonZeroExit(t *testing.T) {
	exe := fakeSolver(t, `echo "propensity underflow" >&2; exit 3`)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{})

	_, err := r.Run(context.Background(), Params{Trajectories: 1, End: 4, Increment: 1})
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.ExitCode)
	// Diagnostic text is preserved verbatim.
	assert.Contains(t, execErr.Diagnostic, "propensity underflow")
}

func TestRun_MissingMarkerFails(t *testing.T) {
	exe := fakeSolver(t, `printf "0,100,1,99,"`)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{})

	_, err := r.Run(context.Background(), Params{Trajectories: 1, End: 4, Increment: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestResume_SplicesContiguously(t *testing.T) {
	exe := fakeSolver(t, gridSolver)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{Variable: true})

	overrides := &Overrides{InitialPopulations: []float64{100}, Parameters: []float64{1}}

	paused, err := r.Run(context.Background(), Params{
		Trajectories: 1, End: 10, Increment: 1, Overrides: overrides,
	})
	require.NoError(t, err)
	require.Equal(t, Paused, paused.Status)
	require.Equal(t, 5.0, paused.TimeStopped)

	combined, err := r.Resume(context.Background(), paused, Params{
		Trajectories: 1, End: 10, Increment: 1, Overrides: overrides,
	})
	require.NoError(t, err)

	assert.Equal(t, Completed, combined.Status)
	assert.Equal(t, 10.0, combined.TimeStopped)

	// Strictly increasing times, no duplicate at the splice boundary.
	require.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, combined.Time)

	// The resumed segment started from the paused populations.
	require.Len(t, combined.Trajectories, 1)
	traj := combined.Trajectories[0]
	assert.Equal(t, []float64{95}, traj[5])
	assert.Equal(t, []float64{90}, traj[10])
}

func TestResume_RejectsMultiTrajectory(t *testing.T) {
	exe := fakeSolver(t, gridSolver)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{Variable: true})

	prev := &Results{
		Status:       Paused,
		Species:      []string{"A"},
		Time:         []float64{0, 1},
		Trajectories: [][][]float64{{{100}, {99}}, {{100}, {98}}},
		TimeStopped:  1,
	}

	_, err := r.Resume(context.Background(), prev, Params{
		Trajectories: 2, End: 10, Increment: 1,
		Overrides: &Overrides{InitialPopulations: []float64{100}, Parameters: []float64{1}},
	})
	require.ErrorIs(t, err, ErrMultiTrajectoryResume)
}

func TestResume_RejectsChangedModel(t *testing.T) {
	exe := fakeSolver(t, gridSolver)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{Variable: true})

	// Results produced by a model whose species order no longer matches
	// the rebuilt solver.
	prev := &Results{
		Status:       Paused,
		Species:      []string{"B"},
		Time:         []float64{0, 1},
		Trajectories: [][][]float64{{{100}, {99}}},
		TimeStopped:  1,
	}

	_, err := r.Resume(context.Background(), prev, Params{
		Trajectories: 1, End: 10, Increment: 1,
		Overrides: &Overrides{InitialPopulations: []float64{100}, Parameters: []float64{1}},
	})
	require.ErrorIs(t, err, ErrModelMismatch)
}

func TestResume_RejectsEarlierEndTime(t *testing.T) {
	exe := fakeSolver(t, gridSolver)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{Variable: true})

	prev := &Results{
		Status:       Paused,
		Species:      []string{"A"},
		Time:         []float64{0, 1, 2, 3, 4, 5},
		Trajectories: [][][]float64{{{100}, {99}, {98}, {97}, {96}, {95}}},
		TimeStopped:  5,
	}

	_, err := r.Resume(context.Background(), prev, Params{
		Trajectories: 1, End: 3, Increment: 1,
		Overrides: &Overrides{InitialPopulations: []float64{100}, Parameters: []float64{1}},
	})
	require.ErrorIs(t, err, ErrResumeBeforePause)
}

func TestRun_TimeoutPausesCleanStopper(t *testing.T) {
	// The fake solver emits half the grid, then waits for an interrupt
	// and emits the stop marker on the way out, like the real template.
	exe := fakeSolver(t, `
trap 'printf "2"; exit 0' INT TERM
printf "0,100,1,99,2,98,"
sleep 30 &
wait $!
`)
	r := NewRunner(exe, []string{"A"}, RunnerOptions{Timeout: time.Second})

	res, err := r.Run(context.Background(), Params{Trajectories: 1, End: 10, Increment: 1})
	require.NoError(t, err)
	assert.Equal(t, Paused, res.Status)
	assert.Equal(t, 2.0, res.TimeStopped)
}

type captureDisplay struct {
	mu      sync.Mutex
	updates []*Results
}

func (c *captureDisplay) Update(partial *Results) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, partial)
}

func (c *captureDisplay) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func TestRun_LiveDisplayReceivesPartials(t *testing.T) {
	// Emits an early record immediately, then finishes after the live
	// ticker has had time to snapshot.
	exe := fakeSolver(t, `
printf "0,100,"
sleep 1
printf "1,99,2,98,2"
`)
	disp := &captureDisplay{}
	r := NewRunner(exe, []string{"A"}, RunnerOptions{Display: disp})

	res, err := r.Run(context.Background(), Params{Trajectories: 1, End: 2, Increment: 1})
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Status)
	assert.GreaterOrEqual(t, disp.count(), 1)

	first := disp.updates[0]
	require.NotEmpty(t, first.Trajectories)
	assert.Equal(t, []float64{100}, first.Trajectories[0][0])
}

func TestRun_ValidatesParams(t *testing.T) {
	r := NewRunner("/nonexistent", []string{"A"}, RunnerOptions{})

	_, err := r.Run(context.Background(), Params{Trajectories: 0, End: 1, Increment: 1})
	require.Error(t, err)

	_, err = r.Run(context.Background(), Params{Trajectories: 1, End: 0, Increment: 1})
	require.Error(t, err)
}
