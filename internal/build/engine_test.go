package build

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bionetgo/crnc/internal/sanitize"
	"github.com/bionetgo/crnc/internal/solver"
	"github.com/bionetgo/crnc/pkg/model"
)

func sanitizedModel(t *testing.T) *sanitize.Model {
	t.Helper()
	m := model.New("test")
	require.NoError(t, m.AddSpecies(&model.Species{Name: "A", InitialValue: 10}))
	require.NoError(t, m.AddParameter(&model.Parameter{Name: "k", Expression: "0.1"}))
	require.NoError(t, m.AddReaction(&model.Reaction{
		Name:      "decay",
		Reactants: map[string]int{"A": 1},
		Products:  map[string]int{},
		Rate:      "k",
	}))
	sm, err := sanitize.Sanitize(m)
	require.NoError(t, err)
	return sm
}

func TestPrepare_MaterializesTemplate(t *testing.T) {
	eng, err := New(Options{Dir: t.TempDir(), Retain: true})
	require.NoError(t, err)

	require.NoError(t, eng.Prepare(sanitizedModel(t), false))

	// The build driver and core sources land in the workspace root.
	assert.FileExists(t, filepath.Join(eng.Workspace(), "Makefile"))
	assert.FileExists(t, filepath.Join(eng.Workspace(), "simulation.c"))

	// The placeholder definitions are replaced by generated ones.
	data, err := os.ReadFile(filepath.Join(eng.TemplateDir(), "definitions.h"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "#define CRN_NUM_SPECIES 1")
	assert.Contains(t, string(data), "#define CRN_PROPENSITIES PROPENSITY(0,P0*S0)")
	assert.NotContains(t, string(data), "Placeholder definitions")
}

func TestBuild_RequiresPreparation(t *testing.T) {
	eng, err := New(Options{Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = eng.Build(context.Background(), "ssa")
	require.Error(t, err)
}

func TestBuild_RejectsUnknownTarget(t *testing.T) {
	eng, err := New(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, eng.Prepare(sanitizedModel(t), false))

	_, err = eng.Build(context.Background(), "tau-hybrid")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown solver target")
}

func TestClean_Idempotent(t *testing.T) {
	eng, err := New(Options{})
	require.NoError(t, err)
	require.DirExists(t, eng.Workspace())

	require.NoError(t, eng.Clean())
	assert.NoDirExists(t, eng.Workspace())

	// Second clean on an already-removed workspace is not an error.
	require.NoError(t, eng.Clean())
}

func TestClean_RetainKeepsWorkspace(t *testing.T) {
	dir := t.TempDir()
	eng, err := New(Options{Dir: dir, Retain: true})
	require.NoError(t, err)

	require.NoError(t, eng.Clean())
	assert.DirExists(t, dir)
}

func TestMissingDependencies_SubsetOfKnownTools(t *testing.T) {
	missing := MissingDependencies()
	for _, tool := range missing {
		assert.Contains(t, dependencies, tool)
	}
}

func TestBuild_MissingToolchainFailsBeforeSpawn(t *testing.T) {
	eng, err := New(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, eng.Prepare(sanitizedModel(t), false))

	t.Setenv("PATH", "")

	_, err = eng.Build(context.Background(), "ssa")
	var tcErr *ToolchainError
	require.ErrorAs(t, err, &tcErr)
	assert.ElementsMatch(t, []string{"cc", "make"}, tcErr.Missing)

	// The probe fails before any process runs or output lands.
	assert.NoDirExists(t, filepath.Join(eng.Workspace(), "obj"))
	assert.NoDirExists(t, filepath.Join(eng.Workspace(), "bin"))
}

// decayModel is a pure-decay network large enough that a correct
// stochastic stepper is certain to fire within the span.
func decayModel(t *testing.T) *sanitize.Model {
	t.Helper()
	m := model.New("decay")
	require.NoError(t, m.AddSpecies(&model.Species{Name: "A", InitialValue: 1000}))
	require.NoError(t, m.AddParameter(&model.Parameter{Name: "k", Expression: "0.1"}))
	require.NoError(t, m.AddReaction(&model.Reaction{
		Name:      "decay",
		Reactants: map[string]int{"A": 1},
		Rate:      "k",
	}))
	sm, err := sanitize.Sanitize(m)
	require.NoError(t, err)
	return sm
}

// Compiles and runs the real native template end to end. Skipped where
// the host toolchain is incomplete.
func TestBuildAndRun_StochasticDecay(t *testing.T) {
	if missing := MissingDependencies(); len(missing) > 0 {
		t.Skipf("missing toolchain: %v", missing)
	}

	eng, err := New(Options{Dir: t.TempDir(), Retain: true})
	require.NoError(t, err)
	require.NoError(t, eng.Prepare(decayModel(t), false))
	exe, err := eng.Build(context.Background(), "ssa")
	require.NoError(t, err)

	seed := int64(42)
	r := solver.NewRunner(exe, []string{"A"}, solver.RunnerOptions{})
	res, err := r.Run(context.Background(), solver.Params{
		Trajectories: 1, End: 10, Increment: 1, Seed: &seed,
	})
	require.NoError(t, err)

	require.Equal(t, solver.Completed, res.Status)
	require.Len(t, res.Time, 11)
	final := res.FinalPopulations(0)[0]
	assert.Less(t, final, 1000.0, "decay must fire over the span")
	assert.GreaterOrEqual(t, final, 0.0)
}

func TestBuildAndRun_DeterministicDecay(t *testing.T) {
	if missing := MissingDependencies(); len(missing) > 0 {
		t.Skipf("missing toolchain: %v", missing)
	}

	eng, err := New(Options{Dir: t.TempDir(), Retain: true})
	require.NoError(t, err)
	require.NoError(t, eng.Prepare(decayModel(t), false))
	exe, err := eng.Build(context.Background(), "ode")
	require.NoError(t, err)

	r := solver.NewRunner(exe, []string{"A"}, solver.RunnerOptions{})
	res, err := r.Run(context.Background(), solver.Params{
		Trajectories: 1, End: 10, Increment: 1,
	})
	require.NoError(t, err)

	require.Equal(t, solver.Completed, res.Status)
	// dA/dt = -0.1*A from A(0)=1000: A(10) = 1000*e^-1.
	assert.InDelta(t, 1000*math.Exp(-1), res.FinalPopulations(0)[0], 1.0)
}
