package solver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/bionetgo/crnc/internal/sanitize"
)

// Params are the knobs of one simulation run.
type Params struct {
	// Trajectories is the number of independent trajectories to simulate.
	Trajectories int

	// End is the final sample time; Increment the grid spacing.
	End       float64
	Increment float64

	// Seed, when non-nil, pins the native program's RNG. Nil lets the
	// program pick its own.
	Seed *int64

	// Overrides carries variable-mode initial populations and parameter
	// values. Nil outside variable builds.
	Overrides *Overrides
}

// Timesteps returns the sample count over the span, including t=0.
func (p Params) Timesteps() int {
	return int(p.End/p.Increment+0.5) + 1
}

// Overrides are positional variable-mode tables, ordered by sanitized
// index. Both are always full-length.
type Overrides struct {
	InitialPopulations []float64
	Parameters         []float64
}

// BuildOverrides resolves a name-keyed override map against a sanitized
// model into positional tables. Unnamed entries keep the model's declared
// values. Every parameter must resolve to a number in variable mode, since
// the tables are serialized onto the command line.
func BuildOverrides(sm *sanitize.Model, variables map[string]any) (*Overrides, error) {
	var typed map[string]float64
	if err := mapstructure.WeakDecode(variables, &typed); err != nil {
		return nil, fmt.Errorf("invalid variable overrides: %w", err)
	}

	out := &Overrides{
		InitialPopulations: make([]float64, len(sm.Species)),
		Parameters:         make([]float64, len(sm.Parameters)),
	}
	used := make(map[string]bool, len(typed))

	for i, s := range sm.Species {
		out.InitialPopulations[i] = s.Initial
		if v, ok := typed[s.Name]; ok {
			out.InitialPopulations[i] = v
			used[s.Name] = true
		}
	}
	for i, p := range sm.Parameters {
		if v, ok := typed[p.Name]; ok {
			out.Parameters[i] = v
			used[p.Name] = true
			continue
		}
		v, err := strconv.ParseFloat(p.Expression, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q is not numeric and has no override", p.Name)
		}
		out.Parameters[i] = v
	}

	for name := range typed {
		if !used[name] {
			return nil, fmt.Errorf("override %q matches no species or parameter", name)
		}
	}
	return out, nil
}

// buildArgs constructs the solver invocation. The interval always equals
// the timestep count; the seed is included only when supplied; override
// tables are appended only in variable builds.
func buildArgs(p Params, variable bool) []string {
	timesteps := p.Timesteps()
	args := []string{
		"-trajectories", strconv.Itoa(p.Trajectories),
		"-timesteps", strconv.Itoa(timesteps),
		"-end", strconv.FormatFloat(p.End, 'g', -1, 64),
		"-increment", strconv.FormatFloat(p.Increment, 'g', -1, 64),
		"-interval", strconv.Itoa(timesteps),
	}
	if p.Seed != nil {
		args = append(args, "-seed", strconv.FormatInt(*p.Seed, 10))
	}
	if variable && p.Overrides != nil {
		args = append(args,
			"-init_pop", joinFloats(p.Overrides.InitialPopulations),
			"-parameters", joinFloats(p.Overrides.Parameters),
		)
	}
	return args
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
