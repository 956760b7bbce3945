package solver

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Status classifies how a run terminated. Exactly one applies.
type Status int

const (
	// Completed means the full expected output is present.
	Completed Status = iota
	// Paused means the run was interrupted or timed out but stopped at
	// a clean output boundary and can be resumed.
	Paused
	// Failed means the process exited non-zero or produced undecodable
	// output.
	Failed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Paused:
		return "paused"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalYAML encodes the status by name.
func (s Status) MarshalYAML() (any, error) { return s.String(), nil }

// UnmarshalYAML decodes a status name.
func (s *Status) UnmarshalYAML(value *yaml.Node) error {
	switch value.Value {
	case "completed":
		*s = Completed
	case "paused":
		*s = Paused
	case "failed":
		*s = Failed
	default:
		return fmt.Errorf("unknown status %q", value.Value)
	}
	return nil
}

// Results is the structured outcome of one simulation run, possibly the
// splice of a resumed run onto its predecessor.
type Results struct {
	Status Status `yaml:"status"`

	// Species holds the species names in sanitized index order; the
	// innermost trajectory axis matches it.
	Species []string `yaml:"species"`

	// Time holds the sample times, strictly increasing.
	Time []float64 `yaml:"time"`

	// Trajectories is indexed [trajectory][timestep][species].
	Trajectories [][][]float64 `yaml:"trajectories"`

	// TimeStopped is the time the run actually stopped; equals the
	// requested end time for completed runs.
	TimeStopped float64 `yaml:"time_stopped"`
}

// FinalPopulations returns the last sampled populations of trajectory i.
func (r *Results) FinalPopulations(i int) []float64 {
	traj := r.Trajectories[i]
	return traj[len(traj)-1]
}

// splice appends a resumed segment onto prev. The segment's clock starts
// at zero; offset shifts it so the combined series is contiguous. The
// segment's first sample duplicates the pause boundary and is dropped.
func splice(prev, segment *Results, offset float64) *Results {
	out := &Results{
		Status:      segment.Status,
		Species:     prev.Species,
		TimeStopped: offset + segment.TimeStopped,
	}

	out.Time = append(out.Time, prev.Time...)
	for _, t := range segment.Time[1:] {
		out.Time = append(out.Time, offset+t)
	}

	out.Trajectories = make([][][]float64, len(prev.Trajectories))
	for i, traj := range prev.Trajectories {
		out.Trajectories[i] = append(out.Trajectories[i], traj...)
		out.Trajectories[i] = append(out.Trajectories[i], segment.Trajectories[i][1:]...)
	}
	return out
}
