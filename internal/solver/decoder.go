package solver

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedOutput reports simulation output that ends mid-record or is
// missing the stop marker. This is distinct from well-formed-but-short
// output, which decodes as a paused run.
var ErrMalformedOutput = errors.New("malformed simulation output")

// decoded is the structured form of one run's raw output.
type decoded struct {
	// trajectories is indexed [trajectory][timestep][species].
	trajectories [][][]float64

	// times holds the sample times of the first trajectory's records.
	times []float64

	// timeStopped is the stop marker: the time the program cleanly
	// stopped emitting, equal to the end time for complete runs.
	timeStopped float64

	// complete is true when every expected record is present.
	complete bool
}

// decodeOutput parses the raw comma-separated stream produced by a solver
// executable. The stream is records of 1+species values (time first), one
// per timestep per trajectory, terminated by a single bare stop-marker
// value. A missing marker or a partial record is malformed; a present
// marker with fewer records than expected is a clean early stop.
func decodeOutput(raw []byte, trajectories, timesteps, species int) (*decoded, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, ErrMalformedOutput
	}

	fields := strings.Split(text, ",")
	last := fields[len(fields)-1]
	if strings.TrimSpace(last) == "" {
		// Stream ends on a record separator: the stop marker never
		// arrived, so the process died mid-write.
		return nil, ErrMalformedOutput
	}

	marker, err := strconv.ParseFloat(strings.TrimSpace(last), 64)
	if err != nil {
		return nil, ErrMalformedOutput
	}

	values := make([]float64, 0, len(fields)-1)
	for _, f := range fields[:len(fields)-1] {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, ErrMalformedOutput
		}
		values = append(values, v)
	}

	recordLen := 1 + species
	if len(values)%recordLen != 0 {
		return nil, ErrMalformedOutput
	}
	records := len(values) / recordLen
	expected := trajectories * timesteps
	if records > expected {
		return nil, ErrMalformedOutput
	}

	out := &decoded{
		trajectories: make([][][]float64, 0, trajectories),
		timeStopped:  marker,
		complete:     records == expected,
	}
	for r := 0; r < records; r++ {
		traj := r / timesteps
		record := values[r*recordLen : (r+1)*recordLen]
		if traj == len(out.trajectories) {
			out.trajectories = append(out.trajectories, nil)
		}
		if traj == 0 {
			out.times = append(out.times, record[0])
		}
		populations := make([]float64, species)
		copy(populations, record[1:])
		out.trajectories[traj] = append(out.trajectories[traj], populations)
	}
	return out, nil
}

// decodePartial decodes as much well-formed leading output as possible,
// ignoring a ragged tail. Used for live snapshots while the process is
// still writing; never used for the final decode.
func decodePartial(raw []byte, trajectories, timesteps, species int) (*decoded, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, false
	}

	fields := strings.Split(text, ",")
	var values []float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			break
		}
		values = append(values, v)
	}

	recordLen := 1 + species
	records := len(values) / recordLen
	if records == 0 {
		return nil, false
	}
	if max := trajectories * timesteps; records > max {
		records = max
	}

	out := &decoded{}
	for r := 0; r < records; r++ {
		traj := r / timesteps
		record := values[r*recordLen : (r+1)*recordLen]
		if traj == len(out.trajectories) {
			out.trajectories = append(out.trajectories, nil)
		}
		if traj == 0 {
			out.times = append(out.times, record[0])
		}
		populations := make([]float64, species)
		copy(populations, record[1:])
		out.trajectories[traj] = append(out.trajectories[traj], populations)
	}
	out.timeStopped = values[(records-1)*recordLen]
	return out, true
}
