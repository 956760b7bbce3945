package solver

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bionetgo/crnc/internal/sanitize"
	"github.com/bionetgo/crnc/internal/template"
	"github.com/bionetgo/crnc/pkg/model"
)

// The species order fixed at sanitization must be the order of the
// generated population table and the order of decoded output columns:
// encoding a record from the generated initial populations and decoding
// it back recovers the same name-to-value mapping the model declared.
func TestSpeciesIndexAlignment(t *testing.T) {
	m := model.New("alignment")
	require.NoError(t, m.AddSpecies(
		&model.Species{Name: "Gene", InitialValue: 1},
		&model.Species{Name: "RNA", InitialValue: 7},
		&model.Species{Name: "Protein", InitialValue: 42},
	))
	require.NoError(t, m.AddParameter(&model.Parameter{Name: "k", Expression: "0.5"}))
	require.NoError(t, m.AddReaction(&model.Reaction{
		Name:      "transcription",
		Reactants: map[string]int{"Gene": 1},
		Products:  map[string]int{"Gene": 1, "RNA": 1},
		Rate:      "k",
	}))

	sm, err := sanitize.Sanitize(m)
	require.NoError(t, err)

	populations, ok := template.Compile(sm, false).Lookup("CRN_INIT_POPULATIONS")
	require.True(t, ok)
	values := strings.Trim(populations, "{}")

	// One record on the generated population order, then the stop marker.
	raw := fmt.Sprintf("0,%s,0", values)
	dec, err := decodeOutput([]byte(raw), 1, 1, len(sm.Species))
	require.NoError(t, err)

	record := dec.trajectories[0][0]
	for i, s := range sm.Species {
		declared, ok := m.GetSpecies(s.Name)
		require.True(t, ok)
		assert.Equal(t, declared.InitialValue, record[i], "column %d should be %s", i, s.Name)
	}
}
