// Package template turns a sanitized model into the flat macro-definition
// set consumed by the native solver template. Compilation is pure and
// deterministic: the same sanitized model always yields byte-identical
// output, and every list is emitted in sanitization order.
package template

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bionetgo/crnc/internal/sanitize"
)

// DefinitionsFileName is the generated header's name inside the template
// workspace. The native template includes it by this exact name.
const DefinitionsFileName = "definitions.h"

// Definition is one NAME VALUE macro pair.
type Definition struct {
	Name  string
	Value string
}

// Definitions is the ordered macro set for one model.
type Definitions []Definition

// Compile generates the macro set for sm. When variable is true, parameter
// entries are emitted as run-time overridable VARIABLE macros instead of
// CONSTANT ones.
func Compile(sm *sanitize.Model, variable bool) Definitions {
	var defs Definitions
	defs = append(defs, aliasDefs(sm)...)
	defs = append(defs, parameterDefs(sm, variable)...)
	defs = append(defs, speciesDefs(sm)...)
	defs = append(defs, reactionDefs(sm)...)
	defs = append(defs, propensityDefs(sm, false))
	defs = append(defs, propensityDefs(sm, true))
	if len(sm.RateRules) > 0 {
		defs = append(defs, rateRuleDefs(sm))
	}
	return defs
}

// aliasDefs binds each species placeholder to its state-vector slot so
// generated propensity text compiles against the template's state array.
func aliasDefs(sm *sanitize.Model) Definitions {
	defs := make(Definitions, len(sm.Species))
	for i, s := range sm.Species {
		defs[i] = Definition{Name: s.Placeholder, Value: fmt.Sprintf("state[%d]", s.Index)}
	}
	return defs
}

// parameterDefs emits the parameter value list, volume entry included.
func parameterDefs(sm *sanitize.Model, variable bool) Definitions {
	qualifier := "CONSTANT"
	if variable {
		qualifier = "VARIABLE"
	}
	entries := make([]string, len(sm.Parameters))
	for i, p := range sm.Parameters {
		entries[i] = fmt.Sprintf("%s(%s,%s)", qualifier, p.Placeholder, p.Expression)
	}
	return Definitions{
		{Name: "CRN_PARAMETER_VALUES", Value: strings.Join(entries, " ")},
	}
}

// speciesDefs emits populations, the species count and the name list, all
// in sanitized species order.
func speciesDefs(sm *sanitize.Model) Definitions {
	populations := make([]string, len(sm.Species))
	names := make([]string, len(sm.Species))
	for i, s := range sm.Species {
		populations[i] = strconv.FormatFloat(s.Initial, 'g', -1, 64)
		names[i] = fmt.Sprintf("SPECIES_NAME(%s)", s.Name)
	}
	return Definitions{
		{Name: "CRN_INIT_POPULATIONS", Value: "{" + strings.Join(populations, ",") + "}"},
		{Name: "CRN_NUM_SPECIES", Value: strconv.Itoa(len(sm.Species))},
		{Name: "CRN_SPECIES_NAMES", Value: strings.Join(names, " ")},
	}
}

// reactionDefs emits the reaction count, the stoichiometry matrix and the
// reaction name list, all in sanitized reaction order.
func reactionDefs(sm *sanitize.Model) Definitions {
	rows := make([]string, len(sm.Reactions))
	names := make([]string, len(sm.Reactions))
	for i, r := range sm.Reactions {
		cells := make([]string, len(r.Stoichiometry))
		for j, net := range r.Stoichiometry {
			cells[j] = strconv.Itoa(net)
		}
		rows[i] = "{" + strings.Join(cells, ",") + "}"
		names[i] = fmt.Sprintf("REACTION_NAME(%s)", r.Name)
	}
	return Definitions{
		{Name: "CRN_NUM_REACTIONS", Value: strconv.Itoa(len(sm.Reactions))},
		{Name: "CRN_REACTIONS", Value: "{" + strings.Join(rows, ",") + "}"},
		{Name: "CRN_REACTION_NAMES", Value: strings.Join(names, " ")},
	}
}

// propensityDefs emits one propensity list, stochastic or deterministic.
func propensityDefs(sm *sanitize.Model, ode bool) Definition {
	name := "CRN_PROPENSITIES"
	if ode {
		name = "CRN_ODE_PROPENSITIES"
	}
	entries := make([]string, len(sm.Reactions))
	for i, r := range sm.Reactions {
		prop := r.Propensity
		if ode {
			prop = r.ODEPropensity
		}
		entries[i] = fmt.Sprintf("PROPENSITY(%d,%s)", i, prop)
	}
	return Definition{Name: name, Value: strings.Join(entries, " ")}
}

// rateRuleDefs emits RATE_RULE entries in species-index order.
func rateRuleDefs(sm *sanitize.Model) Definition {
	var entries []string
	for _, s := range sm.Species {
		if formula, ok := sm.RateRules[s.Index]; ok {
			entries = append(entries, fmt.Sprintf("RATE_RULE(%d,%s)", s.Index, formula))
		}
	}
	return Definition{Name: "CRN_RATE_RULES", Value: strings.Join(entries, " ")}
}

// Write emits the definitions as #define lines.
func (d Definitions) Write(w io.Writer) error {
	for _, def := range d {
		if _, err := fmt.Fprintf(w, "#define %s %s\n", def.Name, def.Value); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the definitions header to path, replacing any existing
// file.
func (d Definitions) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Lookup returns the value of the named macro.
func (d Definitions) Lookup(name string) (string, bool) {
	for _, def := range d {
		if def.Name == name {
			return def.Value, true
		}
	}
	return "", false
}
