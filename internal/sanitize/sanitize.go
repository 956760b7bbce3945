// Package sanitize rewrites a symbolic model into a positional, name-stable
// intermediate form for code generation. Species and parameters get dense
// indices and placeholder identifiers; reactions get net stoichiometry
// vectors and translated propensity expressions. One sanitization pass owns
// all of its tables: the same entity maps to the same index everywhere, and
// every downstream artifact is addressed by these indices.
package sanitize

import (
	"fmt"
	"strconv"

	"github.com/bionetgo/crnc/internal/expression"
	"github.com/bionetgo/crnc/pkg/model"
)

// VolumePlaceholder is the reserved identifier for system volume. It is
// never allocated to a user parameter.
const VolumePlaceholder = "V"

// MaxSpecies is the species capacity of the native solver template
// (CRN_MAX_SPECIES). Models beyond it are rejected here, before any
// generated source can overrun the template's state arrays.
const MaxSpecies = 64

// SanitizationError reports a model entity that could not be sanitized.
type SanitizationError struct {
	Entity string // "species", "parameter", "reaction", "rate rule"
	Name   string
	Err    error
}

func (e *SanitizationError) Error() string {
	return fmt.Sprintf("cannot sanitize %s %q: %v", e.Entity, e.Name, e.Err)
}

func (e *SanitizationError) Unwrap() error { return e.Err }

// Species is one sanitized species: its dense index and placeholder.
type Species struct {
	Name        string
	Placeholder string // S<index>
	Index       int
	Initial     float64
	Mode        model.SpeciesMode

	// Constant and BoundaryCondition species keep their value through
	// reaction firings; they still contribute to propensities.
	Constant          bool
	BoundaryCondition bool
}

// Parameter is one sanitized parameter: placeholder and resolved expression.
type Parameter struct {
	Name        string
	Placeholder string // P<index>, or V for the synthetic volume entry
	Expression  string
}

// Reaction is one sanitized reaction: net stoichiometry over the species
// order plus both propensity variants.
type Reaction struct {
	Name          string
	Stoichiometry []int // length = species count, products minus reactants
	Propensity    string
	ODEPropensity string
}

// Model is the sanitized intermediate representation. It is rebuilt fresh
// for every build; nothing in it is shared or cached across models.
type Model struct {
	Name         string
	Species      []Species
	Parameters   []Parameter
	Reactions    []Reaction
	RateRules    map[int]string // species index -> translated formula
	SpeciesIndex map[string]int

	namespace *expression.Namespace
}

// Sanitize walks m and produces its sanitized form. The model must already
// be validated: a reaction referencing an undeclared species or parameter
// is reported as a SanitizationError, never resolved implicitly.
func Sanitize(m *model.Model) (*Model, error) {
	if n := len(m.Species()); n > MaxSpecies {
		return nil, &SanitizationError{Entity: "model", Name: m.Name,
			Err: fmt.Errorf("%d species exceeds the solver capacity of %d", n, MaxSpecies)}
	}

	sm := &Model{
		Name:         m.Name,
		RateRules:    make(map[int]string),
		SpeciesIndex: make(map[string]int),
	}

	sm.sanitizeSpecies(m)
	sm.buildNamespace()
	if err := sm.sanitizeParameters(m); err != nil {
		return nil, err
	}
	if err := sm.sanitizeReactions(m); err != nil {
		return nil, err
	}
	if err := sm.sanitizeRateRules(m); err != nil {
		return nil, err
	}
	return sm, nil
}

// sanitizeSpecies assigns dense indices in the model's declared order.
func (sm *Model) sanitizeSpecies(m *model.Model) {
	for i, s := range m.Species() {
		sm.Species = append(sm.Species, Species{
			Name:              s.Name,
			Placeholder:       "S" + strconv.Itoa(i),
			Index:             i,
			Initial:           s.InitialValue,
			Mode:              s.Mode,
			Constant:          s.Constant,
			BoundaryCondition: s.BoundaryCondition,
		})
		sm.SpeciesIndex[s.Name] = i
	}
}

// buildNamespace layers system names under species placeholders. Parameter
// placeholders are layered in as parameters are sanitized.
func (sm *Model) buildNamespace() {
	ns := expression.SystemNamespace()
	for _, s := range sm.Species {
		ns.Add(s.Name, s.Placeholder)
	}
	sm.namespace = ns
}

// sanitizeParameters assigns positional placeholders and translates each
// defining expression. The synthetic volume parameter always comes last
// under the reserved placeholder.
func (sm *Model) sanitizeParameters(m *model.Model) error {
	for i, p := range m.Parameters() {
		sm.namespace.Add(p.Name, "P"+strconv.Itoa(i))
	}

	tr := expression.NewTranslator(sm.namespace, nil)
	for i, p := range m.Parameters() {
		expr, err := tr.Translate(p.Expression)
		if err != nil {
			return &SanitizationError{Entity: "parameter", Name: p.Name, Err: err}
		}
		sm.Parameters = append(sm.Parameters, Parameter{
			Name:        p.Name,
			Placeholder: "P" + strconv.Itoa(i),
			Expression:  expr,
		})
	}

	sm.Parameters = append(sm.Parameters, Parameter{
		Name:        "vol",
		Placeholder: VolumePlaceholder,
		Expression:  strconv.FormatFloat(m.Volume, 'g', -1, 64),
	})
	return nil
}

// sanitizeReactions computes net stoichiometry rows and translates both
// propensity variants for every reaction, in declared order.
func (sm *Model) sanitizeReactions(m *model.Model) error {
	order := m.SpeciesNames()
	tr := expression.NewTranslator(sm.namespace, nil)

	for _, r := range m.Reactions() {
		row, err := sm.stoichiometryRow(r)
		if err != nil {
			return err
		}

		prop, err := r.PropensityFunction(order)
		if err != nil {
			return &SanitizationError{Entity: "reaction", Name: r.Name, Err: err}
		}
		odeProp, err := r.ODEPropensityFunction(order)
		if err != nil {
			return &SanitizationError{Entity: "reaction", Name: r.Name, Err: err}
		}

		sanProp, err := tr.Translate(prop)
		if err != nil {
			return &SanitizationError{Entity: "reaction", Name: r.Name, Err: err}
		}
		sanODEProp, err := tr.Translate(odeProp)
		if err != nil {
			return &SanitizationError{Entity: "reaction", Name: r.Name, Err: err}
		}

		sm.Reactions = append(sm.Reactions, Reaction{
			Name:          r.Name,
			Stoichiometry: row,
			Propensity:    sanProp,
			ODEPropensity: sanODEProp,
		})
	}
	return nil
}

// stoichiometryRow computes products minus reactants over the species
// order. A species appearing on both sides nets without double counting.
func (sm *Model) stoichiometryRow(r *model.Reaction) ([]int, error) {
	row := make([]int, len(sm.Species))
	for name, stoich := range r.Reactants {
		i, ok := sm.SpeciesIndex[name]
		if !ok {
			return nil, &SanitizationError{Entity: "reaction", Name: r.Name,
				Err: fmt.Errorf("reactant %q is not a declared species", name)}
		}
		row[i] -= stoich
	}
	for name, stoich := range r.Products {
		i, ok := sm.SpeciesIndex[name]
		if !ok {
			return nil, &SanitizationError{Entity: "reaction", Name: r.Name,
				Err: fmt.Errorf("product %q is not a declared species", name)}
		}
		row[i] += stoich
	}
	// Constant and boundary-condition species are pinned: firings never
	// move them, though they still appear in propensities.
	for i, s := range sm.Species {
		if s.Constant || s.BoundaryCondition {
			row[i] = 0
		}
	}
	return row, nil
}

// sanitizeRateRules translates each rule formula and keys it by the
// governed species' index.
func (sm *Model) sanitizeRateRules(m *model.Model) error {
	tr := expression.NewTranslator(sm.namespace, nil)
	for _, rr := range m.RateRules() {
		i, ok := sm.SpeciesIndex[rr.Variable]
		if !ok {
			return &SanitizationError{Entity: "rate rule", Name: rr.Variable,
				Err: fmt.Errorf("variable %q is not a declared species", rr.Variable)}
		}
		formula, err := tr.Translate(rr.Formula)
		if err != nil {
			return &SanitizationError{Entity: "rate rule", Name: rr.Variable, Err: err}
		}
		sm.RateRules[i] = formula
	}
	return nil
}
