package model

import (
	"fmt"
	"strconv"
)

// TimeSpan is the evenly spaced sampling grid for a simulation.
type TimeSpan struct {
	// End is the final sample time.
	End float64 `yaml:"end"`

	// Increment is the spacing between samples.
	Increment float64 `yaml:"increment"`
}

// Timesteps returns the number of samples over the span, including t=0.
func (ts TimeSpan) Timesteps() int {
	if ts.Increment <= 0 {
		return 0
	}
	return int(ts.End/ts.Increment+0.5) + 1
}

// Model is an ordered, validated reaction network. Entity order is
// insertion order and is load-bearing: the pipeline assigns dense indices
// from it, and every generated artifact is addressed by those indices.
type Model struct {
	Name   string
	Volume float64
	Tspan  TimeSpan

	species    []*Species
	parameters []*Parameter
	reactions  []*Reaction
	rateRules  []*RateRule

	speciesByName   map[string]*Species
	parameterByName map[string]*Parameter
}

// New creates an empty model with the given name and unit volume.
func New(name string) *Model {
	return &Model{
		Name:            name,
		Volume:          1.0,
		speciesByName:   make(map[string]*Species),
		parameterByName: make(map[string]*Parameter),
	}
}

// AddSpecies appends species in declaration order.
func (m *Model) AddSpecies(specs ...*Species) error {
	for _, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("%w: species with empty name", ErrInvalidReaction)
		}
		if _, exists := m.speciesByName[s.Name]; exists {
			return fmt.Errorf("%w: species %q", ErrDuplicateName, s.Name)
		}
		if _, exists := m.parameterByName[s.Name]; exists {
			return fmt.Errorf("%w: %q is already a parameter", ErrDuplicateName, s.Name)
		}
		if s.Mode == "" {
			s.Mode = ModeDiscrete
		}
		m.species = append(m.species, s)
		m.speciesByName[s.Name] = s
	}
	return nil
}

// AddParameter appends parameters in declaration order.
func (m *Model) AddParameter(params ...*Parameter) error {
	for _, p := range params {
		if _, exists := m.parameterByName[p.Name]; exists {
			return fmt.Errorf("%w: parameter %q", ErrDuplicateName, p.Name)
		}
		if _, exists := m.speciesByName[p.Name]; exists {
			return fmt.Errorf("%w: %q is already a species", ErrDuplicateName, p.Name)
		}
		m.parameters = append(m.parameters, p)
		m.parameterByName[p.Name] = p
	}
	return nil
}

// AddReaction appends reactions in declaration order, resolving every
// referenced species and rate parameter against the declared tables.
func (m *Model) AddReaction(rxns ...*Reaction) error {
	for _, r := range rxns {
		for name, stoich := range r.Reactants {
			if _, ok := m.speciesByName[name]; !ok {
				return fmt.Errorf("%w: reactant %q in reaction %q", ErrUnknownSpecies, name, r.Name)
			}
			if stoich < 0 {
				return fmt.Errorf("%w: negative stoichiometry for %q in %q", ErrInvalidReaction, name, r.Name)
			}
		}
		for name, stoich := range r.Products {
			if _, ok := m.speciesByName[name]; !ok {
				return fmt.Errorf("%w: product %q in reaction %q", ErrUnknownSpecies, name, r.Name)
			}
			if stoich < 0 {
				return fmt.Errorf("%w: negative stoichiometry for %q in %q", ErrInvalidReaction, name, r.Name)
			}
		}
		if r.Rate != "" {
			if _, ok := m.parameterByName[r.Rate]; !ok {
				return fmt.Errorf("%w: rate %q in reaction %q", ErrUnknownParameter, r.Rate, r.Name)
			}
		}
		if r.Rate == "" && r.Propensity == "" {
			return fmt.Errorf("%w: reaction %q has neither a propensity nor a rate", ErrInvalidReaction, r.Name)
		}
		m.reactions = append(m.reactions, r)
	}
	return nil
}

// AddRateRule attaches continuous rate rules; the governed species must
// exist and must not be constant. Boundary-condition species may be
// driven by rules even though reactions never move them.
func (m *Model) AddRateRule(rules ...*RateRule) error {
	for _, rr := range rules {
		s, ok := m.speciesByName[rr.Variable]
		if !ok {
			return fmt.Errorf("%w: rate rule variable %q", ErrUnknownSpecies, rr.Variable)
		}
		if s.Constant {
			return fmt.Errorf("%w: rate rule on constant species %q", ErrInvalidReaction, rr.Variable)
		}
		m.rateRules = append(m.rateRules, rr)
	}
	return nil
}

// Species returns the species in declaration order.
func (m *Model) Species() []*Species { return m.species }

// Parameters returns the parameters in declaration order.
func (m *Model) Parameters() []*Parameter { return m.parameters }

// Reactions returns the reactions in declaration order.
func (m *Model) Reactions() []*Reaction { return m.reactions }

// RateRules returns the rate rules in declaration order.
func (m *Model) RateRules() []*RateRule { return m.rateRules }

// GetSpecies looks a species up by name.
func (m *Model) GetSpecies(name string) (*Species, bool) {
	s, ok := m.speciesByName[name]
	return s, ok
}

// GetParameter looks a parameter up by name.
func (m *Model) GetParameter(name string) (*Parameter, bool) {
	p, ok := m.parameterByName[name]
	return p, ok
}

// SpeciesNames returns the declared species names in order.
func (m *Model) SpeciesNames() []string {
	names := make([]string, len(m.species))
	for i, s := range m.species {
		names[i] = s.Name
	}
	return names
}

// ParameterValue resolves a parameter to a numeric value. Only literal
// numeric expressions resolve; expression-valued parameters are evaluated
// inside the generated program, not here.
func (m *Model) ParameterValue(name string) (float64, error) {
	p, ok := m.parameterByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	v, err := strconv.ParseFloat(p.Expression, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q is not a numeric literal: %w", name, err)
	}
	return v, nil
}
