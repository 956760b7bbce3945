package model

import (
	"fmt"
	"strings"
)

// Reaction is one reaction channel: reactant/product stoichiometry plus a
// propensity. The propensity is either a custom expression or synthesized
// from a mass-action rate parameter.
type Reaction struct {
	// Name must be unique within the model.
	Name string `yaml:"name"`

	// Reactants maps species name to consumed stoichiometry (positive).
	Reactants map[string]int `yaml:"reactants"`

	// Products maps species name to produced stoichiometry (positive).
	Products map[string]int `yaml:"products"`

	// Rate names a parameter used as a mass-action rate constant.
	// Mutually exclusive with Propensity.
	Rate string `yaml:"rate,omitempty"`

	// Propensity is a custom stochastic propensity expression.
	Propensity string `yaml:"propensity,omitempty"`

	// ODEPropensity is the deterministic variant. If empty it defaults to
	// Propensity for custom reactions, or is synthesized for mass-action.
	ODEPropensity string `yaml:"ode_propensity,omitempty"`
}

// Order returns the total reactant stoichiometry of the reaction.
func (r *Reaction) Order() int {
	order := 0
	for _, stoich := range r.Reactants {
		order += stoich
	}
	return order
}

// PropensityFunction returns the stochastic propensity expression,
// synthesizing the mass-action form when only a rate is given.
func (r *Reaction) PropensityFunction(reactantOrder []string) (string, error) {
	if r.Propensity != "" {
		return r.Propensity, nil
	}
	return r.massAction(reactantOrder, false)
}

// ODEPropensityFunction returns the deterministic propensity expression.
func (r *Reaction) ODEPropensityFunction(reactantOrder []string) (string, error) {
	if r.ODEPropensity != "" {
		return r.ODEPropensity, nil
	}
	if r.Propensity != "" {
		return r.Propensity, nil
	}
	return r.massAction(reactantOrder, true)
}

// massAction synthesizes a propensity from the rate constant and reactant
// stoichiometry. Stochastic form divides bimolecular rates by the system
// volume and counts distinct molecule pairs for dimerizations; the ODE form
// uses plain concentration products.
func (r *Reaction) massAction(reactantOrder []string, ode bool) (string, error) {
	if r.Rate == "" {
		return "", fmt.Errorf("%w: reaction %q has neither a propensity nor a rate", ErrInvalidReaction, r.Name)
	}
	order := r.Order()
	if order > 2 {
		return "", fmt.Errorf("%w: reaction %q has mass-action order %d, maximum is 2", ErrInvalidReaction, r.Name, order)
	}

	var b strings.Builder
	b.WriteString(r.Rate)
	if !ode {
		switch order {
		case 2:
			b.WriteString("/vol")
		case 0:
			b.WriteString("*vol")
		}
	}
	// Deterministic iteration order for generated text.
	for _, name := range reactantOrder {
		stoich, ok := r.Reactants[name]
		if !ok {
			continue
		}
		switch {
		case stoich == 1:
			fmt.Fprintf(&b, "*%s", name)
		case stoich == 2 && !ode:
			fmt.Fprintf(&b, "*%s*(%s-1)/2", name, name)
		case stoich == 2:
			fmt.Fprintf(&b, "*%s*%s", name, name)
		default:
			return "", fmt.Errorf("%w: reaction %q has stoichiometry %d for %q", ErrInvalidReaction, r.Name, stoich, name)
		}
	}
	return b.String(), nil
}
