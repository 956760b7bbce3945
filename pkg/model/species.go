package model

// SpeciesMode controls how a species is stepped by the generated solver.
type SpeciesMode string

const (
	// ModeDiscrete species hold integer populations and change per firing.
	ModeDiscrete SpeciesMode = "discrete"
	// ModeContinuous species hold real concentrations stepped by ODEs.
	ModeContinuous SpeciesMode = "continuous"
	// ModeDynamic species may switch representation at runtime.
	ModeDynamic SpeciesMode = "dynamic"
)

// Species is one chemical species of the network.
type Species struct {
	// Name must be unique within the model.
	Name string `yaml:"name"`

	// InitialValue is the population (discrete) or concentration
	// (continuous) at time zero.
	InitialValue float64 `yaml:"initial"`

	// Mode selects the stepping representation. Empty means discrete.
	Mode SpeciesMode `yaml:"mode,omitempty"`

	// Constant species never change value during a simulation.
	Constant bool `yaml:"constant,omitempty"`

	// BoundaryCondition species are excluded from reaction stoichiometry
	// but may still be changed by rules and events.
	BoundaryCondition bool `yaml:"boundary_condition,omitempty"`
}

// Parameter is a named constant or expression usable in propensities.
type Parameter struct {
	// Name must be unique within the model and distinct from species names.
	Name string `yaml:"name"`

	// Expression is the defining arithmetic expression. It may reference
	// other parameters; the generated program evaluates it.
	Expression string `yaml:"expression"`
}

// RateRule drives a continuous species' value by a differential formula.
type RateRule struct {
	// Variable names the species governed by this rule.
	Variable string `yaml:"variable"`

	// Formula is d(variable)/dt as an arithmetic expression.
	Formula string `yaml:"formula"`
}
