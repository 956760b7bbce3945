package model

import "errors"

// ErrDuplicateName is returned when a species or parameter name is declared twice.
var ErrDuplicateName = errors.New("duplicate entity name")

// ErrUnknownSpecies is returned when a reaction or rate rule references a
// species the model does not declare.
var ErrUnknownSpecies = errors.New("unknown species")

// ErrUnknownParameter is returned when a reaction's rate references a
// parameter the model does not declare.
var ErrUnknownParameter = errors.New("unknown parameter")

// ErrInvalidReaction is returned when a reaction is malformed (no name,
// negative stoichiometry, or a mass-action order above two).
var ErrInvalidReaction = errors.New("invalid reaction")
