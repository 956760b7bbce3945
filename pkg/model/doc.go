// Package model defines the symbolic reaction-network object graph consumed
// by the compilation pipeline: species, parameters, reactions, rate rules
// and the sampling timespan. The pipeline treats a Model as read-only;
// construction and validation happen up front, either programmatically or
// through the YAML loader.
package model
