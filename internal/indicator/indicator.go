// Package indicator implements the technical-indicator library: rolling
// series math plus a registry that resolves indicator names and parameter
// maps to concrete implementations.
//
// Every indicator returns one or more named float64 series aligned 1:1 with
// the input bars, with NaN in positions before the warmup window fills.
package indicator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tradebench/internal/domain"
)

// Registry errors.
var (
	ErrUnknown       = errors.New("unknown indicator")
	ErrInvalidParams = errors.New("invalid indicator parameters")
)

// Indicator computes one or more derived series from a bar sequence.
type Indicator interface {
	// Name returns the indicator identifier (e.g. "sma").
	Name() string

	// Params returns the resolved parameter values for this instance.
	Params() map[string]any

	// Compute returns the named output series, each len(bars) long.
	Compute(bars []domain.Bar) (map[string][]float64, error)
}

// Factory constructs an indicator from a loosely-typed parameter map.
type Factory func(params map[string]any) (Indicator, error)

// ParamSpec describes one parameter of an indicator or strategy variant.
type ParamSpec struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default"`
}

// Schema is the static metadata published for one indicator variant.
type Schema struct {
	Name        string      `json:"name"`
	Aliases     []string    `json:"aliases,omitempty"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
}

// Registry maps indicator names and aliases to factories.
type Registry struct {
	entries map[string]*entry
}

type entry struct {
	schema  Schema
	factory Factory
}

// NewRegistry creates an empty indicator Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds an indicator variant under its schema name and aliases.
func (r *Registry) Register(schema Schema, factory Factory) {
	e := &entry{schema: schema, factory: factory}
	r.entries[strings.ToLower(schema.Name)] = e
	for _, alias := range schema.Aliases {
		r.entries[strings.ToLower(alias)] = e
	}
}

// Create resolves name (case-insensitive) and constructs an indicator with
// the given parameters.
func (r *Registry) Create(name string, p map[string]any) (Indicator, error) {
	e, ok := r.entries[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknown, name, strings.Join(r.names(), ", "))
	}
	ind, err := e.factory(p)
	if err != nil {
		return nil, fmt.Errorf("%w for %q: %v", ErrInvalidParams, e.schema.Name, err)
	}
	return ind, nil
}

// List returns the schema of every registered variant, sorted by name.
// Aliases do not produce duplicate entries.
func (r *Registry) List() []Schema {
	seen := make(map[string]bool)
	var schemas []Schema
	for _, e := range r.entries {
		if seen[e.schema.Name] {
			continue
		}
		seen[e.schema.Name] = true
		schemas = append(schemas, e.schema)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

func (r *Registry) names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range r.entries {
		if !seen[e.schema.Name] {
			seen[e.schema.Name] = true
			names = append(names, e.schema.Name)
		}
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a Registry with every built-in indicator
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerTrend(r)
	registerMomentum(r)
	registerVolatility(r)
	registerVolume(r)
	return r
}
