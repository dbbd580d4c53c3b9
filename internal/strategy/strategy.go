// Package strategy defines the Strategy contract consumed by the backtest
// engine and a Registry that resolves strategy names and parameter maps to
// concrete implementations.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tradebench/internal/domain"
)

// Registry errors.
var (
	ErrUnknown       = errors.New("unknown strategy")
	ErrInvalidParams = errors.New("invalid strategy parameters")
)

// Strategy produces trade signals from a bar series. GenerateSignals must be
// a pure function of its input: deterministic, side-effect free, and safe to
// call repeatedly. Returned signals are chronological and logically
// alternate buy/sell; a strategy conceptually still long after the last bar
// must emit a closing sell at that bar. A series shorter than the
// strategy's minimum lookback yields no signals.
type Strategy interface {
	// Name returns the canonical strategy identifier (e.g. "sma_cross").
	Name() string

	// Params returns the resolved parameter values for this instance.
	Params() map[string]any

	// GenerateSignals scans the ascending bar series and returns the trade
	// signals it triggers.
	GenerateSignals(bars []domain.Bar) []domain.Signal
}

// Factory constructs a strategy from a loosely-typed parameter map, as
// decoded from a JSON request body.
type Factory func(params map[string]any) (Strategy, error)

// ParamSpec describes one parameter of a strategy variant.
type ParamSpec struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default"`
}

// Schema is the static metadata published for one strategy variant. It
// replaces runtime parameter introspection: what a variant accepts is
// declared here, once.
type Schema struct {
	Name        string      `json:"name"`
	Aliases     []string    `json:"aliases,omitempty"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
}

// Registry maps strategy names and aliases to factories.
type Registry struct {
	entries map[string]*entry
}

type entry struct {
	schema  Schema
	factory Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a strategy variant under its schema name and aliases.
func (r *Registry) Register(schema Schema, factory Factory) {
	e := &entry{schema: schema, factory: factory}
	r.entries[strings.ToLower(schema.Name)] = e
	for _, alias := range schema.Aliases {
		r.entries[strings.ToLower(alias)] = e
	}
}

// Create resolves name (case-insensitive, aliases included) and constructs
// a strategy with the given parameters. Unknown names and rejected
// parameters surface as ErrUnknown / ErrInvalidParams configuration errors.
func (r *Registry) Create(name string, p map[string]any) (Strategy, error) {
	e, ok := r.entries[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknown, name, strings.Join(r.names(), ", "))
	}
	s, err := e.factory(p)
	if err != nil {
		return nil, fmt.Errorf("%w for %q: %v", ErrInvalidParams, e.schema.Name, err)
	}
	return s, nil
}

// List returns the schema of every registered variant sorted by name,
// without alias duplicates.
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
