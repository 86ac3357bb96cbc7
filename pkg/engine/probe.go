package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateProbe is returned when a probe name is registered twice.
var ErrDuplicateProbe = errors.New("probe already registered")

// Probe inspects one surface of the host and reports what it found.
//
// Execute must be read-only with respect to the system. It returns an empty
// slice when the surface is clean. A returned error means the probe could not
// inspect the surface at all; the scanner isolates it and keeps nothing the
// probe emitted.
type Probe interface {
	Name() string
	Execute(ctx context.Context) ([]Observation, error)
}

type funcProbe struct {
	name string
	fn   func(ctx context.Context) ([]Observation, error)
}

func (p *funcProbe) Name() string { return p.name }

func (p *funcProbe) Execute(ctx context.Context) ([]Observation, error) {
	return p.fn(ctx)
}

// NewProbe adapts a function to the Probe interface.
func NewProbe(name string, fn func(ctx context.Context) ([]Observation, error)) Probe {
	return &funcProbe{name: name, fn: fn}
}

// Registry is the ordered list of probes executed in a scan. Order only
// affects the order of findings in the report.
type Registry struct {
	probes []Probe
	names  map[string]struct{}
}

// NewRegistry creates a registry holding probes in the given order.
func NewRegistry(probes ...Probe) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{})}
	for _, p := range probes {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a probe. Names must be unique.
func (r *Registry) Register(p Probe) error {
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	name := p.Name()
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProbe, name)
	}
	r.names[name] = struct{}{}
	r.probes = append(r.probes, p)
	return nil
}

// Probes returns the registered probes in execution order.
func (r *Registry) Probes() []Probe {
	out := make([]Probe, len(r.probes))
	copy(out, r.probes)
	return out
}

// Len returns the number of registered probes.
func (r *Registry) Len() int {
	return len(r.probes)
}

// Names lists probe names in execution order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.probes))
	for _, p := range r.probes {
		names = append(names, p.Name())
	}
	return names
}

// Without returns a new registry that skips the named probes, keeping the
// order of the rest. Unknown names are reported so a typo in configuration
// does not go unnoticed.
func (r *Registry) Without(names ...string) (*Registry, []string) {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := &Registry{names: make(map[string]struct{})}
	for _, p := range r.probes {
		if skip[p.Name()] {
			delete(skip, p.Name())
			continue
		}
		out.names[p.Name()] = struct{}{}
		out.probes = append(out.probes, p)
	}
	var unknown []string
	for _, n := range names {
		if skip[n] {
			unknown = append(unknown, n)
			delete(skip, n)
		}
	}
	return out, unknown
}
