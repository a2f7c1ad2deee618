package factor

import (
	"errors"
	"fmt"
	"sort"
)

// Factor names used by the default registry.
const (
	Sleep    = "sleep"
	Stress   = "stress"
	Activity = "activity"
	Energy   = "energy"
	Mood     = "mood"
	Water    = "water"
)

// ErrUnknownFactor is returned for a name that has no registry entry.
var ErrUnknownFactor = errors.New("unknown factor")

// #region score

// Score returns the points of the band containing v.
// A value outside every band scores 0; Verify rules that out for the domain.
func (f Factor) Score(v float64) int {
	for _, b := range f.Bands {
		if b.Range.Contains(v) {
			return b.Points
		}
	}
	return 0
}

// Matching returns every band that contains v.
func (f Factor) Matching(v float64) []Band {
	var out []Band
	for _, b := range f.Bands {
		if b.Range.Contains(v) {
			out = append(out, b)
		}
	}
	return out
}

// #endregion score

// #region verify

// probeEpsilon is the offset used to probe either side of a band edge.
const probeEpsilon = 1e-3

// Verify checks that the bands partition the whole domain: every probe value
// must fall in exactly one band.
func (f Factor) Verify() error {
	if f.Name == "" {
		return errors.New("factor has no name")
	}
	if f.Domain.Min > f.Domain.Max {
		return fmt.Errorf("%s: domain min %g above max %g", f.Name, f.Domain.Min, f.Domain.Max)
	}
	if len(f.Bands) == 0 {
		return fmt.Errorf("%s: no bands", f.Name)
	}
	if !f.Domain.Contains(f.Default) {
		return fmt.Errorf("%s: default %g outside domain %s", f.Name, f.Default, f.Domain)
	}
	for _, v := range f.probes() {
		if n := len(f.Matching(v)); n != 1 {
			return fmt.Errorf("%s: value %g matches %d bands", f.Name, v, n)
		}
	}
	return nil
}

// probes returns the domain grid plus both sides of every band edge that
// falls inside the domain.
func (f Factor) probes() []float64 {
	pts := f.Domain.Points()
	add := func(v float64) {
		if v >= f.Domain.Min && v <= f.Domain.Max {
			pts = append(pts, v)
		}
	}
	for _, b := range f.Bands {
		for _, edge := range []float64{b.Range.Min, b.Range.Max} {
			add(edge - probeEpsilon)
			add(edge)
			add(edge + probeEpsilon)
		}
	}
	sort.Float64s(pts)
	return pts
}

// #endregion verify

// #region model

// Model is an ordered registry of factors keyed by name.
// It holds no mutable state after construction and is safe to share.
type Model struct {
	order   []string
	factors map[string]Factor
}

// NewModel builds a registry from the given factors, in order.
// Duplicate names and rules that fail Verify are rejected.
func NewModel(factors ...Factor) (*Model, error) {
	m := &Model{factors: make(map[string]Factor, len(factors))}
	for _, f := range factors {
		if err := m.register(f); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Model) register(f Factor) error {
	if _, dup := m.factors[f.Name]; dup {
		return fmt.Errorf("register %s: duplicate factor", f.Name)
	}
	if err := f.Verify(); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	bands := make([]Band, len(f.Bands))
	copy(bands, f.Bands)
	f.Bands = bands
	m.factors[f.Name] = f
	m.order = append(m.order, f.Name)
	return nil
}

// With returns a new model extended by f. The receiver is left unchanged.
func (m *Model) With(f Factor) (*Model, error) {
	out := &Model{
		order:   append([]string(nil), m.order...),
		factors: make(map[string]Factor, len(m.factors)+1),
	}
	for k, v := range m.factors {
		out.factors[k] = v
	}
	if err := out.register(f); err != nil {
		return nil, err
	}
	return out, nil
}

// Names returns factor names in registration order.
func (m *Model) Names() []string {
	return append([]string(nil), m.order...)
}

// Lookup returns the factor registered under name.
func (m *Model) Lookup(name string) (Factor, bool) {
	f, ok := m.factors[name]
	return f, ok
}

// Contribution scores value under the named factor's rule.
func (m *Model) Contribution(name string, value float64) (int, error) {
	f, ok := m.factors[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFactor, name)
	}
	return f.Score(value), nil
}

// Defaults returns every factor's default value.
func (m *Model) Defaults() map[string]float64 {
	out := make(map[string]float64, len(m.order))
	for _, name := range m.order {
		out[name] = m.factors[name].Default
	}
	return out
}

// Verify re-checks every registered factor.
func (m *Model) Verify() error {
	for _, name := range m.order {
		if err := m.factors[name].Verify(); err != nil {
			return err
		}
	}
	return nil
}

// #endregion model
