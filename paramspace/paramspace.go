// Package paramspace declares named benchmark parameter axes and
// enumerates the constraint-filtered combinations a sweep will execute.
package paramspace

import (
	"fmt"
	"strings"
)

// Value is a single parameter value. Values travel to the proving
// pipeline as strings; numeric interpretation belongs to the pipeline.
type Value = string

// Axis is a named parameter dimension with an ordered list of values.
type Axis struct {
	Name   string
	Values []Value
}

// Set assigns exactly one value to every axis of the owning Space.
// It identifies a single benchmark case.
type Set struct {
	axes   []string
	values map[string]Value
}

// NewSet builds a Set from an axis order and a value per axis. The
// axis slice defines the canonical ordering used by Key.
func NewSet(axes []string, values map[string]Value) Set {
	order := make([]string, len(axes))
	copy(order, axes)

	vals := make(map[string]Value, len(values))
	for k, v := range values {
		vals[k] = v
	}

	return Set{axes: order, values: vals}
}

// Value returns the selected value for the named axis.
func (s Set) Value(axis string) (Value, bool) {
	v, ok := s.values[axis]

	return v, ok
}

// Axes returns the axis names in declaration order.
func (s Set) Axes() []string {
	out := make([]string, len(s.axes))
	copy(out, s.axes)

	return out
}

// Values returns a copy of the axis-to-value mapping.
func (s Set) Values() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out
}

// Key returns a canonical identity string for the Set: axis=value pairs
// joined in declaration order. Two Sets over the same axes are equal
// iff their keys are equal. Also used for deterministic seed derivation.
func (s Set) Key() string {
	var b strings.Builder
	for i, axis := range s.axes {
		if i > 0 {
			b.WriteByte(';')
		}

		b.WriteString(axis)
		b.WriteByte('=')
		b.WriteString(s.values[axis])
	}

	return b.String()
}

// Equal reports whether both Sets select the same value on every axis.
func (s Set) Equal(o Set) bool {
	if len(s.values) != len(o.values) {
		return false
	}

	for k, v := range s.values {
		if ov, ok := o.values[k]; !ok || ov != v {
			return false
		}
	}

	return true
}

func (s Set) String() string { return s.Key() }

// Constraint decides whether a combination is valid. Implementations
// must be pure: evaluation order across constraints is unspecified when
// they have no side effects, which they must not.
type Constraint interface {
	Name() string
	Accepts(Set) bool
}

type constraintFunc struct {
	name string
	fn   func(Set) bool
}

func (c constraintFunc) Name() string       { return c.name }
func (c constraintFunc) Accepts(s Set) bool { return c.fn(s) }

// NewConstraint wraps a predicate as a named Constraint.
func NewConstraint(name string, fn func(Set) bool) Constraint {
	return constraintFunc{name: name, fn: fn}
}

// Requires builds the common conditional constraint: whenever axis
// whenAxis has value whenValue, axis mustAxis must have value mustValue.
func Requires(whenAxis, whenValue, mustAxis, mustValue string) Constraint {
	name := fmt.Sprintf("%s=%s requires %s=%s",
		whenAxis, whenValue, mustAxis, mustValue)

	return NewConstraint(name, func(s Set) bool {
		if v, ok := s.Value(whenAxis); !ok || v != whenValue {
			return true
		}

		v, ok := s.Value(mustAxis)

		return ok && v == mustValue
	})
}

// Space is an immutable declaration of axes plus registered constraints.
// Construct it once at startup; it is never mutated by a running sweep.
type Space struct {
	axes        []Axis
	constraints []Constraint
}

// New validates the axis declarations and builds a Space. Axis names
// must be unique and non-empty. An axis with zero values is allowed and
// makes the enumeration empty: a degenerate space is not an error.
func New(axes ...Axis) (*Space, error) {
	seen := make(map[string]struct{}, len(axes))

	for _, axis := range axes {
		if axis.Name == "" {
			return nil, fmt.Errorf("axis with empty name")
		}

		if _, dup := seen[axis.Name]; dup {
			return nil, fmt.Errorf("duplicate axis %q", axis.Name)
		}

		seen[axis.Name] = struct{}{}
	}

	owned := make([]Axis, len(axes))
	for i, axis := range axes {
		owned[i] = Axis{
			Name:   axis.Name,
			Values: append([]Value(nil), axis.Values...),
		}
	}

	return &Space{axes: owned}, nil
}

// Register adds a constraint. Combinations rejected by any registered
// constraint are dropped from Enumerate's output.
func (sp *Space) Register(c Constraint) {
	sp.constraints = append(sp.constraints, c)
}

// AxisNames returns the axis names in declaration order.
func (sp *Space) AxisNames() []string {
	names := make([]string, len(sp.axes))
	for i, axis := range sp.axes {
		names[i] = axis.Name
	}

	return names
}

// Enumerate generates the Cartesian product of all axes in declaration
// order, with the first-declared axis varying slowest, then filters it
// through every registered constraint. The output order is
// deterministic so repeated runs produce byte-comparable reports.
func (sp *Space) Enumerate() []Set {
	if len(sp.axes) == 0 {
		return nil
	}

	total := 1
	for _, axis := range sp.axes {
		total *= len(axis.Values)
	}

	if total == 0 {
		return nil
	}

	names := sp.AxisNames()
	out := make([]Set, 0, total)
	idx := make([]int, len(sp.axes))

	for {
		values := make(map[string]Value, len(sp.axes))
		for i, axis := range sp.axes {
			values[axis.Name] = axis.Values[idx[i]]
		}

		set := NewSet(names, values)
		if sp.accepts(set) {
			out = append(out, set)
		}

		// Advance the odometer, last axis fastest.
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(sp.axes[i].Values) {
				break
			}

			idx[i] = 0
		}

		if i < 0 {
			return out
		}
	}
}

func (sp *Space) accepts(s Set) bool {
	for _, c := range sp.constraints {
		if !c.Accepts(s) {
			return false
		}
	}

	return true
}
