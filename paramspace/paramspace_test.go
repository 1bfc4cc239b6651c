package paramspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provebench/provebench/paramspace"
)

func twoAxisSpace(t *testing.T) *paramspace.Space {
	t.Helper()

	space, err := paramspace.New(
		paramspace.Axis{Name: "size", Values: []string{"1", "2"}},
		paramspace.Axis{Name: "mode", Values: []string{"A", "B"}},
	)
	require.NoError(t, err)

	return space
}

func TestEnumerateCartesianOrder(t *testing.T) {
	space := twoAxisSpace(t)

	sets := space.Enumerate()
	require.Len(t, sets, 4)

	want := []string{
		"size=1;mode=A",
		"size=1;mode=B",
		"size=2;mode=A",
		"size=2;mode=B",
	}

	for i, set := range sets {
		assert.Equal(t, want[i], set.Key())
	}
}

func TestEnumerateProductSize(t *testing.T) {
	space, err := paramspace.New(
		paramspace.Axis{Name: "a", Values: []string{"1", "2", "3"}},
		paramspace.Axis{Name: "b", Values: []string{"x", "y"}},
		paramspace.Axis{Name: "c", Values: []string{"p", "q", "r", "s"}},
	)
	require.NoError(t, err)

	sets := space.Enumerate()
	assert.Len(t, sets, 3*2*4)

	seen := make(map[string]struct{}, len(sets))
	for _, set := range sets {
		_, dup := seen[set.Key()]
		assert.False(t, dup, "duplicate combination %s", set.Key())
		seen[set.Key()] = struct{}{}
	}
}

func TestEnumerateConstraintFiltering(t *testing.T) {
	space := twoAxisSpace(t)
	space.Register(paramspace.Requires("size", "2", "mode", "B"))

	sets := space.Enumerate()
	require.Len(t, sets, 3)

	want := []string{
		"size=1;mode=A",
		"size=1;mode=B",
		"size=2;mode=B",
	}

	for i, set := range sets {
		assert.Equal(t, want[i], set.Key())
	}
}

func TestEnumerateAllSatisfyConstraints(t *testing.T) {
	space := twoAxisSpace(t)

	rejectA := paramspace.NewConstraint("no mode A", func(s paramspace.Set) bool {
		v, _ := s.Value("mode")

		return v != "A"
	})
	space.Register(rejectA)

	for _, set := range space.Enumerate() {
		assert.True(t, rejectA.Accepts(set))
	}
}

func TestEnumerateDeterministic(t *testing.T) {
	space := twoAxisSpace(t)
	space.Register(paramspace.Requires("size", "2", "mode", "B"))

	first := space.Enumerate()
	second := space.Enumerate()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key())
	}
}

func TestEnumerateDegenerateSpaces(t *testing.T) {
	empty, err := paramspace.New()
	require.NoError(t, err)
	assert.Empty(t, empty.Enumerate())

	zeroValues, err := paramspace.New(
		paramspace.Axis{Name: "size", Values: []string{"1", "2"}},
		paramspace.Axis{Name: "mode", Values: nil},
	)
	require.NoError(t, err)
	assert.Empty(t, zeroValues.Enumerate())
}

func TestEnumerateRejectAllYieldsZeroCases(t *testing.T) {
	space := twoAxisSpace(t)
	space.Register(paramspace.NewConstraint("reject all", func(paramspace.Set) bool {
		return false
	}))

	assert.Empty(t, space.Enumerate())
}

func TestNewRejectsDuplicateAxis(t *testing.T) {
	_, err := paramspace.New(
		paramspace.Axis{Name: "size", Values: []string{"1"}},
		paramspace.Axis{Name: "size", Values: []string{"2"}},
	)
	require.Error(t, err)
}

func TestNewRejectsEmptyAxisName(t *testing.T) {
	_, err := paramspace.New(paramspace.Axis{Values: []string{"1"}})
	require.Error(t, err)
}

func TestSetEqual(t *testing.T) {
	axes := []string{"size", "mode"}

	a := paramspace.NewSet(axes, map[string]string{"size": "1", "mode": "A"})
	b := paramspace.NewSet(axes, map[string]string{"mode": "A", "size": "1"})
	c := paramspace.NewSet(axes, map[string]string{"size": "2", "mode": "A"})

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
}

func TestSetValuesIsACopy(t *testing.T) {
	set := paramspace.NewSet(
		[]string{"size"}, map[string]string{"size": "1"},
	)

	vals := set.Values()
	vals["size"] = "corrupted"

	v, ok := set.Value("size")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}
