package sourcemap

import (
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupReturnsFalseBeforeAnyMapping(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("out.go", Mapping{GeneratedLine: 10, SourceLine: 1})
	_, ok := r.Lookup("out.go", 5)
	require.False(t, ok)
}

func TestRegistry_LookupFindsNearestPrecedingMapping(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("out.go", Mapping{GeneratedLine: 1, SourceLine: 10})
	r.Add("out.go", Mapping{GeneratedLine: 5, SourceLine: 20})
	r.Add("out.go", Mapping{GeneratedLine: 12, SourceLine: 30})

	m, ok := r.Lookup("out.go", 7)
	require.True(t, ok)
	require.Equal(t, 20, m.SourceLine)

	m, ok = r.Lookup("out.go", 12)
	require.True(t, ok)
	require.Equal(t, 30, m.SourceLine)
}

func TestRegistry_LookupUnknownFileReturnsFalse(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, ok := r.Lookup("missing.go", 1)
	require.False(t, ok)
}

func TestRegistry_ClearDiscardsEverything(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("out.go", Mapping{GeneratedLine: 1, SourceLine: 1})
	r.Clear()
	require.Empty(t, r.Mappings("out.go"))
}

func TestRegistry_MappingsAreSortedByGeneratedLine(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("out.go", Mapping{GeneratedLine: 5, SourceLine: 2})
	r.Add("out.go", Mapping{GeneratedLine: 1, SourceLine: 1})
	r.Add("out.go", Mapping{GeneratedLine: 3, SourceLine: 1})

	lines := r.Mappings("out.go")
	require.True(t, sort.SliceIsSorted(lines, func(i, j int) bool {
		return lines[i].GeneratedLine < lines[j].GeneratedLine
	}))
}

// TestRegistry_LookupIsAlwaysTheNearestPrecedingEntry is a property check:
// for any set of generated lines added in any order, looking up each of
// them returns exactly that entry (an added mapping is its own nearest
// preceding entry).
func TestRegistry_LookupIsAlwaysTheNearestPrecedingEntry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("lookup(line) for an inserted line returns that line's own mapping", prop.ForAll(
		func(lines []int) bool {
			r := NewRegistry()
			seen := make(map[int]bool)
			var unique []int
			for _, l := range lines {
				if l <= 0 || seen[l] {
					continue
				}
				seen[l] = true
				unique = append(unique, l)
				r.Add("out.go", Mapping{GeneratedLine: l, SourceLine: l * 100})
			}
			for _, l := range unique {
				m, ok := r.Lookup("out.go", l)
				if !ok || m.GeneratedLine != l || m.SourceLine != l*100 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 500)),
	))

	properties.TestingRun(t)
}
