package cache

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
)

func TestCache_PutThenGetReturnsTheSameEntry(t *testing.T) {
	t.Parallel()

	c, err := New(0)
	require.NoError(t, err)

	prog := &ast.Program{File: "a.sr"}
	c.Put("source-a", Entry{Program: prog, Generated: "gen-a"})

	entry, ok := c.Get("source-a")
	require.True(t, ok)
	require.Same(t, prog, entry.Program)
	require.Equal(t, "gen-a", entry.Generated)
}

func TestCache_GetMissReturnsFalse(t *testing.T) {
	t.Parallel()

	c, err := New(0)
	require.NoError(t, err)
	_, ok := c.Get("never-stored")
	require.False(t, ok)
}

func TestCache_DifferingSourceTextNeverCollide(t *testing.T) {
	t.Parallel()

	c, err := New(0)
	require.NoError(t, err)
	c.Put("source-a", Entry{Generated: "gen-a"})
	c.Put("source-b", Entry{Generated: "gen-b"})

	a, ok := c.Get("source-a")
	require.True(t, ok)
	require.Equal(t, "gen-a", a.Generated)

	b, ok := c.Get("source-b")
	require.True(t, ok)
	require.Equal(t, "gen-b", b.Generated)
}

func TestCache_InvalidateRemovesTheEntry(t *testing.T) {
	t.Parallel()

	c, err := New(0)
	require.NoError(t, err)
	c.Put("source-a", Entry{Generated: "gen-a"})
	require.True(t, c.Invalidate("source-a"))
	_, ok := c.Get("source-a")
	require.False(t, ok)
	require.False(t, c.Invalidate("source-a"))
}

func TestCache_ClearEmptiesTheCache(t *testing.T) {
	t.Parallel()

	c, err := New(0)
	require.NoError(t, err)
	c.Put("source-a", Entry{Generated: "gen-a"})
	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestCache_EvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	t.Parallel()

	c, err := New(2)
	require.NoError(t, err)
	c.Put("a", Entry{Generated: "a"})
	c.Put("b", Entry{Generated: "b"})
	c.Get("a") // promote a to most-recently-used
	c.Put("c", Entry{Generated: "c"})

	_, ok := c.Get("b")
	require.False(t, ok, "b should have been evicted as the least-recently-used entry")

	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

// TestCache_LenNeverExceedsCapacity is a property check: whatever sequence
// of distinct sources is inserted, the cache never holds more entries than
// its declared capacity.
func TestCache_LenNeverExceedsCapacity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("cache length stays within capacity", prop.ForAll(
		func(capacity, count int) bool {
			c, err := New(capacity)
			if err != nil {
				return false
			}
			for i := 0; i < count; i++ {
				c.Put(fmt.Sprintf("source-%d", i), Entry{Generated: fmt.Sprintf("gen-%d", i)})
			}
			effectiveCap := capacity
			if effectiveCap <= 0 {
				effectiveCap = DefaultMaxSize
			}
			return c.Len() <= effectiveCap
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
