package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapSetGetDelete(t *testing.T) {
	m := NewMap[string]()

	_, ok := m.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, m.Len())

	require.NoError(t, m.Set("a", "one"))
	require.NoError(t, m.Set("b", "two"))
	require.Equal(t, 2, m.Len())

	got, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, "one", got)

	m.Delete("a")
	_, ok = m.Get("a")
	require.False(t, ok)
	require.Equal(t, 1, m.Len())
}

func TestMapDeleteAbsentIsNoop(t *testing.T) {
	m := NewMap[string]()
	var changes int
	m.OnChange(func(Update) { changes++ })

	m.Delete("missing")
	require.Equal(t, 0, changes)

	require.NoError(t, m.Set("a", "one"))
	m.Delete("a")
	m.Delete("a")
	require.Equal(t, 2, changes)
}

func TestMapSetIfEmpty(t *testing.T) {
	m := NewMap[string]()

	inserted, err := m.SetIfEmpty("a", "first")
	require.NoError(t, err)
	require.True(t, inserted)

	// any live entry blocks the insert, same key or not
	inserted, err = m.SetIfEmpty("a", "second")
	require.NoError(t, err)
	require.False(t, inserted)
	inserted, err = m.SetIfEmpty("b", "other")
	require.NoError(t, err)
	require.False(t, inserted)

	got, _ := m.Get("a")
	require.Equal(t, "first", got)

	// a fully tombstoned map counts as empty again
	m.Delete("a")
	inserted, err = m.SetIfEmpty("b", "third")
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestMapOnChangeEmitsUpdates(t *testing.T) {
	m := NewMap[string]()
	var updates []Update
	m.OnChange(func(u Update) { updates = append(updates, u) })

	require.NoError(t, m.Set("a", "one"))
	m.Delete("a")

	require.Len(t, updates, 2)
	require.Equal(t, "a", updates[0].Key)
	require.False(t, updates[0].Deleted)
	require.True(t, updates[1].Deleted)
	require.Greater(t, updates[1].Clock, updates[0].Clock)
}

func TestMapApplyConvergesEitherOrder(t *testing.T) {
	a := NewMap[string]()
	b := NewMap[string]()

	var fromA, fromB [][]byte
	a.OnChange(func(u Update) {
		data, err := EncodeUpdates([]Update{u})
		require.NoError(t, err)
		fromA = append(fromA, data)
	})
	b.OnChange(func(u Update) {
		data, err := EncodeUpdates([]Update{u})
		require.NoError(t, err)
		fromB = append(fromB, data)
	})

	require.NoError(t, a.Set("k", "from-a"))
	require.NoError(t, b.Set("k", "from-b"))
	require.NoError(t, a.Set("only-a", "x"))
	require.NoError(t, b.Set("only-b", "y"))

	deltasA := append([][]byte{}, fromA...)
	deltasB := append([][]byte{}, fromB...)

	for _, d := range deltasB {
		require.NoError(t, a.Apply(d))
	}
	for i := len(deltasA) - 1; i >= 0; i-- {
		require.NoError(t, b.Apply(deltasA[i]))
	}

	require.Equal(t, a.Items(), b.Items())
	require.Equal(t, 3, a.Len())
}

func TestMapApplyIsIdempotent(t *testing.T) {
	m := NewMap[string]()
	require.NoError(t, m.Set("a", "one"))

	state, err := m.EncodeState()
	require.NoError(t, err)

	require.NoError(t, m.Apply(state))
	require.NoError(t, m.Apply(state))
	require.Equal(t, map[string]string{"a": "one"}, m.Items())
}

func TestMapStateRoundTrip(t *testing.T) {
	m := NewMap[string]()
	require.NoError(t, m.Set("a", "one"))
	require.NoError(t, m.Set("b", "two"))
	m.Delete("b")

	state, err := m.EncodeState()
	require.NoError(t, err)

	restored := NewMap[string]()
	require.NoError(t, restored.Apply(state))

	require.Equal(t, m.Items(), restored.Items())
	require.Equal(t, 1, restored.Len())

	// the tombstone must survive the round trip
	_, ok := restored.Get("b")
	require.False(t, ok)
}
