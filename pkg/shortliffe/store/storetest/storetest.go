// Package storetest holds the behaviour every store.Repository must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store"
)

// Sample returns a small snapshot with a group, a negation and a
// non-ASCII fact name.
func Sample(t testing.TB) kb.Snapshot {
	t.Helper()
	k := kb.New(nil)
	require.NoError(t, k.AddFact("сильный кашель", 0.6))
	require.NoError(t, k.AddFact("fever", 0.8))
	require.NoError(t, k.AddRule("fever AND NOT (rash, itch)", "flu", 0.9))
	require.NoError(t, k.AddRule("сильный кашель OR fever", "<visit doctor>", 0.5))
	return k.Snapshot()
}

// Run exercises a Repository created by open. Each subtest gets a fresh one.
func Run(t *testing.T, open func(t *testing.T) store.Repository) {
	ctx := context.Background()

	t.Run("EmptyList", func(t *testing.T) {
		r := open(t)
		names, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("SaveLoad", func(t *testing.T) {
		r := open(t)
		snap := Sample(t)

		name, err := r.Save(ctx, "medical", snap)
		require.NoError(t, err)
		assert.Equal(t, "medical.json", name)

		got, err := r.Load(ctx, name)
		require.NoError(t, err)
		AssertSnapshotsEqual(t, snap, got)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		r := open(t)
		_, err := r.Save(ctx, "kb.json", Sample(t))
		require.NoError(t, err)

		empty := kb.Snapshot{Facts: map[string]float64{"only": 0.1}}
		_, err = r.Save(ctx, "kb.json", empty)
		require.NoError(t, err)

		got, err := r.Load(ctx, "kb.json")
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"only": 0.1}, got.Facts)
		assert.Empty(t, got.Rules)
	})

	t.Run("ListSorted", func(t *testing.T) {
		r := open(t)
		for _, n := range []string{"zeta", "alpha", "mid.json"} {
			_, err := r.Save(ctx, n, Sample(t))
			require.NoError(t, err)
		}
		names, err := r.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha.json", "mid.json", "zeta.json"}, names)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		r := open(t)
		_, err := r.Load(ctx, "nope.json")
		assert.True(t, errors.Is(err, internalerr.ErrNotFound), "got %v", err)
	})

	t.Run("Delete", func(t *testing.T) {
		r := open(t)
		_, err := r.Save(ctx, "gone", Sample(t))
		require.NoError(t, err)

		require.NoError(t, r.Delete(ctx, "gone.json"))
		names, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)

		err = r.Delete(ctx, "gone.json")
		assert.True(t, errors.Is(err, internalerr.ErrNotFound), "got %v", err)
	})

	t.Run("InvalidNames", func(t *testing.T) {
		r := open(t)
		for _, n := range []string{"", "../etc/passwd", "a/b.json", `a\b`, ".."} {
			_, err := r.Save(ctx, n, Sample(t))
			assert.Truef(t, errors.Is(err, internalerr.ErrInvalidInput), "name %q: %v", n, err)
		}
	})
}

// AssertSnapshotsEqual compares facts exactly and rules structurally.
func AssertSnapshotsEqual(t testing.TB, want, got kb.Snapshot) {
	t.Helper()
	assert.Equal(t, want.Facts, got.Facts)
	require.Len(t, got.Rules, len(want.Rules))
	for i := range want.Rules {
		assert.Equal(t, want.Rules[i].Then, got.Rules[i].Then)
		assert.Equal(t, want.Rules[i].CF, got.Rules[i].CF)
		assert.Truef(t, condition.Equivalent(want.Rules[i].If, got.Rules[i].If),
			"rule %d: %s vs %s", i, want.Rules[i], got.Rules[i])
	}
}
