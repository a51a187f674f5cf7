package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/anonto42/quill/pkg/kv"
	"github.com/anonto42/quill/pkg/kv/kvtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllBackends runs the same checks against every backend that can run
// without an external server.
func TestAllBackends(t *testing.T) {
	t.Run("MemoryBackend", func(t *testing.T) {
		runBackendTests(t, func(t *testing.T, quota int64) kv.Backend {
			return kv.NewMemoryBackend(quota)
		})
	})

	t.Run("SQLiteBackend", func(t *testing.T) {
		runBackendTests(t, func(t *testing.T, quota int64) kv.Backend {
			b, err := kv.NewSQLiteBackend(filepath.Join(t.TempDir(), "store.db"), quota)
			require.NoError(t, err)
			t.Cleanup(func() { b.Close() })
			return b
		})
	})
}

func runBackendTests(t *testing.T, open func(t *testing.T, quota int64) kv.Backend) {
	ctx := context.Background()

	t.Run("SetGetRemove", func(t *testing.T) {
		b := open(t, 0)

		_, ok, err := b.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, b.Set(ctx, "a", "1"))
		require.NoError(t, b.Set(ctx, "a", "2"))
		v, ok, err := b.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", v)

		require.NoError(t, b.Remove(ctx, "a"))
		require.NoError(t, b.Remove(ctx, "a"), "removing a missing key is a no-op")
		_, ok, err = b.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("KeysAndPrefix", func(t *testing.T) {
		b := open(t, 0)
		for _, k := range []string{"interaction:2", "posts-collection", "interaction:1"} {
			require.NoError(t, b.Set(ctx, k, "x"))
		}
		keys, err := b.Keys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 3)
		assert.Equal(t, []string{"interaction:1", "interaction:2"}, kv.WithPrefix(keys, "interaction:"))
	})

	t.Run("Quota", func(t *testing.T) {
		b := open(t, 10)
		require.NoError(t, b.Set(ctx, "k", "12345"))

		err := b.Set(ctx, "other", "123456")
		assert.ErrorIs(t, err, kv.ErrQuotaExceeded)

		// Replacing a value only counts the difference.
		require.NoError(t, b.Set(ctx, "k", "123456789"))
		v, _, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "123456789", v)

		_, ok, err := b.Get(ctx, "other")
		require.NoError(t, err)
		assert.False(t, ok, "rejected write must not be stored")
	})
}

func TestMemoryBackendUsed(t *testing.T) {
	ctx := context.Background()
	b := kv.NewMemoryBackend(0)
	require.NoError(t, b.Set(ctx, "ab", "cde"))
	assert.Equal(t, int64(5), b.Used())
	require.NoError(t, b.Remove(ctx, "ab"))
	assert.Equal(t, int64(0), b.Used())
}

func TestBatchReadsOverlay(t *testing.T) {
	ctx := context.Background()
	base := kv.NewMemoryBackend(0)
	require.NoError(t, base.Set(ctx, "keep", "1"))
	require.NoError(t, base.Set(ctx, "drop", "1"))

	batch := kv.NewBatch(base)
	require.NoError(t, batch.Set(ctx, "new", "2"))
	require.NoError(t, batch.Remove(ctx, "drop"))
	assert.Equal(t, 2, batch.Len())

	_, ok, err := batch.Get(ctx, "drop")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := batch.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep", "new"}, keys)

	// Nothing reaches the base before Commit.
	_, ok, err = base.Get(ctx, "new")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, batch.Commit(ctx))
	keys, err = base.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep", "new"}, keys)
	assert.Equal(t, 0, batch.Len())
}

func TestBatchRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryBackend(0)
	require.NoError(t, mem.Set(ctx, "a", "old-a"))
	require.NoError(t, mem.Set(ctx, "c", "old-c"))

	faulty := kvtest.NewFaulty(mem)
	faulty.FailKeysWithPrefix("z")

	batch := kv.NewBatch(faulty)
	require.NoError(t, batch.Set(ctx, "a", "new-a"))
	require.NoError(t, batch.Set(ctx, "b", "new-b"))
	require.NoError(t, batch.Remove(ctx, "c"))
	require.NoError(t, batch.Set(ctx, "z", "boom"))

	err := batch.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, kvtest.ErrInjected)
	assert.False(t, errors.Is(err, kv.ErrPartialCommit))

	v, _, _ := mem.Get(ctx, "a")
	assert.Equal(t, "old-a", v)
	_, ok, _ := mem.Get(ctx, "b")
	assert.False(t, ok)
	v, _, _ = mem.Get(ctx, "c")
	assert.Equal(t, "old-c", v)
}

func TestBatchReportsPartialCommit(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryBackend(0)
	faulty := kvtest.NewFaulty(mem)

	batch := kv.NewBatch(faulty)
	require.NoError(t, batch.Set(ctx, "a", "1"))
	require.NoError(t, batch.Set(ctx, "b", "2"))

	// The first write lands, the second fails and so does every restore.
	faulty.FailAfter(1)
	err := batch.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrPartialCommit)
	assert.ErrorIs(t, err, kvtest.ErrInjected)
}
