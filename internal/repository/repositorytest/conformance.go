// Package repositorytest holds a behavioural test suite shared by every
// repository.KeyValue implementation.
package repositorytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/dbmeter/internal/repository"
)

// RunKeyValueTests exercises get/set/remove semantics against kv.
// kv must start empty for the keys used here.
func RunKeyValueTests(t *testing.T, kv repository.KeyValue) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		v, found, err := kv.Get(ctx, "conformance-missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "conformance-a", `[{"id":"1"}]`))

		v, found, err := kv.Get(ctx, "conformance-a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `[{"id":"1"}]`, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "conformance-b", "first"))
		require.NoError(t, kv.Set(ctx, "conformance-b", "second"))

		v, _, err := kv.Get(ctx, "conformance-b")
		require.NoError(t, err)
		assert.Equal(t, "second", v)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "conformance-empty", ""))

		v, found, err := kv.Get(ctx, "conformance-empty")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, v)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "conformance-c", "gone soon"))
		require.NoError(t, kv.Remove(ctx, "conformance-c"))

		_, found, err := kv.Get(ctx, "conformance-c")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("remove missing key", func(t *testing.T) {
		assert.NoError(t, kv.Remove(ctx, "conformance-never-set"))
	})
}
