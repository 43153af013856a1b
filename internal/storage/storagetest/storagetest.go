// Package storagetest holds behaviour tests shared by PayloadStore backends
package storagetest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-payload/internal/storage"
)

// Run exercises store with the behaviour every backend must share
func Run(t *testing.T, store storage.PayloadStore) {
	ctx := context.Background()

	t.Run("store and open", func(t *testing.T) {
		payload := bytes.Repeat([]byte{0, 1, 2, 0xff}, 100000)

		id, err := store.StorePayload(ctx, "binary.bin", bytes.NewReader(payload))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		// Each open is an independent stream
		for i := 0; i < 2; i++ {
			r, err := store.OpenPayload(ctx, id)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.True(t, bytes.Equal(payload, got))
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		id, err := store.StorePayload(ctx, "empty", strings.NewReader(""))
		require.NoError(t, err)

		r, err := store.OpenPayload(ctx, id)
		require.NoError(t, err)
		defer r.Close()
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("distinct ids", func(t *testing.T) {
		a, err := store.StorePayload(ctx, "same", strings.NewReader("a"))
		require.NoError(t, err)
		b, err := store.StorePayload(ctx, "same", strings.NewReader("b"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("delete", func(t *testing.T) {
		id, err := store.StorePayload(ctx, "doomed", strings.NewReader("bye"))
		require.NoError(t, err)

		require.NoError(t, store.DeletePayload(ctx, id))

		_, err = store.OpenPayload(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeletePayload(ctx, id), storage.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.OpenPayload(ctx, "does-not-exist")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.StorePayload(cancelled, "late", strings.NewReader("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
