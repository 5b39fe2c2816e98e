// Package kvtest holds a behavioural suite every keyValueDb backend must pass.
package kvtest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises db. The database must start empty.
func Run(t *testing.T, db keyValueDb.DB) {
	ctx := context.Background()

	t.Run("read missing", func(t *testing.T) {
		_, err := db.Read(ctx, []byte("missing"))
		assert.True(t, errors.Is(err, keyValueDb.ErrKeyNotFound))
	})

	t.Run("write read delete", func(t *testing.T) {
		require.NoError(t, db.Write(ctx, []byte("k"), []byte("v1")))
		got, err := db.Read(ctx, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		require.NoError(t, db.Write(ctx, []byte("k"), []byte("v2")))
		got, err = db.Read(ctx, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)

		require.NoError(t, db.Delete(ctx, []byte("k")))
		_, err = db.Read(ctx, []byte("k"))
		assert.ErrorIs(t, err, keyValueDb.ErrKeyNotFound)
	})

	t.Run("read returns a copy", func(t *testing.T) {
		require.NoError(t, db.Write(ctx, []byte("copy"), []byte("abc")))
		got, err := db.Read(ctx, []byte("copy"))
		require.NoError(t, err)
		got[0] = 'x'
		again, err := db.Read(ctx, []byte("copy"))
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
		require.NoError(t, db.Delete(ctx, []byte("copy")))
	})

	t.Run("batch", func(t *testing.T) {
		require.NoError(t, db.Write(ctx, []byte("b:gone"), []byte("x")))
		err := db.Batch(ctx, []keyValueDb.BatchOperation{
			{Type: keyValueDb.BatchPut, Key: []byte("b:1"), Value: []byte("one")},
			{Type: keyValueDb.BatchPut, Key: []byte("b:2"), Value: []byte("two")},
			{Type: keyValueDb.BatchDelete, Key: []byte("b:gone")},
		})
		require.NoError(t, err)

		got, err := db.Read(ctx, []byte("b:2"))
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
		_, err = db.Read(ctx, []byte("b:gone"))
		assert.ErrorIs(t, err, keyValueDb.ErrKeyNotFound)
	})

	t.Run("bad batch writes nothing", func(t *testing.T) {
		err := db.Batch(ctx, []keyValueDb.BatchOperation{
			{Type: keyValueDb.BatchPut, Key: []byte("bad:1"), Value: []byte("x")},
			{Type: keyValueDb.BatchOpType(42), Key: []byte("bad:2")},
		})
		require.ErrorIs(t, err, keyValueDb.ErrUnknownBatchOp)
		_, err = db.Read(ctx, []byte("bad:1"))
		assert.ErrorIs(t, err, keyValueDb.ErrKeyNotFound)
	})

	t.Run("iterator range", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			key := []byte(fmt.Sprintf("it:%d", i))
			require.NoError(t, db.Write(ctx, key, []byte{byte(i)}))
		}
		require.NoError(t, db.Write(ctx, []byte("iu:0"), []byte("outside")))

		it, err := db.Iterator(ctx, []byte("it:1"), []byte("it:4"))
		require.NoError(t, err)
		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		require.NoError(t, it.Error())
		require.NoError(t, it.Close())
		assert.Equal(t, []string{"it:1", "it:2", "it:3"}, keys)
	})

	t.Run("iterator prefix", func(t *testing.T) {
		prefix := []byte("it:")
		it, err := db.Iterator(ctx, prefix, keyValueDb.PrefixEnd(prefix))
		require.NoError(t, err)
		defer it.Close()
		var values []byte
		for it.Next() {
			values = append(values, it.Value()[0])
		}
		assert.Equal(t, []byte{0, 1, 2, 3, 4}, values)
	})
}
