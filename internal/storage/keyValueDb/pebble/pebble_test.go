package pebble

import (
	"context"
	"testing"

	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb/kvtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPebbleDB(t *testing.T) {
	manager := NewManager(t.TempDir())
	defer manager.Close()

	db, err := manager.OpenDB("test")
	require.NoError(t, err)
	kvtest.Run(t, db)
}

func TestPebbleManagerReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	manager := NewManager(dir)
	db, err := manager.OpenDB("ledger")
	require.NoError(t, err)
	require.NoError(t, db.Write(ctx, []byte("k"), []byte("persisted")))
	require.NoError(t, manager.CloseDB("ledger"))
	assert.Error(t, manager.CloseDB("ledger"))

	manager = NewManager(dir)
	defer manager.Close()
	db, err = manager.OpenDB("ledger")
	require.NoError(t, err)
	got, err := db.Read(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}
