package tx

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

func TestApplyStateTable(t *testing.T) {
	base := newMemLedger()
	existing := solana.NewWallet().PublicKey()
	base.put(existing, entry.NewSystemAccount(100))

	t.Run("read is isolated from caller mutation", func(t *testing.T) {
		table := NewApplyStateTable(base)
		acct, err := table.Read(existing)
		require.NoError(t, err)
		acct.Lamports = 1
		again, err := table.Read(existing)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), again.Lamports)
		assert.Empty(t, table.Changes())
	})

	t.Run("insert then erase leaves nothing", func(t *testing.T) {
		table := NewApplyStateTable(base)
		fresh := solana.NewWallet().PublicKey()
		require.NoError(t, table.Insert(fresh, entry.NewSystemAccount(5)))
		assert.ErrorIs(t, table.Insert(fresh, entry.NewSystemAccount(5)), ErrEntryExists)
		require.NoError(t, table.Erase(fresh))
		assert.Empty(t, table.Changes())
	})

	t.Run("update and erase", func(t *testing.T) {
		table := NewApplyStateTable(base)
		require.NoError(t, table.Update(existing, entry.NewSystemAccount(70)))
		changes := table.Changes()
		require.Len(t, changes, 1)
		assert.Equal(t, entry.ActionModify, changes[0].Action)
		assert.Equal(t, uint64(100), changes[0].Original.Lamports)
		assert.Equal(t, uint64(70), changes[0].Current.Lamports)

		require.NoError(t, table.Erase(existing))
		assert.True(t, table.IsErased(existing))
		ok, err := table.Exists(existing)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, table.Update(existing, entry.NewSystemAccount(1)), ErrEntryErased)

		changes = table.Changes()
		require.Len(t, changes, 1)
		assert.Equal(t, entry.ActionErase, changes[0].Action)
		assert.Nil(t, changes[0].Current)

		// The base is untouched until commit.
		acct, err := base.Read(existing)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), acct.Lamports)
	})

	t.Run("restoring the original is not a change", func(t *testing.T) {
		table := NewApplyStateTable(base)
		require.NoError(t, table.Update(existing, entry.NewSystemAccount(1)))
		require.NoError(t, table.Update(existing, entry.NewSystemAccount(100)))
		assert.Empty(t, table.Changes())
	})

	t.Run("missing entries", func(t *testing.T) {
		table := NewApplyStateTable(base)
		missing := solana.NewWallet().PublicKey()
		acct, err := table.Read(missing)
		require.NoError(t, err)
		assert.Nil(t, acct)
		assert.ErrorIs(t, table.Update(missing, entry.NewSystemAccount(1)), ErrEntryNotFound)
		assert.ErrorIs(t, table.Erase(missing), ErrEntryNotFound)
	})
}
