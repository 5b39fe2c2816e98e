package tx

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

func TestApplyContext_UnreferencedAccounts(t *testing.T) {
	l := newMemLedger()
	referenced := solana.NewWallet().PublicKey()
	hidden := solana.NewWallet().PublicKey()
	l.put(referenced, entry.NewSystemAccount(10))
	l.put(hidden, entry.NewSystemAccount(20))

	ctx := &ApplyContext{
		View:      NewApplyStateTable(l),
		ProgramID: testProgramID,
		Accounts:  []AccountInfo{{Key: referenced}},
	}

	exists, r := ctx.Exists(referenced)
	assert.Equal(t, TesSUCCESS, r)
	assert.True(t, exists)

	exists, r = ctx.Exists(hidden)
	assert.Equal(t, TefMISSING_ACCOUNT, r)
	assert.False(t, exists, "existence of an unreferenced account must not leak")

	_, r = ctx.Load(hidden)
	assert.Equal(t, TefMISSING_ACCOUNT, r)

	assert.Equal(t, TefMISSING_ACCOUNT, ctx.Store(hidden, entry.NewSystemAccount(0)))
}
