package tx

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRent(t *testing.T) {
	rent := DefaultRent()
	assert.Equal(t, uint64((128+162)*3480*2), rent.MinimumBalance(162))
	assert.True(t, rent.IsExempt(rent.MinimumBalance(10), 10))
	assert.False(t, rent.IsExempt(rent.MinimumBalance(10)-1, 10))

	decoded, err := UnmarshalRent(rent.Marshal())
	require.NoError(t, err)
	assert.Equal(t, rent, decoded)

	_, err = UnmarshalRent([]byte{1})
	assert.Error(t, err)
}

func TestReadRent(t *testing.T) {
	l := newMemLedger()
	rent, err := ReadRent(l)
	require.NoError(t, err)
	assert.Equal(t, DefaultRent(), rent)

	custom := Rent{LamportsPerByteYear: 1, ExemptionThreshold: 1}
	for k, acct := range GenesisAccounts(custom) {
		l.put(k, acct)
	}
	rent, err = ReadRent(l)
	require.NoError(t, err)
	assert.Equal(t, custom, rent)

	program, err := l.Read(testProgramID)
	require.NoError(t, err)
	require.NotNil(t, program)
	assert.True(t, program.Executable)

	sysvar, err := l.Read(solana.SysVarRentPubkey)
	require.NoError(t, err)
	assert.Equal(t, SysvarOwnerID, sysvar.Owner)
}
