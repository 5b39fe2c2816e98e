package keylet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = solana.MustPublicKeyFromBase58("D7ko992PKYLDKFy3fWCQsePvWF3Z7CmvoDHnViGf8bfm")

func TestEscrowDeterministic(t *testing.T) {
	a, err := Escrow(testProgram, 7)
	require.NoError(t, err)
	b, err := Escrow(testProgram, 7)
	require.NoError(t, err)
	c, err := Escrow(testProgram, 8)
	require.NoError(t, err)

	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, a.Bump, b.Bump)
	assert.NotEqual(t, a.Key, c.Key)

	other := solana.SystemProgramID
	d, err := Escrow(other, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, d.Key, "derivation must be bound to the program id")
}

func TestEscrowSeedsLittleEndian(t *testing.T) {
	seeds := EscrowSeeds(0x0102)
	require.Len(t, seeds, 2)
	assert.Equal(t, []byte("escrow"), seeds[0])
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, seeds[1])
}

func TestVaultDerivedFromEscrow(t *testing.T) {
	escrow, err := Escrow(testProgram, 1)
	require.NoError(t, err)
	vault, err := Vault(testProgram, escrow.Key)
	require.NoError(t, err)

	again, err := VaultWithBump(testProgram, escrow.Key, vault.Bump)
	require.NoError(t, err)
	assert.Equal(t, vault.Key, again.Key)
	assert.Equal(t, []byte("vault"), vault.Seeds[0])
	assert.Equal(t, escrow.Key.Bytes(), vault.Seeds[1])
}

func TestVerifyWithStoredBump(t *testing.T) {
	escrow, err := Escrow(testProgram, 3)
	require.NoError(t, err)

	require.NoError(t, Verify(testProgram, escrow.Key, escrow.Bump, EscrowSeeds(3)))
	require.ErrorIs(t, Verify(testProgram, solana.SystemProgramID, escrow.Bump, EscrowSeeds(3)), ErrSeedsMismatch)
}

func TestAuthority(t *testing.T) {
	escrow, err := Escrow(testProgram, 9)
	require.NoError(t, err)

	auth := escrow.Authority(testProgram)
	require.Len(t, auth.Seeds, 3)
	assert.Equal(t, []byte{escrow.Bump}, auth.Seeds[2])

	addr, err := auth.Address()
	require.NoError(t, err)
	assert.Equal(t, escrow.Key, addr)

	forged := Authority{ProgramID: solana.TokenProgramID, Seeds: auth.Seeds}
	forgedAddr, err := forged.Address()
	if err == nil {
		assert.NotEqual(t, escrow.Key, forgedAddr)
	}
}
