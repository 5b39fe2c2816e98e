package tx

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction(t *testing.T) (*Transaction, solana.PrivateKey) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	txn := NewTransaction(42,
		Instruction{
			ProgramID: testProgramID,
			Accounts: []*solana.AccountMeta{
				solana.Meta(key.PublicKey()).WRITE().SIGNER(),
				solana.Meta(solana.SysVarRentPubkey),
			},
			Data: []byte{1, 2, 3},
		},
		Instruction{ProgramID: testProgramID, Data: []byte{4}},
	)
	require.NoError(t, txn.Sign(key))
	return txn, key
}

func TestTransaction_BinaryRoundTrip(t *testing.T) {
	txn, _ := sampleTransaction(t)

	raw, err := txn.MarshalBinary()
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, decoded.UnmarshalBinary(raw))
	assert.Equal(t, txn.Signatures, decoded.Signatures)
	assert.Equal(t, txn.Message.Nonce, decoded.Message.Nonce)
	require.Len(t, decoded.Message.Instructions, 2)
	assert.Equal(t, txn.Message.Instructions[0].Accounts, decoded.Message.Instructions[0].Accounts)
	assert.Equal(t, []byte{4}, decoded.Message.Instructions[1].Data)

	h1, err := txn.Hash()
	require.NoError(t, err)
	h2, err := decoded.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	parsed, err := ParseHash(h1.String())
	require.NoError(t, err)
	assert.Equal(t, h1, parsed)
}

func TestTransaction_HashIgnoresSignatureOrder(t *testing.T) {
	txn, _ := sampleTransaction(t)
	if len(txn.Signatures) < 2 {
		txn.Signatures = append(txn.Signatures, SignatureEntry{Signer: solana.NewWallet().PublicKey()})
	}
	h1, err := txn.Hash()
	require.NoError(t, err)

	txn.Signatures[0], txn.Signatures[1] = txn.Signatures[1], txn.Signatures[0]
	h2, err := txn.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	txn.Message.Nonce++
	h3, err := txn.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestTransaction_UnmarshalRejectsGarbage(t *testing.T) {
	txn, _ := sampleTransaction(t)
	raw, err := txn.MarshalBinary()
	require.NoError(t, err)

	var decoded Transaction
	assert.ErrorIs(t, decoded.UnmarshalBinary(append(raw, 0)), ErrTrailingBytes)
	assert.Error(t, decoded.UnmarshalBinary(raw[:len(raw)-1]))
	assert.Error(t, decoded.UnmarshalBinary(nil))
}

func TestTransaction_Signatures(t *testing.T) {
	txn, key := sampleTransaction(t)

	signed, err := txn.VerifySignatures()
	require.NoError(t, err)
	assert.True(t, signed[key.PublicKey()])
	assert.Equal(t, []solana.PublicKey{key.PublicKey()}, txn.Message.Signers())

	// Re-signing replaces rather than duplicates.
	require.NoError(t, txn.Sign(key))
	assert.Len(t, txn.Signatures, 1)

	txn.Message.Instructions[0].Data[0] = 9
	_, err = txn.VerifySignatures()
	assert.Error(t, err)
}

func TestMessage_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Message{}).Validate(), ErrNoInstructions)

	big := Message{Instructions: []Instruction{{ProgramID: testProgramID, Data: make([]byte, MaxInstructionDataSize+1)}}}
	assert.ErrorIs(t, big.Validate(), ErrDataTooLarge)

	many := Message{Instructions: make([]Instruction, MaxInstructions+1)}
	assert.ErrorIs(t, many.Validate(), ErrTooManyIx)
}
