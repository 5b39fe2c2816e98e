package escrow

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscriminatorsAreFrozen(t *testing.T) {
	for name, disc := range map[string][8]byte{
		"global:initialize":     InitializeDiscriminator,
		"global:exchange":       ExchangeDiscriminator,
		"global:cancel":         CancelDiscriminator,
		"account:EscrowAccount": AccountDiscriminator,
	} {
		sum := sha256.Sum256([]byte(name))
		assert.Equal(t, sum[:8], disc[:], name)
	}
}

func TestDecodeInstruction(t *testing.T) {
	want := &Initialize{AmountA: 100, AmountB: 200, EscrowBump: 254, VaultBump: 253, ID: 7}
	data, err := want.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, DiscriminatorSize+InitializeArgsSize)
	assert.Equal(t, []byte{100, 0, 0, 0, 0, 0, 0, 0}, data[8:16])
	assert.Equal(t, byte(254), data[24])
	assert.Equal(t, byte(7), data[26])

	t.Run("initialize", func(t *testing.T) {
		ix, err := DecodeInstruction(data)
		require.NoError(t, err)
		assert.Equal(t, want, ix)
	})

	t.Run("exchange and cancel", func(t *testing.T) {
		ix, err := DecodeInstruction(ExchangeDiscriminator[:])
		require.NoError(t, err)
		assert.IsType(t, &Exchange{}, ix)
		ix, err = DecodeInstruction(CancelDiscriminator[:])
		require.NoError(t, err)
		assert.IsType(t, &Cancel{}, ix)
	})

	t.Run("length must match exactly", func(t *testing.T) {
		_, err := DecodeInstruction(data[:len(data)-1])
		assert.ErrorIs(t, err, ErrInvalidLength)
		_, err = DecodeInstruction(append(append([]byte{}, data...), 0))
		assert.ErrorIs(t, err, ErrInvalidLength)
		_, err = DecodeInstruction(append(ExchangeDiscriminator[:], 1))
		assert.ErrorIs(t, err, ErrInvalidLength)
		_, err = DecodeInstruction([]byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("unknown discriminator", func(t *testing.T) {
		_, err := DecodeInstruction(make([]byte, 8))
		assert.ErrorIs(t, err, ErrUnknownDiscriminator)
	})
}

func TestInstructionName(t *testing.T) {
	assert.Equal(t, "exchange", Program{}.InstructionName(ExchangeDiscriminator[:]))
	assert.Equal(t, "unknown", Program{}.InstructionName(nil))
}
