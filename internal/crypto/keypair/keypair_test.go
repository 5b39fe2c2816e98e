package keypair

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSeed(t *testing.T) {
	a1, err := FromSeed([]byte("alice"))
	require.NoError(t, err)
	a2, err := FromSeed([]byte("alice"))
	require.NoError(t, err)
	b, err := FromSeed([]byte("bob"))
	require.NoError(t, err)

	assert.Equal(t, a1.PublicKey(), a2.PublicKey())
	assert.NotEqual(t, a1.PublicKey(), b.PublicKey())

	_, err = FromSeed(nil)
	require.ErrorIs(t, err, ErrEmptySeed)
}

func TestSaveLoad(t *testing.T) {
	key, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, Save(path, key))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), loaded.PublicKey())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrInvalidKeyFile)
}

func TestSignatureRoundTrip(t *testing.T) {
	key, err := FromSeed([]byte("signer"))
	require.NoError(t, err)

	msg := []byte("message")
	sig, err := key.Sign(msg)
	require.NoError(t, err)
	assert.True(t, sig.Verify(key.PublicKey(), msg))
	assert.False(t, sig.Verify(key.PublicKey(), []byte("other")))
}
