// Package keypair generates and persists the ed25519 keys that sign ledger transactions.
package keypair

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	crypto "github.com/LeJamon/goEscrow/internal/crypto/common"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrEmptySeed       = errors.New("seed must not be empty")
	ErrInvalidKeyFile  = errors.New("invalid key file")
	ErrInvalidKeyBytes = errors.New("private key must be 64 bytes")
)

// FromSeed derives a deterministic keypair from arbitrary seed material.
// The ed25519 seed is the first half of sha512 over the input.
func FromSeed(seed []byte) (solana.PrivateKey, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	keyMaterial := crypto.Sha512Half(seed)
	return solana.PrivateKey(ed25519.NewKeyFromSeed(keyMaterial[:])), nil
}

// Generate returns a fresh random keypair.
func Generate() (solana.PrivateKey, error) {
	return solana.NewRandomPrivateKey()
}

// Save writes the key as a JSON byte array, the format read by solana-keygen.
func Save(path string, key solana.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return ErrInvalidKeyBytes
	}
	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load reads a key written by Save or by solana-keygen.
func Load(path string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKeyFile, path, err)
	}
	return key, nil
}
