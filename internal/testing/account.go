package testing

import (
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/crypto/keypair"
)

// Account is a named test keypair.
type Account struct {
	// Name is a human-readable identifier for the account
	Name string

	// Key signs for the account
	Key solana.PrivateKey
}

// NewAccount creates an account whose keypair is derived from name. The
// same name always yields the same key.
func NewAccount(name string) *Account {
	key, err := keypair.FromSeed([]byte("escrow-test:" + name))
	if err != nil {
		panic(err)
	}
	return &Account{Name: name, Key: key}
}

// PublicKey returns the account address.
func (a *Account) PublicKey() solana.PublicKey {
	return a.Key.PublicKey()
}

func (a *Account) String() string {
	return a.Name + "(" + a.PublicKey().String() + ")"
}
