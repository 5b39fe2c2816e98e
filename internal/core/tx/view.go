package tx

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

// ReadView provides read access to ledger state. Read returns nil, nil for
// addresses that hold no account.
type ReadView interface {
	Read(key solana.PublicKey) (*entry.Account, error)
	Exists(key solana.PublicKey) (bool, error)
}

// LedgerView provides read/write access to ledger state
type LedgerView interface {
	ReadView

	// Insert adds a new account
	Insert(key solana.PublicKey, acct *entry.Account) error

	// Update replaces an existing account
	Update(key solana.PublicKey, acct *entry.Account) error

	// Erase removes an account
	Erase(key solana.PublicKey) error
}

// ErrAlreadyProcessed is returned by Ledger.CommitTransaction for a
// transaction id that was committed before.
var ErrAlreadyProcessed = errors.New("transaction already processed")

// Ledger is the committed state the engine applies transactions against.
type Ledger interface {
	ReadView

	// Commit atomically persists a set of changes and returns the ledger
	// sequence they were committed at.
	Commit(ctx context.Context, changes []entry.Change) (uint64, error)

	// CommitTransaction is Commit that also records hash as processed, in
	// the same batch. A hash recorded earlier fails with ErrAlreadyProcessed
	// and nothing is written.
	CommitTransaction(ctx context.Context, hash Hash, changes []entry.Change) (uint64, error)

	// Processed reports whether hash was recorded by CommitTransaction.
	Processed(hash Hash) (bool, error)
}
