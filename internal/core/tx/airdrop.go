package tx

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

var (
	ErrZeroAirdrop     = errors.New("airdrop amount must be positive")
	ErrAirdropOverflow = errors.New("airdrop would overflow the account balance")
)

// Airdrop credits lamports to key outside of any transaction. It holds the
// account's write lock so it serializes with in-flight transactions.
// Returns the new balance.
func (e *Engine) Airdrop(ctx context.Context, key solana.PublicKey, lamports uint64) (uint64, error) {
	if lamports == 0 {
		return 0, ErrZeroAirdrop
	}
	release, err := e.locks.acquire(ctx, []solana.PublicKey{key}, nil)
	if err != nil {
		return 0, err
	}
	defer release()

	current, err := e.ledger.Read(key)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}

	change := entry.Change{Key: key, Action: ActionFor(current)}
	next := entry.NewSystemAccount(0)
	if current != nil {
		change.Original = current
		next = current.Clone()
	}
	sum, carry := bits.Add64(next.Lamports, lamports, 0)
	if carry != 0 {
		return 0, ErrAirdropOverflow
	}
	next.Lamports = sum
	change.Current = next

	seq, err := e.ledger.Commit(ctx, []entry.Change{change})
	if err != nil {
		return 0, fmt.Errorf("commit airdrop: %w", err)
	}
	e.log.WithFields(logrus.Fields{
		"account":  key.String(),
		"lamports": lamports,
		"sequence": seq,
	}).Info("airdrop")
	return sum, nil
}

// ActionFor returns the change action that writes over current.
func ActionFor(current *entry.Account) entry.Action {
	if current == nil {
		return entry.ActionInsert
	}
	return entry.ActionModify
}
