package tx

import (
	"bytes"
	"errors"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

var (
	ErrEntryExists   = errors.New("entry already exists")
	ErrEntryNotFound = errors.New("entry not found")
	ErrEntryErased   = errors.New("entry already deleted")
)

// ApplyStateTable wraps a ReadView and tracks every modification made while
// a transaction executes. Nothing reaches the base until the engine commits
// the tracked changes; discarding the table discards the transaction.
type ApplyStateTable struct {
	base  ReadView
	items map[solana.PublicKey]*entry.Change
}

// NewApplyStateTable creates a new ApplyStateTable wrapping the given base view
func NewApplyStateTable(base ReadView) *ApplyStateTable {
	return &ApplyStateTable{
		base:  base,
		items: make(map[solana.PublicKey]*entry.Change),
	}
}

// Read reads an account, tracking it as cached. The returned account is a
// copy; callers write changes back through Update.
func (t *ApplyStateTable) Read(key solana.PublicKey) (*entry.Account, error) {
	if item, exists := t.items[key]; exists {
		if item.Action == entry.ActionErase {
			return nil, nil
		}
		return item.Current.Clone(), nil
	}

	acct, err := t.base.Read(key)
	if err != nil {
		return nil, err
	}

	// Only track entries that exist in the base
	if acct != nil {
		t.items[key] = &entry.Change{
			Key:      key,
			Action:   entry.ActionCache,
			Original: acct.Clone(),
			Current:  acct.Clone(),
		}
	}
	return acct.Clone(), nil
}

// Exists checks if an account exists
func (t *ApplyStateTable) Exists(key solana.PublicKey) (bool, error) {
	if item, exists := t.items[key]; exists {
		return item.Action != entry.ActionErase, nil
	}
	return t.base.Exists(key)
}

// Insert adds a new account
func (t *ApplyStateTable) Insert(key solana.PublicKey, acct *entry.Account) error {
	if item, exists := t.items[key]; exists {
		if item.Action != entry.ActionErase {
			return ErrEntryExists
		}
		// Re-inserting a deleted entry becomes a modify
		item.Action = entry.ActionModify
		item.Current = acct.Clone()
		return nil
	}

	exists, err := t.base.Exists(key)
	if err != nil {
		return err
	}
	if exists {
		return ErrEntryExists
	}

	t.items[key] = &entry.Change{
		Key:     key,
		Action:  entry.ActionInsert,
		Current: acct.Clone(),
	}
	return nil
}

// Update modifies an existing account
func (t *ApplyStateTable) Update(key solana.PublicKey, acct *entry.Account) error {
	if item, exists := t.items[key]; exists {
		if item.Action == entry.ActionErase {
			return ErrEntryErased
		}
		if item.Action == entry.ActionCache {
			item.Action = entry.ActionModify
		}
		// For insert, keep it as insert with new data
		item.Current = acct.Clone()
		return nil
	}

	original, err := t.base.Read(key)
	if err != nil {
		return err
	}
	if original == nil {
		return ErrEntryNotFound
	}

	t.items[key] = &entry.Change{
		Key:      key,
		Action:   entry.ActionModify,
		Original: original,
		Current:  acct.Clone(),
	}
	return nil
}

// Erase removes an account
func (t *ApplyStateTable) Erase(key solana.PublicKey) error {
	if item, exists := t.items[key]; exists {
		if item.Action == entry.ActionErase {
			return ErrEntryErased
		}
		if item.Action == entry.ActionInsert {
			// Inserting then deleting = no change, remove from tracking
			delete(t.items, key)
			return nil
		}
		item.Action = entry.ActionErase
		return nil
	}

	original, err := t.base.Read(key)
	if err != nil {
		return err
	}
	if original == nil {
		return ErrEntryNotFound
	}

	t.items[key] = &entry.Change{
		Key:      key,
		Action:   entry.ActionErase,
		Original: original,
		Current:  original.Clone(),
	}
	return nil
}

// IsErased returns true if the account at key has been erased.
func (t *ApplyStateTable) IsErased(key solana.PublicKey) bool {
	if item, exists := t.items[key]; exists {
		return item.Action == entry.ActionErase
	}
	return false
}

// Changes returns the net modifications in key order. Cached reads and
// modifications that restored the original state are omitted.
func (t *ApplyStateTable) Changes() []entry.Change {
	out := make([]entry.Change, 0, len(t.items))
	for _, item := range t.items {
		switch item.Action {
		case entry.ActionCache:
			continue
		case entry.ActionModify:
			if item.Original.Equal(item.Current) {
				continue
			}
		}
		c := *item
		if c.Action == entry.ActionErase {
			c.Current = nil
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key[:], out[j].Key[:]) < 0
	})
	return out
}
