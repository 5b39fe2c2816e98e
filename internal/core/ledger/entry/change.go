package entry

import "github.com/gagliardetto/solana-go"

// Action represents the type of modification to a ledger entry
type Action int

const (
	// ActionCache means the entry was read but not modified
	ActionCache Action = iota
	// ActionInsert means a new entry was created
	ActionInsert
	// ActionModify means an existing entry was modified
	ActionModify
	// ActionErase means an entry was deleted
	ActionErase
)

func (a Action) String() string {
	switch a {
	case ActionCache:
		return "cached"
	case ActionInsert:
		return "created"
	case ActionModify:
		return "modified"
	case ActionErase:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one account mutation produced by an applied transaction.
// Original is nil for inserts; Current is nil for erases.
type Change struct {
	Key      solana.PublicKey
	Action   Action
	Original *Account
	Current  *Account
}
