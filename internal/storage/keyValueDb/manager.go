package keyValueDb

// Manager owns named databases under one backend. The node opens a single
// database, "ledger", for account state.
type Manager interface {
	// OpenDB returns the named database, opening it on first use
	OpenDB(name string) (DB, error)

	// CloseDB closes one database; unknown names fail with ErrDBNotOpen
	CloseDB(name string) error

	// Close closes every open database
	Close() error
}
