package testing

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger"
	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrow/internal/core/tx/token"
	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb/pebble"

	// Registers every built-in program
	_ "github.com/LeJamon/goEscrow/internal/core/tx/all"
)

// DefaultFunding is the lamport balance Fund gives each account.
const DefaultFunding uint64 = 10_000_000_000

// TestEnv manages a test ledger environment for transaction testing.
// It is safe for concurrent Submit calls.
type TestEnv struct {
	t      *testing.T
	ledger *ledger.Ledger
	engine *tx.Engine
	rent   tx.Rent
	nonce  atomic.Uint64

	mu       sync.RWMutex
	accounts map[solana.PublicKey]*Account
}

// NewTestEnv creates an environment over an in-memory ledger.
func NewTestEnv(t *testing.T, observers ...tx.Observer) *TestEnv {
	t.Helper()
	return newTestEnv(t, keyValueDb.NewMemoryDB(), observers)
}

// NewTestEnvBacked creates an environment whose ledger lives in pebble under
// t.TempDir().
func NewTestEnvBacked(t *testing.T, observers ...tx.Observer) *TestEnv {
	t.Helper()
	manager := pebble.NewManager(t.TempDir())
	t.Cleanup(func() { _ = manager.Close() })
	db, err := manager.OpenDB("ledger")
	if err != nil {
		t.Fatalf("Failed to open pebble ledger: %v", err)
	}
	return newTestEnv(t, db, observers)
}

func newTestEnv(t *testing.T, db keyValueDb.DB, observers []tx.Observer) *TestEnv {
	t.Helper()
	rent := tx.DefaultRent()
	l, err := ledger.Open(context.Background(), db, ledger.Config{Rent: rent})
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	return &TestEnv{
		t:        t,
		ledger:   l,
		engine:   tx.NewEngine(l, tx.EngineConfig{}, observers...),
		rent:     rent,
		accounts: make(map[solana.PublicKey]*Account),
	}
}

// Ledger returns the committed state.
func (e *TestEnv) Ledger() *ledger.Ledger { return e.ledger }

// Engine returns the transaction engine.
func (e *TestEnv) Engine() *tx.Engine { return e.engine }

// Rent returns the rent parameters published at genesis.
func (e *TestEnv) Rent() tx.Rent { return e.rent }

// Account returns the named account, registering its key for signing.
func (e *TestEnv) Account(name string) *Account {
	acct := NewAccount(name)
	e.mu.Lock()
	e.accounts[acct.PublicKey()] = acct
	e.mu.Unlock()
	return acct
}

// Fund credits each account with DefaultFunding lamports.
func (e *TestEnv) Fund(accounts ...*Account) {
	e.t.Helper()
	for _, a := range accounts {
		e.FundAmount(a, DefaultFunding)
	}
}

// FundAmount credits acct with lamports.
func (e *TestEnv) FundAmount(acct *Account, lamports uint64) {
	e.t.Helper()
	if _, err := e.engine.Airdrop(context.Background(), acct.PublicKey(), lamports); err != nil {
		e.t.Fatalf("Failed to fund %s: %v", acct, err)
	}
}

// NewTransaction wraps instructions with a fresh nonce.
func (e *TestEnv) NewTransaction(ixs ...tx.Instruction) *tx.Transaction {
	return tx.NewTransaction(e.nonce.Add(1), ixs...)
}

// Submit signs with every required signer the environment knows and applies
// the transaction. Unknown signers are left unsigned.
func (e *TestEnv) Submit(ixs ...tx.Instruction) tx.ApplyResult {
	e.t.Helper()
	txn := e.NewTransaction(ixs...)
	var signers []*Account
	e.mu.RLock()
	for _, k := range txn.Message.Signers() {
		if a, ok := e.accounts[k]; ok {
			signers = append(signers, a)
		}
	}
	e.mu.RUnlock()
	return e.SubmitTransaction(txn, signers...)
}

// SubmitSignedBy applies a transaction signed by exactly signers.
func (e *TestEnv) SubmitSignedBy(signers []*Account, ixs ...tx.Instruction) tx.ApplyResult {
	e.t.Helper()
	return e.SubmitTransaction(e.NewTransaction(ixs...), signers...)
}

// SubmitTransaction signs txn with signers and applies it.
func (e *TestEnv) SubmitTransaction(txn *tx.Transaction, signers ...*Account) tx.ApplyResult {
	e.t.Helper()
	keys := make([]solana.PrivateKey, len(signers))
	for i, s := range signers {
		keys[i] = s.Key
	}
	if err := txn.Sign(keys...); err != nil {
		e.t.Fatalf("Failed to sign transaction: %v", err)
	}
	return e.engine.Submit(context.Background(), txn)
}

// Read returns the account at key, or nil.
func (e *TestEnv) Read(key solana.PublicKey) *entry.Account {
	e.t.Helper()
	acct, err := e.ledger.Read(key)
	if err != nil {
		e.t.Fatalf("Failed to read %s: %v", key, err)
	}
	return acct
}

// Exists reports whether key holds an account.
func (e *TestEnv) Exists(key solana.PublicKey) bool {
	return e.Read(key) != nil
}

// Balance returns the lamports held at key.
func (e *TestEnv) Balance(key solana.PublicKey) uint64 {
	if acct := e.Read(key); acct != nil {
		return acct.Lamports
	}
	return 0
}

// CreateMint creates a mint with authority as mint authority, paid for by
// authority. The mint address is a fresh named account.
func (e *TestEnv) CreateMint(authority *Account, decimals uint8) *Account {
	e.t.Helper()
	mint := e.Account(authority.Name + "-mint-" + e.suffix())
	res := e.Submit(token.CreateMintInstructions(e.rent, authority.PublicKey(), mint.PublicKey(), authority.PublicKey(), decimals)...)
	RequireTxSuccess(e.t, res)
	return mint
}

// CreateTokenAccount creates a token account for owner holding mint.
func (e *TestEnv) CreateTokenAccount(owner, mint *Account) *Account {
	e.t.Helper()
	acct := e.Account(owner.Name + "-" + mint.Name + "-" + e.suffix())
	res := e.Submit(token.CreateAccountInstructions(e.rent, owner.PublicKey(), acct.PublicKey(), mint.PublicKey(), owner.PublicKey())...)
	RequireTxSuccess(e.t, res)
	return acct
}

// MintTo issues amount of mint into destination.
func (e *TestEnv) MintTo(mint, authority, destination *Account, amount uint64) {
	e.t.Helper()
	res := e.Submit(token.NewMintToInstruction(mint.PublicKey(), destination.PublicKey(), authority.PublicKey(), amount))
	RequireTxSuccess(e.t, res)
}

// TokenAccount decodes the token account at key, or returns nil.
func (e *TestEnv) TokenAccount(key solana.PublicKey) *token.Account {
	e.t.Helper()
	acct := e.Read(key)
	if acct == nil {
		return nil
	}
	state, err := token.UnpackAccount(acct.Data)
	if err != nil {
		e.t.Fatalf("Account %s is not a token account: %v", key, err)
	}
	return state
}

// TokenBalance returns the token amount held at key; zero if absent.
func (e *TestEnv) TokenBalance(key solana.PublicKey) uint64 {
	e.t.Helper()
	if state := e.TokenAccount(key); state != nil {
		return state.Amount
	}
	return 0
}

// Escrow decodes the record for id, or returns nil if it does not exist.
func (e *TestEnv) Escrow(id uint64) *escrow.Record {
	e.t.Helper()
	record, _, err := escrow.Addresses(id)
	if err != nil {
		e.t.Fatalf("Failed to derive escrow %d: %v", id, err)
	}
	acct := e.Read(record.Key)
	if acct == nil {
		return nil
	}
	rec, err := escrow.UnmarshalRecord(acct.Data)
	if err != nil {
		e.t.Fatalf("Escrow %d does not decode: %v", id, err)
	}
	return rec
}

func (e *TestEnv) suffix() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return strconv.Itoa(len(e.accounts))
}
