// Package ledger holds committed account state on top of a keyValueDb.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	// Genesis must see every built-in program
	_ "github.com/LeJamon/goEscrow/internal/core/tx/all"
	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb"
)

// DefaultCacheSize is the number of decoded accounts kept in memory.
const DefaultCacheSize = 4096

var (
	accountPrefix   = []byte("a:")
	processedPrefix = []byte("p:")
	sequenceKey     = []byte("m:sequence")
)

var (
	ErrCorruptSequence = errors.New("corrupt ledger sequence")
	ErrInvalidChange   = errors.New("invalid ledger change")
)

// Config holds ledger configuration
type Config struct {
	// CacheSize is the LRU capacity; zero means DefaultCacheSize
	CacheSize int

	// Rent is published in the rent sysvar when the ledger is created;
	// the zero value means tx.DefaultRent
	Rent tx.Rent
}

// Ledger is the committed account state. It satisfies tx.Ledger.
type Ledger struct {
	mu    sync.RWMutex
	db    keyValueDb.DB
	cache *lru.Cache[solana.PublicKey, *entry.Account]
	seq   uint64
	log   *logrus.Entry
}

// Open loads the ledger stored in db, seeding genesis accounts when db is
// empty.
func Open(ctx context.Context, db keyValueDb.DB, config Config) (*Ledger, error) {
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if config.Rent == (tx.Rent{}) {
		config.Rent = tx.DefaultRent()
	}
	cache, err := lru.New[solana.PublicKey, *entry.Account](config.CacheSize)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		db:    db,
		cache: cache,
		log:   logrus.WithFields(logrus.Fields{"module": "ledger"}),
	}

	raw, err := db.Read(ctx, sequenceKey)
	switch {
	case errors.Is(err, keyValueDb.ErrKeyNotFound):
		if err := l.genesis(ctx, config.Rent); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read ledger sequence: %w", err)
	default:
		if len(raw) != 8 {
			return nil, fmt.Errorf("%w: %d bytes", ErrCorruptSequence, len(raw))
		}
		l.seq = binary.LittleEndian.Uint64(raw)
	}

	l.log.WithField("sequence", l.seq).Info("ledger opened")
	return l, nil
}

func (l *Ledger) genesis(ctx context.Context, rent tx.Rent) error {
	accounts := tx.GenesisAccounts(rent)
	ops := make([]keyValueDb.BatchOperation, 0, len(accounts)+1)
	for key, acct := range accounts {
		data, err := acct.Marshal()
		if err != nil {
			return fmt.Errorf("encode genesis account %s: %w", key, err)
		}
		ops = append(ops, keyValueDb.BatchOperation{Type: keyValueDb.BatchPut, Key: accountKey(key), Value: data})
	}
	ops = append(ops, keyValueDb.BatchOperation{Type: keyValueDb.BatchPut, Key: sequenceKey, Value: encodeSequence(0)})
	if err := l.db.Batch(ctx, ops); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	l.log.WithField("accounts", len(accounts)).Info("genesis written")
	return nil
}

// Sequence returns the sequence of the last commit.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Read returns a copy of the account at key, or nil if there is none.
func (l *Ledger) Read(key solana.PublicKey) (*entry.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.read(context.Background(), key)
}

func (l *Ledger) read(ctx context.Context, key solana.PublicKey) (*entry.Account, error) {
	if acct, ok := l.cache.Get(key); ok {
		return acct.Clone(), nil
	}
	raw, err := l.db.Read(ctx, accountKey(key))
	if errors.Is(err, keyValueDb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", key, err)
	}
	acct, err := entry.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode account %s: %w", key, err)
	}
	l.cache.Add(key, acct)
	return acct.Clone(), nil
}

// Exists reports whether key holds an account.
func (l *Ledger) Exists(key solana.PublicKey) (bool, error) {
	acct, err := l.Read(key)
	if err != nil {
		return false, err
	}
	return acct != nil, nil
}

// Commit writes changes and the next sequence in one batch.
func (l *Ledger) Commit(ctx context.Context, changes []entry.Change) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, changes, nil)
}

// CommitTransaction writes changes, the next sequence and the processed
// marker for hash in one batch.
func (l *Ledger) CommitTransaction(ctx context.Context, hash tx.Hash, changes []entry.Change) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	done, err := l.processed(ctx, hash)
	if err != nil {
		return 0, err
	}
	if done {
		return 0, fmt.Errorf("%w: %s", tx.ErrAlreadyProcessed, hash)
	}
	marker := keyValueDb.BatchOperation{Type: keyValueDb.BatchPut, Key: processedKey(hash)}
	return l.commit(ctx, changes, &marker)
}

// Processed reports whether a transaction with hash was committed.
func (l *Ledger) Processed(hash tx.Hash) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.processed(context.Background(), hash)
}

func (l *Ledger) processed(ctx context.Context, hash tx.Hash) (bool, error) {
	_, err := l.db.Read(ctx, processedKey(hash))
	switch {
	case errors.Is(err, keyValueDb.ErrKeyNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read processed %s: %w", hash, err)
	}
	return true, nil
}

func (l *Ledger) commit(ctx context.Context, changes []entry.Change, extra *keyValueDb.BatchOperation) (uint64, error) {
	ops := make([]keyValueDb.BatchOperation, 0, len(changes)+2)
	for _, c := range changes {
		switch c.Action {
		case entry.ActionErase:
			ops = append(ops, keyValueDb.BatchOperation{Type: keyValueDb.BatchDelete, Key: accountKey(c.Key)})
		case entry.ActionInsert, entry.ActionModify:
			if c.Current == nil {
				return 0, fmt.Errorf("%w: %s %s without account", ErrInvalidChange, c.Action, c.Key)
			}
			data, err := c.Current.Marshal()
			if err != nil {
				return 0, fmt.Errorf("encode account %s: %w", c.Key, err)
			}
			ops = append(ops, keyValueDb.BatchOperation{Type: keyValueDb.BatchPut, Key: accountKey(c.Key), Value: data})
		default:
			return 0, fmt.Errorf("%w: action %s for %s", ErrInvalidChange, c.Action, c.Key)
		}
	}

	next := l.seq + 1
	if extra != nil {
		extra.Value = encodeSequence(next)
		ops = append(ops, *extra)
	}
	ops = append(ops, keyValueDb.BatchOperation{Type: keyValueDb.BatchPut, Key: sequenceKey, Value: encodeSequence(next)})
	if err := l.db.Batch(ctx, ops); err != nil {
		return 0, fmt.Errorf("commit sequence %d: %w", next, err)
	}

	for _, c := range changes {
		if c.Action == entry.ActionErase {
			l.cache.Remove(c.Key)
		} else {
			l.cache.Add(c.Key, c.Current.Clone())
		}
	}
	l.seq = next
	return next, nil
}

// ForEachOwned calls fn for every account owned by program, in key order.
// Returning an error from fn stops the scan.
func (l *Ledger) ForEachOwned(ctx context.Context, program solana.PublicKey, fn func(key solana.PublicKey, acct *entry.Account) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	it, err := l.db.Iterator(ctx, accountPrefix, keyValueDb.PrefixEnd(accountPrefix))
	if err != nil {
		return fmt.Errorf("scan accounts: %w", err)
	}
	defer it.Close()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := it.Key()[len(accountPrefix):]
		if len(raw) != solana.PublicKeyLength {
			continue
		}
		acct, err := entry.Unmarshal(it.Value())
		if err != nil {
			return fmt.Errorf("decode account %x: %w", raw, err)
		}
		if acct.Owner != program {
			continue
		}
		if err := fn(solana.PublicKeyFromBytes(raw), acct); err != nil {
			return err
		}
	}
	return it.Error()
}

func accountKey(key solana.PublicKey) []byte {
	out := make([]byte, 0, len(accountPrefix)+solana.PublicKeyLength)
	out = append(out, accountPrefix...)
	return append(out, key[:]...)
}

func processedKey(hash tx.Hash) []byte {
	out := make([]byte, 0, len(processedPrefix)+len(hash))
	out = append(out, processedPrefix...)
	return append(out, hash[:]...)
}

func encodeSequence(seq uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seq)
	return buf[:]
}
