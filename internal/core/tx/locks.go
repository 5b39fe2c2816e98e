package tx

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// accountLocks grants all-or-nothing account locks to transactions:
// writable accounts exclusively, read-only accounts shared. Waiters block
// until some holder releases and then retry the whole set.
type accountLocks struct {
	mu       sync.Mutex
	writers  map[solana.PublicKey]bool
	readers  map[solana.PublicKey]int
	released chan struct{}
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		writers:  make(map[solana.PublicKey]bool),
		readers:  make(map[solana.PublicKey]int),
		released: make(chan struct{}),
	}
}

// acquire blocks until every key can be locked or ctx is done.
func (l *accountLocks) acquire(ctx context.Context, writable, readonly []solana.PublicKey) (func(), error) {
	for {
		l.mu.Lock()
		if l.available(writable, readonly) {
			for _, k := range writable {
				l.writers[k] = true
			}
			for _, k := range readonly {
				l.readers[k]++
			}
			l.mu.Unlock()
			var once sync.Once
			return func() { once.Do(func() { l.release(writable, readonly) }) }, nil
		}
		wait := l.released
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

func (l *accountLocks) available(writable, readonly []solana.PublicKey) bool {
	for _, k := range writable {
		if l.writers[k] || l.readers[k] > 0 {
			return false
		}
	}
	for _, k := range readonly {
		if l.writers[k] {
			return false
		}
	}
	return true
}

func (l *accountLocks) release(writable, readonly []solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range writable {
		delete(l.writers, k)
	}
	for _, k := range readonly {
		if l.readers[k]--; l.readers[k] <= 0 {
			delete(l.readers, k)
		}
	}
	close(l.released)
	l.released = make(chan struct{})
}

// lockSets splits the keys a message touches into writable and read-only
// sets in key order. A key writable in any instruction is writable.
func lockSets(m *Message) (writable, readonly []solana.PublicKey) {
	access := make(map[solana.PublicKey]bool)
	note := func(k solana.PublicKey, w bool) {
		access[k] = access[k] || w
	}
	for _, ix := range m.Instructions {
		note(ix.ProgramID, false)
		for _, meta := range ix.Accounts {
			note(meta.PublicKey, meta.IsWritable)
		}
	}
	keys := make([]solana.PublicKey, 0, len(access))
	for k := range access {
		keys = append(keys, k)
	}
	sortKeys(keys)
	for _, k := range keys {
		if access[k] {
			writable = append(writable, k)
		} else {
			readonly = append(readonly, k)
		}
	}
	return writable, readonly
}

func sortKeys(keys []solana.PublicKey) {
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
}
