package keyValueDb

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryDB is a map-backed DB for tests and ephemeral nodes.
type MemoryDB struct {
	mu       sync.RWMutex
	data     map[string][]byte
	isClosed bool
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{data: make(map[string][]byte)}
}

func (m *MemoryDB) Read(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.isClosed {
		return nil, ErrDBClosed
	}
	if value, ok := m.data[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	return nil, ErrKeyNotFound
}

func (m *MemoryDB) Write(ctx context.Context, key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed {
		return ErrDBClosed
	}
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryDB) Delete(ctx context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed {
		return ErrDBClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *MemoryDB) Batch(ctx context.Context, ops []BatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed {
		return ErrDBClosed
	}
	// Validate before mutating so a bad batch changes nothing
	for _, op := range ops {
		if op.Type != BatchPut && op.Type != BatchDelete {
			return fmt.Errorf("%w: type %d", ErrUnknownBatchOp, op.Type)
		}
	}
	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			m.data[string(op.Key)] = append([]byte(nil), op.Value...)
		case BatchDelete:
			delete(m.data, string(op.Key))
		}
	}
	return nil
}

func (m *MemoryDB) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.isClosed {
		return nil, ErrDBClosed
	}

	it := &memoryIterator{position: -1}
	for k, v := range m.data {
		key := []byte(k)
		if start != nil && bytes.Compare(key, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(key, end) >= 0 {
			continue
		}
		it.keys = append(it.keys, key)
		it.values = append(it.values, append([]byte(nil), v...))
	}
	sort.Sort(it)
	return it, nil
}

// Close marks the database closed; later calls fail with ErrDBClosed.
func (m *MemoryDB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isClosed = true
	return nil
}

// memoryIterator iterates over a snapshot taken when it was created.
type memoryIterator struct {
	keys     [][]byte
	values   [][]byte
	position int
}

func (it *memoryIterator) Len() int           { return len(it.keys) }
func (it *memoryIterator) Less(i, j int) bool { return bytes.Compare(it.keys[i], it.keys[j]) < 0 }
func (it *memoryIterator) Swap(i, j int) {
	it.keys[i], it.keys[j] = it.keys[j], it.keys[i]
	it.values[i], it.values[j] = it.values[j], it.values[i]
}

func (it *memoryIterator) Next() bool {
	it.position++
	return it.position < len(it.keys)
}

func (it *memoryIterator) Key() []byte {
	if it.position < 0 || it.position >= len(it.keys) {
		return nil
	}
	return it.keys[it.position]
}

func (it *memoryIterator) Value() []byte {
	if it.position < 0 || it.position >= len(it.values) {
		return nil
	}
	return it.values[it.position]
}

func (it *memoryIterator) Error() error { return nil }
func (it *memoryIterator) Close() error { return nil }

// MemoryManager hands out named in-memory databases.
type MemoryManager struct {
	mu  sync.Mutex
	dbs map[string]*MemoryDB
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{dbs: make(map[string]*MemoryDB)}
}

func (m *MemoryManager) OpenDB(name string) (DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if db, ok := m.dbs[name]; ok {
		return db, nil
	}
	db := NewMemoryDB()
	m.dbs[name] = db
	return db, nil
}

func (m *MemoryManager) CloseDB(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, ok := m.dbs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDBNotOpen, name)
	}
	delete(m.dbs, name)
	return db.Close()
}

func (m *MemoryManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, db := range m.dbs {
		_ = db.Close()
		delete(m.dbs, name)
	}
	return nil
}
