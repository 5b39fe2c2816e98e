package bbolt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb"
	"go.etcd.io/bbolt"
)

type BBoltDB struct {
	db     *bbolt.DB
	bucket []byte
}

func NewBBoltDB(db *bbolt.DB, bucket []byte) *BBoltDB {
	return &BBoltDB{
		db:     db,
		bucket: bucket,
	}
}

func (b *BBoltDB) bucketOf(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket(b.bucket)
	if bucket == nil {
		return nil, fmt.Errorf("bucket %s not found", string(b.bucket))
	}
	return bucket, nil
}

func (b *BBoltDB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if b.db == nil {
		return nil, keyValueDb.ErrDBClosed
	}

	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket, err := b.bucketOf(tx)
		if err != nil {
			return err
		}
		v := bucket.Get(key)
		if v == nil {
			return keyValueDb.ErrKeyNotFound
		}
		// bbolt values are only valid inside the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BBoltDB) Write(ctx context.Context, key []byte, value []byte) error {
	if b.db == nil {
		return keyValueDb.ErrDBClosed
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := b.bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.Put(key, value)
	})
}

func (b *BBoltDB) Delete(ctx context.Context, key []byte) error {
	if b.db == nil {
		return keyValueDb.ErrDBClosed
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := b.bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.Delete(key)
	})
}

func (b *BBoltDB) Batch(ctx context.Context, ops []keyValueDb.BatchOperation) error {
	if b.db == nil {
		return keyValueDb.ErrDBClosed
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := b.bucketOf(tx)
		if err != nil {
			return err
		}
		for _, op := range ops {
			switch op.Type {
			case keyValueDb.BatchPut:
				err = bucket.Put(op.Key, op.Value)
			case keyValueDb.BatchDelete:
				err = bucket.Delete(op.Key)
			default:
				err = fmt.Errorf("%w: type %d", keyValueDb.ErrUnknownBatchOp, op.Type)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type BBoltIterator struct {
	tx      *bbolt.Tx
	cursor  *bbolt.Cursor
	started bool
	current struct {
		key, value []byte
	}
	start, end []byte
}

func (b *BBoltDB) Iterator(ctx context.Context, start, end []byte) (keyValueDb.Iterator, error) {
	if b.db == nil {
		return nil, keyValueDb.ErrDBClosed
	}

	tx, err := b.db.Begin(false)
	if err != nil {
		return nil, err
	}
	bucket, err := b.bucketOf(tx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return &BBoltIterator{
		tx:     tx,
		cursor: bucket.Cursor(),
		start:  start,
		end:    end,
	}, nil
}

func (it *BBoltIterator) Next() bool {
	var k, v []byte
	if !it.started {
		it.started = true
		if it.start == nil {
			k, v = it.cursor.First()
		} else {
			k, v = it.cursor.Seek(it.start)
		}
	} else {
		k, v = it.cursor.Next()
	}

	if k == nil || (it.end != nil && bytes.Compare(k, it.end) >= 0) {
		it.current.key = nil
		it.current.value = nil
		return false
	}

	it.current.key = append([]byte(nil), k...)
	it.current.value = append([]byte(nil), v...)
	return true
}

func (it *BBoltIterator) Key() []byte {
	return it.current.key
}

func (it *BBoltIterator) Value() []byte {
	return it.current.value
}

func (it *BBoltIterator) Error() error {
	return nil
}

func (it *BBoltIterator) Close() error {
	return it.tx.Rollback()
}
