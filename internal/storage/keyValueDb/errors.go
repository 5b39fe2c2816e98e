package keyValueDb

import "errors"

var (
	// ErrDBClosed is returned by every operation on a closed database
	ErrDBClosed = errors.New("keyValueDb is closed")

	// ErrKeyNotFound is returned by Read for absent keys. The ledger maps it
	// to an empty account.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDBNotOpen is returned by Manager.CloseDB for names it never opened
	ErrDBNotOpen = errors.New("keyValueDb is not open")

	// ErrUnknownBatchOp rejects a batch holding an operation type other than
	// BatchPut or BatchDelete; nothing in the batch is applied
	ErrUnknownBatchOp = errors.New("unknown batch operation")
)
