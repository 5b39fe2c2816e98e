package relationaldb

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	ErrInvalidDriver         = errors.New("invalid database driver")
	ErrMissingDSN            = errors.New("database dsn is required")
	ErrInvalidMaxOpenConns   = errors.New("max open connections must be >= 0")
	ErrInvalidMaxIdleConns   = errors.New("max idle connections must be >= 0")
	ErrMaxIdleExceedsMaxOpen = errors.New("max idle connections cannot exceed max open connections")
	ErrInvalidTimeout        = errors.New("timeout must be positive")
)

// Runtime errors
var (
	ErrDatabaseClosed      = errors.New("database connection is closed")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// ErrorKind classifies a DatabaseError
type ErrorKind int

const (
	KindConnection ErrorKind = iota
	KindSchema
	KindQuery
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindSchema:
		return "schema"
	case KindQuery:
		return "query"
	default:
		return "unknown"
	}
}

// DatabaseError wraps a driver error with the operation that produced it
type DatabaseError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *DatabaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Op, e.Message)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func NewConnectionError(op, message string, err error) error {
	return &DatabaseError{Kind: KindConnection, Op: op, Message: message, Err: err}
}

func NewSchemaError(op, message string, err error) error {
	return &DatabaseError{Kind: KindSchema, Op: op, Message: message, Err: err}
}

func NewQueryError(op, message string, err error) error {
	return &DatabaseError{Kind: KindQuery, Op: op, Message: message, Err: err}
}
