// Package relationaldb keeps a SQL journal of every submitted transaction.
package relationaldb

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrow/internal/core/tx"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// TransactionRecord is one journal row.
type TransactionRecord struct {
	Hash         tx.Hash
	Sequence     uint64
	ResultCode   int
	Result       string
	Applied      bool
	Instructions []string
	Accounts     []solana.PublicKey
	Raw          []byte
	RecordedAt   time.Time
}

// Journal stores TransactionRecords in SQLite or PostgreSQL.
type Journal struct {
	db     *sql.DB
	config *Config
	log    *logrus.Entry
}

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, config *Config) (*Journal, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, NewConnectionError("open", "failed to open database connection", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, config.DefaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, NewConnectionError("open", "failed to ping database", err)
	}

	j := &Journal{
		db:     db,
		config: config,
		log:    logrus.WithFields(logrus.Fields{"module": "journal", "driver": config.Driver}),
	}
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, NewSchemaError("open", "failed to initialize schema", err)
	}
	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	blob := "BLOB"
	if j.config.Driver == DriverPostgres {
		blob = "BYTEA"
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			hash TEXT PRIMARY KEY,
			sequence BIGINT NOT NULL,
			result_code INTEGER NOT NULL,
			result TEXT NOT NULL,
			applied BOOLEAN NOT NULL,
			instructions TEXT NOT NULL,
			raw ` + blob + ` NOT NULL,
			recorded_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS account_transactions (
			account TEXT NOT NULL,
			hash TEXT NOT NULL,
			recorded_at BIGINT NOT NULL,
			PRIMARY KEY (account, hash)
		)`,
		`CREATE INDEX IF NOT EXISTS account_transactions_recent
			ON account_transactions (account, recorded_at)`,
	}
	for _, q := range queries {
		if _, err := j.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	if err != nil {
		return NewConnectionError("close", "failed to close database connection", err)
	}
	return nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (j *Journal) rebind(query string) string {
	if j.config.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RecordTransaction inserts rec. An earlier rejected attempt with the same
// hash is replaced; an applied row is final and later records for its hash
// are dropped.
func (j *Journal) RecordTransaction(ctx context.Context, rec *TransactionRecord) error {
	if j.db == nil {
		return ErrDatabaseClosed
	}
	ctx, cancel := context.WithTimeout(ctx, j.config.DefaultTimeout)
	defer cancel()

	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	hash := rec.Hash.String()
	at := rec.RecordedAt.UnixNano()

	dbtx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return NewQueryError("record_transaction", "failed to begin", err)
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx, j.rebind(`INSERT INTO transactions
		(hash, sequence, result_code, result, applied, instructions, raw, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hash) DO UPDATE SET
			sequence = excluded.sequence,
			result_code = excluded.result_code,
			result = excluded.result,
			applied = excluded.applied,
			instructions = excluded.instructions,
			raw = excluded.raw,
			recorded_at = excluded.recorded_at
		WHERE NOT transactions.applied`),
		hash, int64(rec.Sequence), rec.ResultCode, rec.Result, rec.Applied,
		strings.Join(rec.Instructions, ","), rec.Raw, at)
	if err != nil {
		return NewQueryError("record_transaction", "failed to insert transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NewQueryError("record_transaction", "failed to count rows", err)
	}
	if n == 0 {
		j.log.WithField("hash", hash).Debug("transaction already journaled as applied")
		return nil
	}

	for _, account := range rec.Accounts {
		_, err = dbtx.ExecContext(ctx, j.rebind(`INSERT INTO account_transactions (account, hash, recorded_at)
			VALUES (?, ?, ?)
			ON CONFLICT (account, hash) DO UPDATE SET recorded_at = excluded.recorded_at`),
			account.String(), hash, at)
		if err != nil {
			return NewQueryError("record_transaction", "failed to link account", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return NewQueryError("record_transaction", "failed to commit", err)
	}
	return nil
}

const selectTransaction = `SELECT t.hash, t.sequence, t.result_code, t.result, t.applied,
	t.instructions, t.raw, t.recorded_at FROM transactions t`

// GetTransaction returns the record for hash or ErrTransactionNotFound.
func (j *Journal) GetTransaction(ctx context.Context, hash tx.Hash) (*TransactionRecord, error) {
	if j.db == nil {
		return nil, ErrDatabaseClosed
	}
	row := j.db.QueryRowContext(ctx, j.rebind(selectTransaction+` WHERE t.hash = ?`), hash.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, NewQueryError("get_transaction", "failed to query transaction", err)
	}
	if err := j.loadAccounts(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AccountTransactions returns up to limit records referencing account,
// newest first.
func (j *Journal) AccountTransactions(ctx context.Context, account solana.PublicKey, limit int) ([]*TransactionRecord, error) {
	if j.db == nil {
		return nil, ErrDatabaseClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, j.rebind(selectTransaction+`
		JOIN account_transactions a ON a.hash = t.hash
		WHERE a.account = ?
		ORDER BY a.recorded_at DESC, t.hash
		LIMIT ?`), account.String(), limit)
	if err != nil {
		return nil, NewQueryError("account_transactions", "failed to query transactions", err)
	}
	defer rows.Close()

	var out []*TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, NewQueryError("account_transactions", "failed to scan transaction", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, NewQueryError("account_transactions", "failed to iterate transactions", err)
	}
	for _, rec := range out {
		if err := j.loadAccounts(ctx, rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (j *Journal) loadAccounts(ctx context.Context, rec *TransactionRecord) error {
	rows, err := j.db.QueryContext(ctx, j.rebind(`SELECT account FROM account_transactions WHERE hash = ? ORDER BY account`), rec.Hash.String())
	if err != nil {
		return NewQueryError("load_accounts", "failed to query accounts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return NewQueryError("load_accounts", "failed to scan account", err)
		}
		key, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return NewQueryError("load_accounts", "invalid account "+s, err)
		}
		rec.Accounts = append(rec.Accounts, key)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*TransactionRecord, error) {
	var (
		rec          TransactionRecord
		hash         string
		sequence     int64
		instructions string
		at           int64
	)
	if err := s.Scan(&hash, &sequence, &rec.ResultCode, &rec.Result, &rec.Applied, &instructions, &rec.Raw, &at); err != nil {
		return nil, err
	}
	h, err := tx.ParseHash(hash)
	if err != nil {
		return nil, err
	}
	rec.Hash = h
	rec.Sequence = uint64(sequence)
	if instructions != "" {
		rec.Instructions = strings.Split(instructions, ",")
	}
	rec.RecordedAt = time.Unix(0, at)
	return &rec, nil
}

// TransactionApplied journals every submission and implements tx.Observer.
// Failures are logged; the journal never changes a transaction's outcome.
func (j *Journal) TransactionApplied(ctx context.Context, txn *tx.Transaction, result *tx.ApplyResult, _ time.Duration) {
	if txn == nil {
		return
	}
	raw, err := txn.MarshalBinary()
	if err != nil {
		j.log.WithError(err).Warn("skipping unencodable transaction")
		return
	}
	rec := &TransactionRecord{
		Hash:       result.Hash,
		Sequence:   result.Sequence,
		ResultCode: int(result.Result),
		Result:     result.Result.String(),
		Applied:    result.Applied,
		Accounts:   referencedAccounts(&txn.Message),
		Raw:        raw,
	}
	for _, ix := range txn.Message.Instructions {
		rec.Instructions = append(rec.Instructions, tx.InstructionName(ix))
	}
	if err := j.RecordTransaction(context.WithoutCancel(ctx), rec); err != nil {
		j.log.WithError(err).WithField("tx", rec.Hash.String()).Error("failed to journal transaction")
	}
}

func referencedAccounts(m *tx.Message) []solana.PublicKey {
	seen := make(map[solana.PublicKey]bool)
	var out []solana.PublicKey
	for _, ix := range m.Instructions {
		for _, meta := range ix.Accounts {
			if meta == nil || seen[meta.PublicKey] {
				continue
			}
			seen[meta.PublicKey] = true
			out = append(out, meta.PublicKey)
		}
	}
	return out
}
