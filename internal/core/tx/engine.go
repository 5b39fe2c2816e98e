package tx

import (
	"context"
	"errors"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

// DefaultMaxCallDepth bounds nested program invocation.
const DefaultMaxCallDepth = 4

// EngineConfig holds configuration for the transaction engine
type EngineConfig struct {
	// SkipSignatureVerification trusts the signer flags in the message
	// (for testing/standalone)
	SkipSignatureVerification bool

	// MaxCallDepth limits nested invocation; zero means DefaultMaxCallDepth
	MaxCallDepth int
}

func (c EngineConfig) maxCallDepth() int {
	if c.MaxCallDepth <= 0 {
		return DefaultMaxCallDepth
	}
	return c.MaxCallDepth
}

// Observer is notified after every submission, applied or not.
type Observer interface {
	TransactionApplied(ctx context.Context, txn *Transaction, result *ApplyResult, elapsed time.Duration)
}

// Metadata describes what an applied transaction changed.
type Metadata struct {
	// Instructions names each top-level instruction
	Instructions []string

	// Changes lists every account created, modified or deleted
	Changes []entry.Change
}

// AffectedAccounts returns the keys touched by the transaction.
func (m *Metadata) AffectedAccounts() []solana.PublicKey {
	if m == nil {
		return nil
	}
	keys := make([]solana.PublicKey, len(m.Changes))
	for i, c := range m.Changes {
		keys[i] = c.Key
	}
	return keys
}

// ApplyResult contains the result of applying a transaction
type ApplyResult struct {
	// Result is the transaction result code
	Result Result

	// Applied indicates if the transaction was committed to the ledger
	Applied bool

	// Hash identifies the transaction
	Hash Hash

	// Sequence is the ledger sequence the transaction committed at
	Sequence uint64

	// FailedInstruction is the index of the failing instruction, or -1
	FailedInstruction int

	// Logs are the program log lines
	Logs []string

	// Metadata contains the changes made by the transaction
	Metadata *Metadata

	// Message is a human-readable result message
	Message string
}

// Engine processes transactions against a ledger
type Engine struct {
	ledger    Ledger
	config    EngineConfig
	locks     *accountLocks
	observers []Observer
	log       *logrus.Entry
}

// NewEngine creates an engine over ledger.
func NewEngine(ledger Ledger, config EngineConfig, observers ...Observer) *Engine {
	return &Engine{
		ledger:    ledger,
		config:    config,
		locks:     newAccountLocks(),
		observers: observers,
		log:       logrus.WithFields(logrus.Fields{"module": "engine"}),
	}
}

// Ledger returns the ledger the engine commits to.
func (e *Engine) Ledger() Ledger {
	return e.ledger
}

// Submit verifies and executes txn. Every instruction runs against one
// sandbox; the sandbox is committed only if all of them succeed.
func (e *Engine) Submit(ctx context.Context, txn *Transaction) ApplyResult {
	start := time.Now()
	result := e.submit(ctx, txn)
	if result.Message == "" {
		result.Message = result.Result.Message()
	}

	fields := logrus.Fields{
		"tx":     result.Hash.String(),
		"result": result.Result.String(),
	}
	if result.Applied {
		e.log.WithFields(fields).WithField("sequence", result.Sequence).Debug("transaction applied")
	} else {
		e.log.WithFields(fields).WithField("instruction", result.FailedInstruction).Debug("transaction rejected")
	}

	elapsed := time.Since(start)
	for _, o := range e.observers {
		o.TransactionApplied(ctx, txn, &result, elapsed)
	}
	return result
}

func (e *Engine) submit(ctx context.Context, txn *Transaction) ApplyResult {
	res := ApplyResult{FailedInstruction: -1}
	if txn == nil {
		res.Result = TemMALFORMED
		return res
	}

	hash, err := txn.Hash()
	if err != nil {
		res.Result = TemMALFORMED
		res.Message = err.Error()
		return res
	}
	res.Hash = hash

	// Preflight: structure only
	if err := txn.Message.Validate(); err != nil {
		res.Result = TemMALFORMED
		res.Message = err.Error()
		return res
	}
	names := make([]string, len(txn.Message.Instructions))
	for i, ix := range txn.Message.Instructions {
		if _, err := Lookup(ix.ProgramID); err != nil {
			res.Result = TemUNKNOWN_PROGRAM
			res.FailedInstruction = i
			return res
		}
		names[i] = InstructionName(ix)
	}

	if r, msg := e.checkSignatures(txn); !r.IsSuccess() {
		res.Result = r
		res.Message = msg
		return res
	}

	writable, readonly := lockSets(&txn.Message)
	release, err := e.locks.acquire(ctx, writable, readonly)
	if err != nil {
		res.Result = TelCANCELLED
		res.Message = err.Error()
		return res
	}
	defer release()

	// A duplicate shares its original's locks, so the marker is visible here.
	done, err := e.ledger.Processed(hash)
	if err != nil {
		res.Result = TefINTERNAL
		res.Message = err.Error()
		return res
	}
	if done {
		res.Result = TefALREADY_PROCESSED
		return res
	}

	table := NewApplyStateTable(e.ledger)
	var logs []string
	for i, ix := range txn.Message.Instructions {
		r := e.execute(table, hash, ix, &logs)
		if !r.IsSuccess() {
			res.Result = r
			res.FailedInstruction = i
			res.Logs = logs
			return res
		}
	}

	changes := table.Changes()
	seq, err := e.ledger.CommitTransaction(ctx, hash, changes)
	if errors.Is(err, ErrAlreadyProcessed) {
		res.Result = TefALREADY_PROCESSED
		res.Logs = logs
		return res
	}
	if err != nil {
		e.log.WithError(err).WithField("tx", hash.String()).Error("commit failed")
		res.Result = TefINTERNAL
		res.Message = err.Error()
		res.Logs = logs
		return res
	}

	res.Result = TesSUCCESS
	res.Applied = true
	res.Sequence = seq
	res.Logs = logs
	res.Metadata = &Metadata{Instructions: names, Changes: changes}
	return res
}

func (e *Engine) checkSignatures(txn *Transaction) (Result, string) {
	required := txn.Message.Signers()
	if e.config.SkipSignatureVerification {
		return TesSUCCESS, ""
	}
	signed, err := txn.VerifySignatures()
	if err != nil {
		return TefBAD_SIGNATURE, err.Error()
	}
	want := make(map[solana.PublicKey]bool, len(required))
	for _, k := range required {
		if !signed[k] {
			return TefMISSING_SIGNER, "missing signature for " + k.String()
		}
		want[k] = true
	}
	for k := range signed {
		if !want[k] {
			return TemMALFORMED, ErrUnknownSignerKey.Error() + ": " + k.String()
		}
	}
	return TesSUCCESS, ""
}

// execute runs a top-level instruction and enforces lamport conservation
// across its accounts.
func (e *Engine) execute(table *ApplyStateTable, hash Hash, ix Instruction, logs *[]string) Result {
	program, err := Lookup(ix.ProgramID)
	if err != nil {
		return TemUNKNOWN_PROGRAM
	}
	accounts := make([]AccountInfo, len(ix.Accounts))
	keys := make([]solana.PublicKey, 0, len(ix.Accounts))
	seen := make(map[solana.PublicKey]bool, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		accounts[i] = AccountInfo{Key: meta.PublicKey, IsSigner: meta.IsSigner, IsWritable: meta.IsWritable}
		if !seen[meta.PublicKey] {
			seen[meta.PublicKey] = true
			keys = append(keys, meta.PublicKey)
		}
	}

	before, err := totalLamports(table, keys)
	if err != nil {
		return TefINTERNAL
	}

	ctx := &ApplyContext{
		View:      table,
		ProgramID: ix.ProgramID,
		Accounts:  accounts,
		Data:      ix.Data,
		Config:    e.config,
		TxHash:    hash,
		Engine:    e,
		depth:     1,
		logs:      logs,
	}
	if r := ctx.run(program); !r.IsSuccess() {
		return r
	}

	after, err := totalLamports(table, keys)
	if err != nil {
		return TefINTERNAL
	}
	if before != after {
		return TefUNBALANCED
	}
	return TesSUCCESS
}

// lamportSum is a 128-bit lamport total.
type lamportSum struct{ hi, lo uint64 }

var errLamportOverflow = errors.New("lamport total overflow")

func totalLamports(view ReadView, keys []solana.PublicKey) (lamportSum, error) {
	var sum lamportSum
	for _, k := range keys {
		acct, err := view.Read(k)
		if err != nil {
			return sum, err
		}
		if acct == nil {
			continue
		}
		var carry uint64
		sum.lo, carry = bits.Add64(sum.lo, acct.Lamports, 0)
		sum.hi, carry = bits.Add64(sum.hi, 0, carry)
		if carry != 0 {
			return sum, errLamportOverflow
		}
	}
	return sum, nil
}
