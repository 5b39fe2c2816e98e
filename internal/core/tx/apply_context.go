package tx

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/ledger/keylet"
)

// AccountInfo is an account reference as seen by the executing program.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// ApplyContext provides all the state and helpers needed to execute one
// instruction. It is passed to Program.Process and to nested invocations.
type ApplyContext struct {
	// View provides read/write access to ledger state (the ApplyStateTable)
	View LedgerView

	// ProgramID is the program currently executing
	ProgramID solana.PublicKey

	// Accounts are the instruction's accounts in the order they were supplied
	Accounts []AccountInfo

	// Data is the instruction payload
	Data []byte

	// Config holds engine configuration
	Config EngineConfig

	// TxHash is the hash of the current transaction
	TxHash Hash

	// Engine is the engine executing the transaction
	Engine *Engine

	depth int
	logs  *[]string
}

// Depth returns the invocation depth, 1 for top-level instructions.
func (ctx *ApplyContext) Depth() int {
	return ctx.depth
}

// RequireAccounts checks that at least n accounts were supplied.
func (ctx *ApplyContext) RequireAccounts(n int) Result {
	if len(ctx.Accounts) < n {
		return TemNOT_ENOUGH_ACCOUNTS
	}
	return TesSUCCESS
}

// Account returns the i-th account reference.
func (ctx *ApplyContext) Account(i int) AccountInfo {
	return ctx.Accounts[i]
}

// privilege merges every reference to key in the account list.
func (ctx *ApplyContext) privilege(key solana.PublicKey) (AccountInfo, bool) {
	info := AccountInfo{Key: key}
	found := false
	for _, a := range ctx.Accounts {
		if a.Key != key {
			continue
		}
		found = true
		info.IsSigner = info.IsSigner || a.IsSigner
		info.IsWritable = info.IsWritable || a.IsWritable
	}
	return info, found
}

// IsSigner reports whether key signed for this instruction.
func (ctx *ApplyContext) IsSigner(key solana.PublicKey) bool {
	info, ok := ctx.privilege(key)
	return ok && info.IsSigner
}

// IsWritable reports whether key may be modified by this instruction.
func (ctx *ApplyContext) IsWritable(key solana.PublicKey) bool {
	info, ok := ctx.privilege(key)
	return ok && info.IsWritable
}

// Load returns a copy of the account at key. Addresses that hold nothing
// load as an empty system account.
func (ctx *ApplyContext) Load(key solana.PublicKey) (*entry.Account, Result) {
	if _, ok := ctx.privilege(key); !ok {
		return nil, TefMISSING_ACCOUNT
	}
	acct, err := ctx.View.Read(key)
	if err != nil {
		ctx.Logf("read %s: %v", key, err)
		return nil, TefINTERNAL
	}
	if acct == nil {
		return entry.NewSystemAccount(0), TesSUCCESS
	}
	return acct, TesSUCCESS
}

// Exists reports whether key currently holds an account. Like Load it is
// limited to accounts the instruction references.
func (ctx *ApplyContext) Exists(key solana.PublicKey) (bool, Result) {
	if _, ok := ctx.privilege(key); !ok {
		return false, TefMISSING_ACCOUNT
	}
	ok, err := ctx.View.Exists(key)
	if err != nil {
		return false, TefINTERNAL
	}
	return ok, TesSUCCESS
}

// Store writes acct back to key after enforcing the host rules: the
// account must be writable, only its owner may change data, debit lamports
// or reassign it, and reassignment requires zeroed data. Accounts left with
// no lamports and no data are removed.
func (ctx *ApplyContext) Store(key solana.PublicKey, next *entry.Account) Result {
	info, ok := ctx.privilege(key)
	if !ok {
		return TefMISSING_ACCOUNT
	}
	prev, err := ctx.View.Read(key)
	if err != nil {
		return TefINTERNAL
	}
	existed := prev != nil
	if !existed {
		prev = entry.NewSystemAccount(0)
	}
	if prev.Equal(next) {
		return TesSUCCESS
	}
	if !info.IsWritable {
		return TefREADONLY_MODIFIED
	}
	if prev.Executable || next.Executable {
		return TefEXTERNAL_ACCOUNT_MODIFIED
	}
	if prev.Owner != ctx.ProgramID {
		if next.Lamports < prev.Lamports || next.Owner != prev.Owner || !bytes.Equal(prev.Data, next.Data) {
			return TefEXTERNAL_ACCOUNT_MODIFIED
		}
	}
	if next.Owner != prev.Owner && !isZeroed(next.Data) {
		return TefEXTERNAL_ACCOUNT_MODIFIED
	}
	if len(next.Data) > entry.MaxDataLen {
		return TemMALFORMED
	}

	switch {
	case next.IsEmpty():
		if existed {
			err = ctx.View.Erase(key)
		}
	case existed:
		err = ctx.View.Update(key, next)
	default:
		err = ctx.View.Insert(key, next)
	}
	if err != nil {
		ctx.Logf("write %s: %v", key, err)
		return TefINTERNAL
	}
	return TesSUCCESS
}

// Close moves every lamport held by key to dest and clears key's data,
// removing the account. Only the owning program may close an account.
func (ctx *ApplyContext) Close(key, dest solana.PublicKey) Result {
	if key == dest {
		return TemINVALID_ACCOUNT
	}
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return r
	}
	target, r := ctx.Load(dest)
	if !r.IsSuccess() {
		return r
	}
	sum, carry := bits.Add64(target.Lamports, acct.Lamports, 0)
	if carry != 0 {
		return TecOVERFLOW
	}
	target.Lamports = sum
	closed := entry.NewSystemAccount(0)
	if r := ctx.Store(key, closed); !r.IsSuccess() {
		return r
	}
	return ctx.Store(dest, target)
}

// Rent returns the rent parameters in effect.
func (ctx *ApplyContext) Rent() (Rent, Result) {
	rent, err := ReadRent(ctx.View)
	if err != nil {
		return Rent{}, TefINTERNAL
	}
	return rent, TesSUCCESS
}

// Logf appends a program log line to the transaction's logs.
func (ctx *ApplyContext) Logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if ctx.logs != nil {
		*ctx.logs = append(*ctx.logs, line)
	}
	if ctx.Engine != nil {
		ctx.Engine.log.WithFields(logrus.Fields{
			"program": ctx.ProgramID.String(),
			"depth":   ctx.depth,
		}).Debug(line)
	}
}

// Invoke executes ix as a nested call from the current program. Callee
// accounts must already be referenced by the caller with at least the
// requested privileges; a callee signer is also accepted when it is the
// address one of the caller's authorities signs for.
func (ctx *ApplyContext) Invoke(ix Instruction, authorities ...keylet.Authority) Result {
	if ctx.depth+1 > ctx.Config.maxCallDepth() {
		return TefCALL_DEPTH
	}
	if _, ok := ctx.privilege(ix.ProgramID); !ok {
		return TefMISSING_ACCOUNT
	}

	derived := make(map[solana.PublicKey]bool, len(authorities))
	for _, a := range authorities {
		if a.ProgramID != ctx.ProgramID {
			return TefPRIVILEGE_ESCALATION
		}
		addr, err := a.Address()
		if err != nil {
			return TefSEEDS_MISMATCH
		}
		derived[addr] = true
	}

	accounts := make([]AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		info, ok := ctx.privilege(meta.PublicKey)
		if !ok {
			return TefMISSING_ACCOUNT
		}
		if meta.IsWritable && !info.IsWritable {
			return TefPRIVILEGE_ESCALATION
		}
		if meta.IsSigner && !info.IsSigner && !derived[meta.PublicKey] {
			return TefPRIVILEGE_ESCALATION
		}
		accounts[i] = AccountInfo{Key: meta.PublicKey, IsSigner: meta.IsSigner, IsWritable: meta.IsWritable}
	}

	program, err := Lookup(ix.ProgramID)
	if err != nil {
		return TemUNKNOWN_PROGRAM
	}
	child := &ApplyContext{
		View:      ctx.View,
		ProgramID: ix.ProgramID,
		Accounts:  accounts,
		Data:      ix.Data,
		Config:    ctx.Config,
		TxHash:    ctx.TxHash,
		Engine:    ctx.Engine,
		depth:     ctx.depth + 1,
		logs:      ctx.logs,
	}
	return child.run(program)
}

func (ctx *ApplyContext) run(program Program) Result {
	ctx.Logf("Program %s invoke [%d]", ctx.ProgramID, ctx.depth)
	result := program.Process(ctx)
	if result.IsSuccess() {
		ctx.Logf("Program %s success", ctx.ProgramID)
	} else {
		ctx.Logf("Program %s failed: %s", ctx.ProgramID, result)
	}
	return result
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
