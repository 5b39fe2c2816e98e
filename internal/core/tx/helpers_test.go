package tx

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/ledger/keylet"
)

// memLedger is a map-backed Ledger for engine tests.
type memLedger struct {
	mu        sync.RWMutex
	accounts  map[solana.PublicKey]*entry.Account
	processed map[Hash]bool
	seq       uint64
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts:  make(map[solana.PublicKey]*entry.Account),
		processed: make(map[Hash]bool),
	}
}

func (l *memLedger) Read(key solana.PublicKey) (*entry.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[key].Clone(), nil
}

func (l *memLedger) Exists(key solana.PublicKey) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.accounts[key]
	return ok, nil
}

func (l *memLedger) Commit(_ context.Context, changes []entry.Change) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.apply(changes), nil
}

func (l *memLedger) CommitTransaction(_ context.Context, hash Hash, changes []entry.Change) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.processed[hash] {
		return 0, ErrAlreadyProcessed
	}
	l.processed[hash] = true
	return l.apply(changes), nil
}

func (l *memLedger) Processed(hash Hash) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.processed[hash], nil
}

func (l *memLedger) apply(changes []entry.Change) uint64 {
	for _, c := range changes {
		if c.Action == entry.ActionErase {
			delete(l.accounts, c.Key)
			continue
		}
		l.accounts[c.Key] = c.Current.Clone()
	}
	l.seq++
	return l.seq
}

func (l *memLedger) put(key solana.PublicKey, acct *entry.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[key] = acct
}

var (
	testProgramID = solana.PublicKeyFromBytes(bytes.Repeat([]byte{7}, 32))
	testFailure   = CustomResultBase + 900
	testSeeds     = [][]byte{[]byte("signer")}
)

const (
	opWrite uint8 = iota
	opMove
	opMint
	opRecurse
	opFail
	opInvokeSigned
	opRequireSigner
	opInvokeUnsigned
)

// testProgram exercises the host rules through a handful of opcodes.
type testProgram struct{}

func (testProgram) Name() string { return "test" }

func (testProgram) InstructionName(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}
	return []string{"write", "move", "mint", "recurse", "fail", "invokeSigned", "requireSigner", "invokeUnsigned"}[data[0]]
}

func (testProgram) Process(ctx *ApplyContext) Result {
	if len(ctx.Data) == 0 {
		return TemMALFORMED
	}
	switch ctx.Data[0] {
	case opWrite:
		acct, r := ctx.Load(ctx.Account(0).Key)
		if !r.IsSuccess() {
			return r
		}
		acct.Data = append([]byte(nil), ctx.Data[1:]...)
		return ctx.Store(ctx.Account(0).Key, acct)
	case opMove:
		amount := binary.LittleEndian.Uint64(ctx.Data[1:9])
		from, r := ctx.Load(ctx.Account(0).Key)
		if !r.IsSuccess() {
			return r
		}
		to, r := ctx.Load(ctx.Account(1).Key)
		if !r.IsSuccess() {
			return r
		}
		if from.Lamports < amount {
			return TecINSUFFICIENT_LAMPORTS
		}
		from.Lamports -= amount
		to.Lamports += amount
		if r := ctx.Store(ctx.Account(0).Key, from); !r.IsSuccess() {
			return r
		}
		return ctx.Store(ctx.Account(1).Key, to)
	case opMint:
		acct, r := ctx.Load(ctx.Account(0).Key)
		if !r.IsSuccess() {
			return r
		}
		acct.Lamports += 10
		return ctx.Store(ctx.Account(0).Key, acct)
	case opRecurse:
		return ctx.Invoke(Instruction{
			ProgramID: testProgramID,
			Accounts:  []*solana.AccountMeta{solana.Meta(testProgramID)},
			Data:      []byte{opRecurse},
		})
	case opFail:
		return testFailure
	case opInvokeSigned, opInvokeUnsigned:
		pda := ctx.Account(0).Key
		ix := Instruction{
			ProgramID: testProgramID,
			Accounts:  []*solana.AccountMeta{solana.Meta(pda).SIGNER()},
			Data:      []byte{opRequireSigner},
		}
		if ctx.Data[0] == opInvokeUnsigned {
			return ctx.Invoke(ix)
		}
		addr, bump, err := solana.FindProgramAddress(testSeeds, testProgramID)
		if err != nil || addr != pda {
			return TefSEEDS_MISMATCH
		}
		return ctx.Invoke(ix, keylet.Authority{
			ProgramID: testProgramID,
			Seeds:     append(append([][]byte{}, testSeeds...), []byte{bump}),
		})
	case opRequireSigner:
		if !ctx.IsSigner(ctx.Account(0).Key) {
			return TefMISSING_SIGNER
		}
		return TesSUCCESS
	}
	return TemINVALID_INSTRUCTION
}

func init() {
	Register(testProgramID, testProgram{})
	RegisterResult(testFailure, "testFailure", "Test program failure.")
}

func moveData(amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = opMove
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}
