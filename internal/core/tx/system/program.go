// Package system implements the program that owns fresh accounts: it
// creates and funds accounts, moves lamports and hands accounts to other
// programs.
package system

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/tx"
)

func init() {
	tx.Register(solana.SystemProgramID, Program{})
}

// Program is the system program.
type Program struct{}

func (Program) Name() string { return "system" }

func (Program) InstructionName(data []byte) string {
	tag, err := bin.NewBinDecoder(data).ReadUint32(bin.LE)
	if err != nil {
		return "unknown"
	}
	switch tag {
	case InstrCreateAccount:
		return "createAccount"
	case InstrAssign:
		return "assign"
	case InstrTransfer:
		return "transfer"
	}
	return "unknown"
}

func (Program) Process(ctx *tx.ApplyContext) tx.Result {
	decoder := bin.NewBinDecoder(ctx.Data)
	tag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return tx.TemMALFORMED
	}

	switch tag {
	case InstrCreateAccount:
		var instr CreateAccount
		if err := instr.UnmarshalWithDecoder(decoder); err != nil || decoder.Remaining() != 0 {
			return tx.TemMALFORMED
		}
		return createAccount(ctx, &instr)
	case InstrAssign:
		var instr Assign
		if err := instr.UnmarshalWithDecoder(decoder); err != nil || decoder.Remaining() != 0 {
			return tx.TemMALFORMED
		}
		return assign(ctx, &instr)
	case InstrTransfer:
		var instr Transfer
		if err := instr.UnmarshalWithDecoder(decoder); err != nil || decoder.Remaining() != 0 {
			return tx.TemMALFORMED
		}
		return transfer(ctx, &instr)
	}
	return tx.TemINVALID_INSTRUCTION
}

func createAccount(ctx *tx.ApplyContext, instr *CreateAccount) tx.Result {
	if r := ctx.RequireAccounts(2); !r.IsSuccess() {
		return r
	}
	fromKey, toKey := ctx.Account(0).Key, ctx.Account(1).Key
	if !ctx.IsSigner(fromKey) || !ctx.IsSigner(toKey) {
		return tx.TefMISSING_SIGNER
	}
	if instr.Space > entry.MaxDataLen {
		return tx.TemMALFORMED
	}

	to, r := ctx.Load(toKey)
	if !r.IsSuccess() {
		return r
	}
	if to.Lamports > 0 || len(to.Data) > 0 || to.Owner != solana.SystemProgramID {
		ctx.Logf("Create Account: account %s already in use", toKey)
		return tx.TecACCOUNT_IN_USE
	}

	rent, r := ctx.Rent()
	if !r.IsSuccess() {
		return r
	}
	if !rent.IsExempt(instr.Lamports, int(instr.Space)) {
		return tx.TecNOT_RENT_EXEMPT
	}

	from, r := ctx.Load(fromKey)
	if !r.IsSuccess() {
		return r
	}
	if from.Lamports < instr.Lamports {
		ctx.Logf("Transfer: insufficient lamports %d, need %d", from.Lamports, instr.Lamports)
		return tx.TecINSUFFICIENT_LAMPORTS
	}
	from.Lamports -= instr.Lamports
	if r := ctx.Store(fromKey, from); !r.IsSuccess() {
		return r
	}

	return ctx.Store(toKey, &entry.Account{
		Lamports: instr.Lamports,
		Owner:    instr.Owner,
		Data:     make([]byte, instr.Space),
	})
}

func assign(ctx *tx.ApplyContext, instr *Assign) tx.Result {
	if r := ctx.RequireAccounts(1); !r.IsSuccess() {
		return r
	}
	key := ctx.Account(0).Key
	if !ctx.IsSigner(key) {
		return tx.TefMISSING_SIGNER
	}
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return r
	}
	if acct.Owner == instr.Owner {
		return tx.TesSUCCESS
	}
	acct.Owner = instr.Owner
	return ctx.Store(key, acct)
}

func transfer(ctx *tx.ApplyContext, instr *Transfer) tx.Result {
	if r := ctx.RequireAccounts(2); !r.IsSuccess() {
		return r
	}
	fromKey, toKey := ctx.Account(0).Key, ctx.Account(1).Key
	if !ctx.IsSigner(fromKey) {
		return tx.TefMISSING_SIGNER
	}
	from, r := ctx.Load(fromKey)
	if !r.IsSuccess() {
		return r
	}
	if len(from.Data) > 0 {
		ctx.Logf("Transfer: `from` must not carry data")
		return tx.TemINVALID_ACCOUNT
	}
	if from.Lamports < instr.Lamports {
		ctx.Logf("Transfer: insufficient lamports %d, need %d", from.Lamports, instr.Lamports)
		return tx.TecINSUFFICIENT_LAMPORTS
	}
	if fromKey == toKey {
		return tx.TesSUCCESS
	}
	to, r := ctx.Load(toKey)
	if !r.IsSuccess() {
		return r
	}
	if to.Lamports+instr.Lamports < to.Lamports {
		return tx.TecOVERFLOW
	}
	from.Lamports -= instr.Lamports
	to.Lamports += instr.Lamports
	if r := ctx.Store(fromKey, from); !r.IsSuccess() {
		return r
	}
	return ctx.Store(toKey, to)
}
