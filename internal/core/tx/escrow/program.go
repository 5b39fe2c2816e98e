// Package escrow implements the bilateral token swap program. A maker locks
// amount A of one mint in a program-controlled vault; any taker who pays
// amount B of the requested mint receives it atomically, unless the maker
// cancels first.
package escrow

import (
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/token"
)

// ProgramID is the address the escrow program is deployed at.
var ProgramID = solana.MustPublicKeyFromBase58("D7ko992PKYLDKFy3fWCQsePvWF3Z7CmvoDHnViGf8bfm")

func init() {
	tx.Register(ProgramID, Program{})
}

// Program is the escrow program.
type Program struct{}

func (Program) Name() string { return "escrow" }

func (Program) InstructionName(data []byte) string {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return "unknown"
	}
	switch ix.(type) {
	case *Initialize:
		return "initialize"
	case *Exchange:
		return "exchange"
	case *Cancel:
		return "cancel"
	}
	return "unknown"
}

// Process decodes the payload once and dispatches on the operation.
func (Program) Process(ctx *tx.ApplyContext) tx.Result {
	ix, err := DecodeInstruction(ctx.Data)
	if err != nil {
		ctx.Logf("Error: %v", err)
		if errors.Is(err, ErrUnknownDiscriminator) {
			return tx.TemINVALID_INSTRUCTION
		}
		return tx.TemMALFORMED
	}

	switch ix := ix.(type) {
	case *Initialize:
		ctx.Logf("Instruction: Initialize")
		return processInitialize(ctx, ix)
	case *Exchange:
		ctx.Logf("Instruction: Exchange")
		return processExchange(ctx)
	case *Cancel:
		ctx.Logf("Instruction: Cancel")
		return processCancel(ctx)
	}
	return tx.TemINVALID_INSTRUCTION
}

// loadRecord reads the escrow record at key. An address holding nothing
// means the offer was already closed; a foreign owner means it is not an
// offer at all.
func loadRecord(ctx *tx.ApplyContext, key solana.PublicKey) (*Record, tx.Result) {
	exists, r := ctx.Exists(key)
	if !r.IsSuccess() {
		return nil, r
	}
	if !exists {
		ctx.Logf("Error: escrow record %s not found", key)
		return nil, tx.TecNO_ENTRY
	}
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return nil, r
	}
	if acct.Owner != ProgramID {
		ctx.Logf("Error: escrow record %s is not owned by the program", key)
		return nil, tx.TecINCORRECT_OWNER
	}
	rec, err := UnmarshalRecord(acct.Data)
	if err != nil {
		return nil, ResultAccountDiscriminatorMismatch
	}
	return rec, tx.TesSUCCESS
}

// verifyAddresses re-derives the record and vault addresses from the
// record's own seeds and bumps and compares them with the supplied keys.
func verifyAddresses(rec *Record, escrowKey, vaultKey solana.PublicKey) tx.Result {
	if err := keylet.Verify(ProgramID, escrowKey, rec.EscrowBump, keylet.EscrowSeeds(rec.ID)); err != nil {
		return ResultRecordAddressMismatch
	}
	if err := keylet.Verify(ProgramID, vaultKey, rec.VaultBump, keylet.VaultSeeds(escrowKey)); err != nil {
		return ResultVaultAddressMismatch
	}
	return tx.TesSUCCESS
}

// authority is the capability the program presents to sign as the record,
// which is the vault's token owner.
func authority(rec *Record) keylet.Authority {
	k := keylet.Keylet{Seeds: keylet.EscrowSeeds(rec.ID), Bump: rec.EscrowBump}
	return k.Authority(ProgramID)
}

func loadTokenAccount(ctx *tx.ApplyContext, key solana.PublicKey) (*token.Account, tx.Result) {
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return nil, r
	}
	if acct.Owner != solana.TokenProgramID {
		ctx.Logf("Error: %s is not a token account", key)
		return nil, tx.TecINCORRECT_OWNER
	}
	ta, err := token.UnpackAccount(acct.Data)
	if err != nil || !ta.IsInitialized {
		return nil, tx.TecUNINITIALIZED
	}
	return ta, tx.TesSUCCESS
}

func loadMint(ctx *tx.ApplyContext, key solana.PublicKey) (*token.Mint, tx.Result) {
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return nil, r
	}
	if acct.Owner != solana.TokenProgramID {
		return nil, ResultInvalidMint
	}
	mint, err := token.UnpackMint(acct.Data)
	if err != nil || !mint.IsInitialized {
		return nil, ResultInvalidMint
	}
	return mint, tx.TesSUCCESS
}

func requireKey(got, want solana.PublicKey) tx.Result {
	if got != want {
		return tx.TemINVALID_ACCOUNT
	}
	return tx.TesSUCCESS
}
