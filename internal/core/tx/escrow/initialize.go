package escrow

import (
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/system"
	"github.com/LeJamon/goEscrow/internal/core/tx/token"
)

// Initialize account positions.
const (
	initEscrow = iota
	initVault
	initMaker
	initMakerSourceA
	initMakerReceiveB
	initMintA
	initMintB
	initRent
	initTokenProgram
	initSystemProgram
	initAccountCount
)

// processInitialize opens an offer: it creates the record and the vault
// at their canonical addresses and moves AmountA from the maker into the
// vault.
func processInitialize(ctx *tx.ApplyContext, args *Initialize) tx.Result {
	if r := ctx.RequireAccounts(initAccountCount); !r.IsSuccess() {
		return r
	}
	if args.AmountA == 0 || args.AmountB == 0 {
		return tx.TemBAD_AMOUNT
	}
	if r := requireKey(ctx.Account(initRent).Key, solana.SysVarRentPubkey); !r.IsSuccess() {
		return r
	}
	if r := requireKey(ctx.Account(initTokenProgram).Key, solana.TokenProgramID); !r.IsSuccess() {
		return r
	}
	if r := requireKey(ctx.Account(initSystemProgram).Key, solana.SystemProgramID); !r.IsSuccess() {
		return r
	}

	escrowKey := ctx.Account(initEscrow).Key
	vaultKey := ctx.Account(initVault).Key
	maker := ctx.Account(initMaker).Key
	sourceKey := ctx.Account(initMakerSourceA).Key
	receiveKey := ctx.Account(initMakerReceiveB).Key
	mintA := ctx.Account(initMintA).Key
	mintB := ctx.Account(initMintB).Key

	// Both addresses must be the canonical derivation with the canonical bump.
	escrowKeylet, err := keylet.Escrow(ProgramID, args.ID)
	if err != nil {
		return tx.TefINTERNAL
	}
	if escrowKeylet.Key != escrowKey {
		return ResultRecordAddressMismatch
	}
	if escrowKeylet.Bump != args.EscrowBump {
		return ResultBumpMismatch
	}
	vaultKeylet, err := keylet.Vault(ProgramID, escrowKey)
	if err != nil {
		return tx.TefINTERNAL
	}
	if vaultKeylet.Key != vaultKey {
		return ResultVaultAddressMismatch
	}
	if vaultKeylet.Bump != args.VaultBump {
		return ResultBumpMismatch
	}

	if !ctx.IsSigner(maker) {
		return tx.TefMISSING_SIGNER
	}

	if _, r := loadMint(ctx, mintA); !r.IsSuccess() {
		return r
	}
	if _, r := loadMint(ctx, mintB); !r.IsSuccess() {
		return r
	}

	source, r := loadTokenAccount(ctx, sourceKey)
	if !r.IsSuccess() {
		return r
	}
	if source.Mint != mintA {
		return ResultSourceMintMismatch
	}
	if source.Owner != maker {
		return ResultSourceOwnerMismatch
	}
	receive, r := loadTokenAccount(ctx, receiveKey)
	if !r.IsSuccess() {
		return r
	}
	if receive.Mint != mintB || receive.Owner != maker {
		return ResultReturnAccountMismatch
	}

	rent, r := ctx.Rent()
	if !r.IsSuccess() {
		return r
	}

	// Create the record; an occupied address means the id is in use.
	if r := ctx.Invoke(
		system.NewCreateAccountInstruction(maker, escrowKey, rent.MinimumBalance(RecordLen), RecordLen, ProgramID),
		escrowKeylet.Authority(ProgramID),
	); !r.IsSuccess() {
		return r
	}
	rec := &Record{
		ID:                 args.ID,
		AmountA:            args.AmountA,
		AmountB:            args.AmountB,
		Maker:              maker,
		MintA:              mintA,
		MintB:              mintB,
		MakerReturnAccount: receiveKey,
		EscrowBump:         args.EscrowBump,
		VaultBump:          args.VaultBump,
	}
	acct, r := ctx.Load(escrowKey)
	if !r.IsSuccess() {
		return r
	}
	acct.Data = rec.Pack()
	if r := ctx.Store(escrowKey, acct); !r.IsSuccess() {
		return r
	}

	// Create the vault as a token account of mint A owned by the record.
	if r := ctx.Invoke(
		system.NewCreateAccountInstruction(maker, vaultKey, rent.MinimumBalance(token.AccountLen), token.AccountLen, solana.TokenProgramID),
		vaultKeylet.Authority(ProgramID),
	); !r.IsSuccess() {
		return r
	}
	if r := ctx.Invoke(token.NewInitializeAccountInstruction(vaultKey, mintA, escrowKey)); !r.IsSuccess() {
		return r
	}

	if r := ctx.Invoke(token.NewTransferInstruction(sourceKey, vaultKey, maker, args.AmountA)); !r.IsSuccess() {
		return r
	}

	ctx.Logf("Offer %d opened: %d of %s for %d of %s", args.ID, args.AmountA, mintA, args.AmountB, mintB)
	return tx.TesSUCCESS
}
