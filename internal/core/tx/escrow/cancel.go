package escrow

import (
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/token"
)

// Cancel account positions.
const (
	cancelEscrow = iota
	cancelVault
	cancelMaker
	cancelMakerDestinationA
	cancelTokenProgram
	cancelAccountCount
)

// processCancel withdraws an offer: the full vault balance returns to the
// maker, then the vault and the record close to the maker.
func processCancel(ctx *tx.ApplyContext) tx.Result {
	if r := ctx.RequireAccounts(cancelAccountCount); !r.IsSuccess() {
		return r
	}
	if r := requireKey(ctx.Account(cancelTokenProgram).Key, solana.TokenProgramID); !r.IsSuccess() {
		return r
	}

	escrowKey := ctx.Account(cancelEscrow).Key
	vaultKey := ctx.Account(cancelVault).Key
	maker := ctx.Account(cancelMaker).Key
	destKey := ctx.Account(cancelMakerDestinationA).Key

	rec, r := loadRecord(ctx, escrowKey)
	if !r.IsSuccess() {
		return r
	}
	if r := verifyAddresses(rec, escrowKey, vaultKey); !r.IsSuccess() {
		return r
	}
	if maker != rec.Maker {
		return ResultNotMaker
	}
	if !ctx.IsSigner(maker) {
		return tx.TefMISSING_SIGNER
	}

	dest, r := loadTokenAccount(ctx, destKey)
	if !r.IsSuccess() {
		return r
	}
	if dest.Mint != rec.MintA {
		return ResultDestinationMintMismatch
	}
	vault, r := loadTokenAccount(ctx, vaultKey)
	if !r.IsSuccess() {
		return r
	}
	if vault.Amount != rec.AmountA {
		return ResultVaultBalanceMismatch
	}

	signer := authority(rec)
	if r := ctx.Invoke(token.NewTransferInstruction(vaultKey, destKey, escrowKey, vault.Amount), signer); !r.IsSuccess() {
		return r
	}
	if r := ctx.Invoke(token.NewCloseAccountInstruction(vaultKey, maker, escrowKey), signer); !r.IsSuccess() {
		return r
	}
	if r := ctx.Close(escrowKey, maker); !r.IsSuccess() {
		return r
	}

	ctx.Logf("Offer %d cancelled", rec.ID)
	return tx.TesSUCCESS
}
