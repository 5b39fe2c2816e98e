package escrow

import (
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/token"
)

// Exchange account positions.
const (
	exEscrow = iota
	exVault
	exMaker
	exTaker
	exMakerReceiveB
	exTakerSourceB
	exTakerDestinationA
	exMintB
	exTokenProgram
	exAccountCount
)

// processExchange fills an offer: amount B moves from the taker to the
// maker's registered account, the vault pays amount A to the taker, and
// both the vault and the record close with their deposits going to the
// maker.
func processExchange(ctx *tx.ApplyContext) tx.Result {
	if r := ctx.RequireAccounts(exAccountCount); !r.IsSuccess() {
		return r
	}
	if r := requireKey(ctx.Account(exTokenProgram).Key, solana.TokenProgramID); !r.IsSuccess() {
		return r
	}

	escrowKey := ctx.Account(exEscrow).Key
	vaultKey := ctx.Account(exVault).Key
	maker := ctx.Account(exMaker).Key
	taker := ctx.Account(exTaker).Key
	receiveKey := ctx.Account(exMakerReceiveB).Key
	sourceKey := ctx.Account(exTakerSourceB).Key
	destKey := ctx.Account(exTakerDestinationA).Key
	mintB := ctx.Account(exMintB).Key

	rec, r := loadRecord(ctx, escrowKey)
	if !r.IsSuccess() {
		return r
	}
	if r := verifyAddresses(rec, escrowKey, vaultKey); !r.IsSuccess() {
		return r
	}
	if maker != rec.Maker {
		return ResultMakerMismatch
	}
	if !ctx.IsSigner(taker) {
		return tx.TefMISSING_SIGNER
	}
	if mintB != rec.MintB {
		return ResultTakerMintMismatch
	}
	if receiveKey != rec.MakerReturnAccount {
		return ResultReceiverMismatch
	}

	source, r := loadTokenAccount(ctx, sourceKey)
	if !r.IsSuccess() {
		return r
	}
	if source.Mint != rec.MintB {
		return ResultTakerMintMismatch
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
	if vault.Amount != rec.AmountA || vault.Mint != rec.MintA || vault.Owner != escrowKey {
		return ResultVaultBalanceMismatch
	}

	signer := authority(rec)
	if r := ctx.Invoke(token.NewTransferInstruction(sourceKey, receiveKey, taker, rec.AmountB)); !r.IsSuccess() {
		return r
	}
	if r := ctx.Invoke(token.NewTransferInstruction(vaultKey, destKey, escrowKey, rec.AmountA), signer); !r.IsSuccess() {
		return r
	}
	if r := ctx.Invoke(token.NewCloseAccountInstruction(vaultKey, maker, escrowKey), signer); !r.IsSuccess() {
		return r
	}
	if r := ctx.Close(escrowKey, maker); !r.IsSuccess() {
		return r
	}

	ctx.Logf("Offer %d filled by %s", rec.ID, taker)
	return tx.TesSUCCESS
}
