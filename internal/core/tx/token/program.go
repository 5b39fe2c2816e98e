// Package token implements fungible token mints and balances: the transfer
// capability other programs invoke to move assets.
package token

import (
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/tx"
)

func init() {
	tx.Register(solana.TokenProgramID, Program{})
}

// Program is the token program.
type Program struct{}

func (Program) Name() string { return "token" }

func (Program) InstructionName(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}
	if name, ok := instructionNames[data[0]]; ok {
		return name
	}
	return "unknown"
}

func (Program) Process(ctx *tx.ApplyContext) tx.Result {
	if len(ctx.Data) == 0 {
		return tx.TemMALFORMED
	}
	tag, args := ctx.Data[0], ctx.Data[1:]

	switch tag {
	case InstrInitializeMint:
		if len(args) != initializeMintArgsSize {
			return tx.TemMALFORMED
		}
		return initializeMint(ctx, args[0], solana.PublicKeyFromBytes(args[1:]))
	case InstrInitializeAccount:
		if len(args) != initializeAccountArgsSize {
			return tx.TemMALFORMED
		}
		return initializeAccount(ctx, solana.PublicKeyFromBytes(args))
	case InstrTransfer:
		amount, r := amountArg(args)
		if !r.IsSuccess() {
			return r
		}
		return transfer(ctx, amount)
	case InstrMintTo:
		amount, r := amountArg(args)
		if !r.IsSuccess() {
			return r
		}
		return mintTo(ctx, amount)
	case InstrCloseAccount:
		if len(args) != 0 {
			return tx.TemMALFORMED
		}
		return closeAccount(ctx)
	}
	return tx.TemINVALID_INSTRUCTION
}

func amountArg(args []byte) (uint64, tx.Result) {
	if len(args) != amountArgsSize {
		return 0, tx.TemMALFORMED
	}
	amount, err := decodeAmount(args)
	if err != nil {
		return 0, tx.TemMALFORMED
	}
	return amount, tx.TesSUCCESS
}

// loadMint reads a mint owned by this program.
func loadMint(ctx *tx.ApplyContext, key solana.PublicKey) (*Mint, tx.Result) {
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return nil, r
	}
	if acct.Owner != solana.TokenProgramID {
		return nil, tx.TecINCORRECT_OWNER
	}
	mint, err := UnpackMint(acct.Data)
	if err != nil {
		return nil, tx.TecUNINITIALIZED
	}
	return mint, tx.TesSUCCESS
}

// loadAccount reads a token account owned by this program.
func loadAccount(ctx *tx.ApplyContext, key solana.PublicKey) (*Account, tx.Result) {
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return nil, r
	}
	if acct.Owner != solana.TokenProgramID {
		return nil, tx.TecINCORRECT_OWNER
	}
	ta, err := UnpackAccount(acct.Data)
	if err != nil {
		return nil, tx.TecUNINITIALIZED
	}
	return ta, tx.TesSUCCESS
}

// storeState rewrites the data of a program-owned account.
func storeState(ctx *tx.ApplyContext, key solana.PublicKey, data []byte) tx.Result {
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return r
	}
	acct.Data = data
	return ctx.Store(key, acct)
}

func initializeMint(ctx *tx.ApplyContext, decimals uint8, authority solana.PublicKey) tx.Result {
	if r := ctx.RequireAccounts(1); !r.IsSuccess() {
		return r
	}
	key := ctx.Account(0).Key
	mint, r := loadMint(ctx, key)
	if !r.IsSuccess() {
		return r
	}
	if mint.IsInitialized {
		return tx.TecALREADY_INITIALIZED
	}
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return r
	}
	rent, r := ctx.Rent()
	if !r.IsSuccess() {
		return r
	}
	if !rent.IsExempt(acct.Lamports, MintLen) {
		return tx.TecNOT_RENT_EXEMPT
	}
	mint = &Mint{MintAuthority: authority, Decimals: decimals, IsInitialized: true}
	return storeState(ctx, key, mint.Pack())
}

func initializeAccount(ctx *tx.ApplyContext, owner solana.PublicKey) tx.Result {
	if r := ctx.RequireAccounts(2); !r.IsSuccess() {
		return r
	}
	key, mintKey := ctx.Account(0).Key, ctx.Account(1).Key
	ta, r := loadAccount(ctx, key)
	if !r.IsSuccess() {
		return r
	}
	if ta.IsInitialized {
		return tx.TecALREADY_INITIALIZED
	}
	mint, r := loadMint(ctx, mintKey)
	if !r.IsSuccess() {
		return r
	}
	if !mint.IsInitialized {
		return tx.TecUNINITIALIZED
	}
	acct, r := ctx.Load(key)
	if !r.IsSuccess() {
		return r
	}
	rent, r := ctx.Rent()
	if !r.IsSuccess() {
		return r
	}
	if !rent.IsExempt(acct.Lamports, AccountLen) {
		return tx.TecNOT_RENT_EXEMPT
	}
	ta = &Account{Mint: mintKey, Owner: owner, IsInitialized: true}
	return storeState(ctx, key, ta.Pack())
}

func transfer(ctx *tx.ApplyContext, amount uint64) tx.Result {
	if r := ctx.RequireAccounts(3); !r.IsSuccess() {
		return r
	}
	srcKey, dstKey, authority := ctx.Account(0).Key, ctx.Account(1).Key, ctx.Account(2).Key

	src, r := loadAccount(ctx, srcKey)
	if !r.IsSuccess() {
		return r
	}
	dst, r := loadAccount(ctx, dstKey)
	if !r.IsSuccess() {
		return r
	}
	if !src.IsInitialized || !dst.IsInitialized {
		return tx.TecUNINITIALIZED
	}
	if src.Mint != dst.Mint {
		ctx.Logf("Error: Account not associated with this Mint")
		return tx.TecMINT_MISMATCH
	}
	if src.Owner != authority || !ctx.IsSigner(authority) {
		ctx.Logf("Error: owner does not match")
		return tx.TefBAD_AUTH
	}
	if src.Amount < amount {
		ctx.Logf("Error: insufficient funds")
		return tx.TecINSUFFICIENT_FUNDS
	}
	if srcKey == dstKey {
		return tx.TesSUCCESS
	}
	if dst.Amount+amount < dst.Amount {
		return tx.TecOVERFLOW
	}
	src.Amount -= amount
	dst.Amount += amount
	if r := storeState(ctx, srcKey, src.Pack()); !r.IsSuccess() {
		return r
	}
	return storeState(ctx, dstKey, dst.Pack())
}

func mintTo(ctx *tx.ApplyContext, amount uint64) tx.Result {
	if r := ctx.RequireAccounts(3); !r.IsSuccess() {
		return r
	}
	mintKey, dstKey, authority := ctx.Account(0).Key, ctx.Account(1).Key, ctx.Account(2).Key

	mint, r := loadMint(ctx, mintKey)
	if !r.IsSuccess() {
		return r
	}
	if !mint.IsInitialized {
		return tx.TecUNINITIALIZED
	}
	if mint.MintAuthority != authority || !ctx.IsSigner(authority) {
		return tx.TefBAD_AUTH
	}
	dst, r := loadAccount(ctx, dstKey)
	if !r.IsSuccess() {
		return r
	}
	if !dst.IsInitialized {
		return tx.TecUNINITIALIZED
	}
	if dst.Mint != mintKey {
		return tx.TecMINT_MISMATCH
	}
	if mint.Supply+amount < mint.Supply {
		return tx.TecOVERFLOW
	}
	mint.Supply += amount
	dst.Amount += amount
	if r := storeState(ctx, mintKey, mint.Pack()); !r.IsSuccess() {
		return r
	}
	return storeState(ctx, dstKey, dst.Pack())
}

func closeAccount(ctx *tx.ApplyContext) tx.Result {
	if r := ctx.RequireAccounts(3); !r.IsSuccess() {
		return r
	}
	key, dest, owner := ctx.Account(0).Key, ctx.Account(1).Key, ctx.Account(2).Key

	ta, r := loadAccount(ctx, key)
	if !r.IsSuccess() {
		return r
	}
	if !ta.IsInitialized {
		return tx.TecUNINITIALIZED
	}
	if ta.Owner != owner || !ctx.IsSigner(owner) {
		return tx.TefBAD_AUTH
	}
	if ta.Amount != 0 {
		ctx.Logf("Error: Non-native account can only be closed if its balance is zero")
		return tx.TecNON_ZERO_BALANCE
	}
	return ctx.Close(key, dest)
}
