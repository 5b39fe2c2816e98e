package token

import (
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/system"
)

// CreateMintInstructions allocates a rent-exempt mint account funded by
// payer and initializes it. payer and mint must sign.
func CreateMintInstructions(rent tx.Rent, payer, mint, authority solana.PublicKey, decimals uint8) []tx.Instruction {
	return []tx.Instruction{
		system.NewCreateAccountInstruction(payer, mint, rent.MinimumBalance(MintLen), MintLen, solana.TokenProgramID),
		NewInitializeMintInstruction(mint, authority, decimals),
	}
}

// CreateAccountInstructions allocates and initializes a token account of
// mint held for owner. payer and account must sign.
func CreateAccountInstructions(rent tx.Rent, payer, account, mint, owner solana.PublicKey) []tx.Instruction {
	return []tx.Instruction{
		system.NewCreateAccountInstruction(payer, account, rent.MinimumBalance(AccountLen), AccountLen, solana.TokenProgramID),
		NewInitializeAccountInstruction(account, mint, owner),
	}
}
