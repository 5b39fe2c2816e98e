package escrow

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrow/internal/core/tx"
)

type InitializeInstructionArgs struct {
	ID      uint64
	AmountA uint64
	AmountB uint64
}

type InitializeInstructionAccounts struct {
	Maker         solana.PublicKey
	MakerSourceA  solana.PublicKey
	MakerReceiveB solana.PublicKey
	MintA         solana.PublicKey
	MintB         solana.PublicKey
}

type ExchangeInstructionAccounts struct {
	ID                uint64
	Maker             solana.PublicKey
	Taker             solana.PublicKey
	MakerReceiveB     solana.PublicKey
	TakerSourceB      solana.PublicKey
	TakerDestinationA solana.PublicKey
	MintB             solana.PublicKey
}

type CancelInstructionAccounts struct {
	ID                uint64
	Maker             solana.PublicKey
	MakerDestinationA solana.PublicKey
}

// Addresses returns the canonical record and vault keylets for an id.
func Addresses(id uint64) (record, vault keylet.Keylet, err error) {
	record, err = keylet.Escrow(ProgramID, id)
	if err != nil {
		return record, vault, fmt.Errorf("derive escrow record: %w", err)
	}
	vault, err = keylet.Vault(ProgramID, record.Key)
	if err != nil {
		return record, vault, fmt.Errorf("derive vault: %w", err)
	}
	return record, vault, nil
}

// NewInitializeInstruction opens offer args.ID. Addresses and bumps are
// derived here; the maker must sign.
func NewInitializeInstruction(accounts *InitializeInstructionAccounts, args *InitializeInstructionArgs) (tx.Instruction, error) {
	record, vault, err := Addresses(args.ID)
	if err != nil {
		return tx.Instruction{}, err
	}
	data, err := (&Initialize{
		AmountA:    args.AmountA,
		AmountB:    args.AmountB,
		EscrowBump: record.Bump,
		VaultBump:  vault.Bump,
		ID:         args.ID,
	}).MarshalBinary()
	if err != nil {
		return tx.Instruction{}, err
	}

	return tx.Instruction{
		ProgramID: ProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(record.Key).WRITE(),
			solana.Meta(vault.Key).WRITE(),
			solana.Meta(accounts.Maker).WRITE().SIGNER(),
			solana.Meta(accounts.MakerSourceA).WRITE(),
			solana.Meta(accounts.MakerReceiveB),
			solana.Meta(accounts.MintA),
			solana.Meta(accounts.MintB),
			solana.Meta(solana.SysVarRentPubkey),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SystemProgramID),
		},
		Data: data,
	}, nil
}

// NewExchangeInstruction fills offer accounts.ID; the taker must sign.
func NewExchangeInstruction(accounts *ExchangeInstructionAccounts) (tx.Instruction, error) {
	record, vault, err := Addresses(accounts.ID)
	if err != nil {
		return tx.Instruction{}, err
	}
	data, _ := (&Exchange{}).MarshalBinary()

	return tx.Instruction{
		ProgramID: ProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(record.Key).WRITE(),
			solana.Meta(vault.Key).WRITE(),
			solana.Meta(accounts.Maker).WRITE(),
			solana.Meta(accounts.Taker).WRITE().SIGNER(),
			solana.Meta(accounts.MakerReceiveB).WRITE(),
			solana.Meta(accounts.TakerSourceB).WRITE(),
			solana.Meta(accounts.TakerDestinationA).WRITE(),
			solana.Meta(accounts.MintB),
			solana.Meta(solana.TokenProgramID),
		},
		Data: data,
	}, nil
}

// ExchangeAccountsFor fills the maker side of an exchange from a record.
func ExchangeAccountsFor(rec *Record, taker, takerSourceB, takerDestinationA solana.PublicKey) *ExchangeInstructionAccounts {
	return &ExchangeInstructionAccounts{
		ID:                rec.ID,
		Maker:             rec.Maker,
		Taker:             taker,
		MakerReceiveB:     rec.MakerReturnAccount,
		TakerSourceB:      takerSourceB,
		TakerDestinationA: takerDestinationA,
		MintB:             rec.MintB,
	}
}

// NewCancelInstruction withdraws offer accounts.ID; the maker must sign.
func NewCancelInstruction(accounts *CancelInstructionAccounts) (tx.Instruction, error) {
	record, vault, err := Addresses(accounts.ID)
	if err != nil {
		return tx.Instruction{}, err
	}
	data, _ := (&Cancel{}).MarshalBinary()

	return tx.Instruction{
		ProgramID: ProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(record.Key).WRITE(),
			solana.Meta(vault.Key).WRITE(),
			solana.Meta(accounts.Maker).WRITE().SIGNER(),
			solana.Meta(accounts.MakerDestinationA).WRITE(),
			solana.Meta(solana.TokenProgramID),
		},
		Data: data,
	}, nil
}
