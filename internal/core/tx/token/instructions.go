package token

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/tx"
)

// Instruction tags.
const (
	InstrInitializeMint    uint8 = 0
	InstrInitializeAccount uint8 = 1
	InstrTransfer          uint8 = 3
	InstrMintTo            uint8 = 7
	InstrCloseAccount      uint8 = 9
)

// Payload sizes after the tag.
const (
	initializeMintArgsSize    = 1 + 32
	initializeAccountArgsSize = 32
	amountArgsSize            = 8
)

var instructionNames = map[uint8]string{
	InstrInitializeMint:    "initializeMint",
	InstrInitializeAccount: "initializeAccount",
	InstrTransfer:          "transfer",
	InstrMintTo:            "mintTo",
	InstrCloseAccount:      "closeAccount",
}

func amountData(tag uint8, amount uint64) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint8(tag)
	_ = enc.WriteUint64(amount, bin.LE)
	return buf.Bytes()
}

// decodeAmount reads the little-endian u64 argument of Transfer and MintTo.
func decodeAmount(args []byte) (uint64, error) {
	return bin.NewBinDecoder(args).ReadUint64(bin.LE)
}

// NewInitializeMintInstruction initializes an allocated mint account.
//
// Accounts: [writable] mint
func NewInitializeMintInstruction(mint, authority solana.PublicKey, decimals uint8) tx.Instruction {
	data := make([]byte, 1+initializeMintArgsSize)
	data[0] = InstrInitializeMint
	data[1] = decimals
	copy(data[2:], authority[:])
	return tx.Instruction{
		ProgramID: solana.TokenProgramID,
		Accounts:  []*solana.AccountMeta{solana.Meta(mint).WRITE()},
		Data:      data,
	}
}

// NewInitializeAccountInstruction initializes an allocated token account
// holding mint for owner.
//
// Accounts: [writable] account, [] mint
func NewInitializeAccountInstruction(account, mint, owner solana.PublicKey) tx.Instruction {
	data := make([]byte, 1+initializeAccountArgsSize)
	data[0] = InstrInitializeAccount
	copy(data[1:], owner[:])
	return tx.Instruction{
		ProgramID: solana.TokenProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(account).WRITE(),
			solana.Meta(mint),
		},
		Data: data,
	}
}

// NewTransferInstruction moves amount from source to destination.
//
// Accounts: [writable] source, [writable] destination, [signer] authority
func NewTransferInstruction(source, destination, authority solana.PublicKey, amount uint64) tx.Instruction {
	return tx.Instruction{
		ProgramID: solana.TokenProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(source).WRITE(),
			solana.Meta(destination).WRITE(),
			solana.Meta(authority).SIGNER(),
		},
		Data: amountData(InstrTransfer, amount),
	}
}

// NewMintToInstruction issues amount new units into destination.
//
// Accounts: [writable] mint, [writable] destination, [signer] mint authority
func NewMintToInstruction(mint, destination, authority solana.PublicKey, amount uint64) tx.Instruction {
	return tx.Instruction{
		ProgramID: solana.TokenProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(mint).WRITE(),
			solana.Meta(destination).WRITE(),
			solana.Meta(authority).SIGNER(),
		},
		Data: amountData(InstrMintTo, amount),
	}
}

// NewCloseAccountInstruction closes an empty token account, sending its
// lamports to destination.
//
// Accounts: [writable] account, [writable] destination, [signer] owner
func NewCloseAccountInstruction(account, destination, owner solana.PublicKey) tx.Instruction {
	return tx.Instruction{
		ProgramID: solana.TokenProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(account).WRITE(),
			solana.Meta(destination).WRITE(),
			solana.Meta(owner).SIGNER(),
		},
		Data: []byte{InstrCloseAccount},
	}
}
