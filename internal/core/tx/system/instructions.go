package system

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/tx"
)

// Instruction tags, encoded as a little-endian u32.
const (
	InstrCreateAccount uint32 = 0
	InstrAssign        uint32 = 1
	InstrTransfer      uint32 = 2
)

// CreateAccount funds a new account, allocates space zeroed bytes and
// assigns it to Owner.
type CreateAccount struct {
	Lamports uint64
	Space    uint64
	Owner    solana.PublicKey
}

// Assign reassigns an account with no data to Owner.
type Assign struct {
	Owner solana.PublicKey
}

// Transfer moves lamports between system accounts.
type Transfer struct {
	Lamports uint64
}

func (instr *CreateAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(InstrCreateAccount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(instr.Lamports, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(instr.Space, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBytes(instr.Owner[:], false)
}

func (instr *CreateAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	if instr.Lamports, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if instr.Space, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(instr.Owner[:], pk)
	return nil
}

func (instr *Assign) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(InstrAssign, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBytes(instr.Owner[:], false)
}

func (instr *Assign) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(instr.Owner[:], pk)
	return nil
}

func (instr *Transfer) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(InstrTransfer, bin.LE); err != nil {
		return err
	}
	return encoder.WriteUint64(instr.Lamports, bin.LE)
}

func (instr *Transfer) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	instr.Lamports, err = decoder.ReadUint64(bin.LE)
	return err
}

type marshaler interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

func encode(instr marshaler) []byte {
	buf := new(bytes.Buffer)
	if err := instr.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		panic(fmt.Sprintf("system: encode instruction: %v", err))
	}
	return buf.Bytes()
}

// NewCreateAccountInstruction builds a CreateAccount funded by from. Both
// accounts must sign.
func NewCreateAccountInstruction(from, to solana.PublicKey, lamports, space uint64, owner solana.PublicKey) tx.Instruction {
	return tx.Instruction{
		ProgramID: solana.SystemProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(from).WRITE().SIGNER(),
			solana.Meta(to).WRITE().SIGNER(),
		},
		Data: encode(&CreateAccount{Lamports: lamports, Space: space, Owner: owner}),
	}
}

// NewAssignInstruction builds an Assign of account to owner.
func NewAssignInstruction(account, owner solana.PublicKey) tx.Instruction {
	return tx.Instruction{
		ProgramID: solana.SystemProgramID,
		Accounts:  []*solana.AccountMeta{solana.Meta(account).WRITE().SIGNER()},
		Data:      encode(&Assign{Owner: owner}),
	}
}

// NewTransferInstruction builds a lamport Transfer.
func NewTransferInstruction(from, to solana.PublicKey, lamports uint64) tx.Instruction {
	return tx.Instruction{
		ProgramID: solana.SystemProgramID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(from).WRITE().SIGNER(),
			solana.Meta(to).WRITE(),
		},
		Data: encode(&Transfer{Lamports: lamports}),
	}
}
