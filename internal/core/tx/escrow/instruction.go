package escrow

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Operation discriminators: the first 8 bytes of sha256("global:<name>").
// These are part of the wire format and must not change.
var (
	InitializeDiscriminator = [8]byte{0xaf, 0xaf, 0x6d, 0x1f, 0x0d, 0x98, 0x9b, 0xed}
	ExchangeDiscriminator   = [8]byte{0x2f, 0x03, 0x1b, 0x61, 0xd7, 0xec, 0xdb, 0x90}
	CancelDiscriminator     = [8]byte{0xe8, 0xdb, 0xdf, 0x29, 0xdb, 0xec, 0xdc, 0xbe}
)

const (
	// DiscriminatorSize is the length of every operation tag
	DiscriminatorSize = 8

	// InitializeArgsSize is amount_a, amount_b, escrow_bump, vault_bump, id
	InitializeArgsSize = 8 + 8 + 1 + 1 + 8
)

var (
	ErrUnknownDiscriminator = errors.New("unknown instruction discriminator")
	ErrInvalidLength        = errors.New("instruction payload has the wrong length")
)

// Instruction is one decoded escrow operation: *Initialize, *Exchange or
// *Cancel.
type Instruction interface {
	Discriminator() [8]byte
	MarshalBinary() ([]byte, error)
	isInstruction()
}

// Initialize opens an offer.
type Initialize struct {
	AmountA    uint64
	AmountB    uint64
	EscrowBump uint8
	VaultBump  uint8
	ID         uint64
}

// Exchange fills an offer. All context comes from the accounts.
type Exchange struct{}

// Cancel withdraws an offer.
type Cancel struct{}

func (*Initialize) isInstruction() {}
func (*Exchange) isInstruction()   {}
func (*Cancel) isInstruction()     {}

func (*Initialize) Discriminator() [8]byte { return InitializeDiscriminator }
func (*Exchange) Discriminator() [8]byte   { return ExchangeDiscriminator }
func (*Cancel) Discriminator() [8]byte     { return CancelDiscriminator }

func (ix *Initialize) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(InitializeDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(ix.AmountA, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(ix.AmountB, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(ix.EscrowBump); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(ix.VaultBump); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(ix.ID, bin.LE); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ix *Exchange) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), ExchangeDiscriminator[:]...), nil
}

func (ix *Cancel) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), CancelDiscriminator[:]...), nil
}

// DecodeInstruction parses a wire payload. The payload length must match
// the layout selected by the discriminator exactly.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) < DiscriminatorSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(data))
	}
	var disc [8]byte
	copy(disc[:], data)
	args := data[DiscriminatorSize:]

	switch disc {
	case InitializeDiscriminator:
		if len(args) != InitializeArgsSize {
			return nil, fmt.Errorf("%w: initialize expects %d argument bytes, got %d", ErrInvalidLength, InitializeArgsSize, len(args))
		}
		dec := bin.NewBorshDecoder(args)
		var ix Initialize
		var err error
		if ix.AmountA, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		if ix.AmountB, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		if ix.EscrowBump, err = dec.ReadUint8(); err != nil {
			return nil, err
		}
		if ix.VaultBump, err = dec.ReadUint8(); err != nil {
			return nil, err
		}
		if ix.ID, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		return &ix, nil
	case ExchangeDiscriminator:
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: exchange takes no arguments, got %d bytes", ErrInvalidLength, len(args))
		}
		return &Exchange{}, nil
	case CancelDiscriminator:
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: cancel takes no arguments, got %d bytes", ErrInvalidLength, len(args))
		}
		return &Cancel{}, nil
	}
	return nil, fmt.Errorf("%w: %x", ErrUnknownDiscriminator, disc)
}
