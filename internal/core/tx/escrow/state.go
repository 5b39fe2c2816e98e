package escrow

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AccountDiscriminator prefixes every escrow record: the first 8 bytes of
// sha256("account:EscrowAccount").
var AccountDiscriminator = [8]byte{0x24, 0x45, 0x30, 0x12, 0x80, 0xe1, 0x7d, 0x87}

// RecordLen is the encoded size of a Record including its discriminator.
const RecordLen = 8 + 8*3 + 32*4 + 2

var (
	ErrRecordLength        = errors.New("escrow record has the wrong length")
	ErrRecordDiscriminator = errors.New("account is not an escrow record")
)

// Record is the persistent state of one open offer. A live Record always
// has a Vault holding exactly AmountA of MintA.
type Record struct {
	ID                 uint64
	AmountA            uint64
	AmountB            uint64
	Maker              solana.PublicKey
	MintA              solana.PublicKey
	MintB              solana.PublicKey
	MakerReturnAccount solana.PublicKey
	EscrowBump         uint8
	VaultBump          uint8
}

// Pack encodes the record with its discriminator.
func (r *Record) Pack() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(RecordLen)
	buf.Write(AccountDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteUint64(r.ID, bin.LE)
	_ = enc.WriteUint64(r.AmountA, bin.LE)
	_ = enc.WriteUint64(r.AmountB, bin.LE)
	_ = enc.WriteBytes(r.Maker[:], false)
	_ = enc.WriteBytes(r.MintA[:], false)
	_ = enc.WriteBytes(r.MintB[:], false)
	_ = enc.WriteBytes(r.MakerReturnAccount[:], false)
	_ = enc.WriteUint8(r.EscrowBump)
	_ = enc.WriteUint8(r.VaultBump)
	return buf.Bytes()
}

// UnmarshalRecord decodes escrow record data without running the program.
func UnmarshalRecord(data []byte) (*Record, error) {
	if len(data) != RecordLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordLength, len(data))
	}
	if !bytes.Equal(data[:8], AccountDiscriminator[:]) {
		return nil, ErrRecordDiscriminator
	}
	dec := bin.NewBorshDecoder(data[8:])
	var r Record
	var err error
	if r.ID, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if r.AmountA, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if r.AmountB, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	for _, dst := range []*solana.PublicKey{&r.Maker, &r.MintA, &r.MintB, &r.MakerReturnAccount} {
		b, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, err
		}
		*dst = solana.PublicKeyFromBytes(b)
	}
	if r.EscrowBump, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if r.VaultBump, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	return &r, nil
}
