package token

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Encoded sizes.
const (
	MintLen    = 32 + 8 + 1 + 1
	AccountLen = 32 + 32 + 8 + 1
)

var ErrInvalidState = errors.New("invalid token state")

// Mint describes one fungible asset.
type Mint struct {
	MintAuthority solana.PublicKey
	Supply        uint64
	Decimals      uint8
	IsInitialized bool
}

// Account is a balance of one mint held for an owner.
type Account struct {
	Mint          solana.PublicKey
	Owner         solana.PublicKey
	Amount        uint64
	IsInitialized bool
}

func (m *Mint) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(m.MintAuthority[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(m.Supply, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint8(m.Decimals); err != nil {
		return err
	}
	return encoder.WriteBool(m.IsInitialized)
}

func (m *Mint) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	authority, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	m.MintAuthority = solana.PublicKeyFromBytes(authority)
	if m.Supply, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if m.Decimals, err = decoder.ReadUint8(); err != nil {
		return err
	}
	m.IsInitialized, err = decoder.ReadBool()
	return err
}

func (a *Account) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(a.Mint[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(a.Owner[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(a.Amount, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBool(a.IsInitialized)
}

func (a *Account) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	mint, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	owner, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	a.Mint = solana.PublicKeyFromBytes(mint)
	a.Owner = solana.PublicKeyFromBytes(owner)
	if a.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	a.IsInitialized, err = decoder.ReadBool()
	return err
}

// Pack encodes the mint into its fixed layout.
func (m *Mint) Pack() []byte {
	buf := new(bytes.Buffer)
	_ = m.MarshalWithEncoder(bin.NewBorshEncoder(buf))
	return buf.Bytes()
}

// Pack encodes the account into its fixed layout.
func (a *Account) Pack() []byte {
	buf := new(bytes.Buffer)
	_ = a.MarshalWithEncoder(bin.NewBorshEncoder(buf))
	return buf.Bytes()
}

// UnpackMint decodes mint data. Uninitialized mints decode without error;
// callers check IsInitialized.
func UnpackMint(data []byte) (*Mint, error) {
	if len(data) != MintLen {
		return nil, fmt.Errorf("%w: mint data is %d bytes", ErrInvalidState, len(data))
	}
	var m Mint
	if err := m.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return &m, nil
}

// UnpackAccount decodes token account data.
func UnpackAccount(data []byte) (*Account, error) {
	if len(data) != AccountLen {
		return nil, fmt.Errorf("%w: account data is %d bytes", ErrInvalidState, len(data))
	}
	var a Account
	if err := a.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return &a, nil
}
