// Package entry defines the account record stored at every ledger address
// and the change set produced when a transaction is applied.
package entry

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// MaxDataLen bounds the data one account may hold.
const MaxDataLen = 10 * 1024 * 1024

var ErrMalformedAccount = errors.New("malformed account encoding")

// Account is the state held at a single ledger address.
// Owner is the program allowed to mutate Data and debit Lamports.
type Account struct {
	Lamports   uint64
	Owner      solana.PublicKey
	Executable bool
	Data       []byte
}

// NewSystemAccount returns an empty account owned by the system program.
func NewSystemAccount(lamports uint64) *Account {
	return &Account{Lamports: lamports, Owner: solana.SystemProgramID}
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// IsEmpty reports whether the account holds nothing worth persisting.
// Empty accounts are removed from the ledger on commit.
func (a *Account) IsEmpty() bool {
	return a == nil || (a.Lamports == 0 && len(a.Data) == 0)
}

// Equal compares two accounts field by field.
func (a *Account) Equal(b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Lamports == b.Lamports &&
		a.Owner == b.Owner &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}

// Marshal encodes the account as lamports | owner | executable | len | data.
func (a *Account) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(a.Lamports, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(a.Owner[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(a.Executable); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(a.Data)), bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(a.Data, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an account written by Marshal.
func Unmarshal(data []byte) (*Account, error) {
	dec := bin.NewBorshDecoder(data)

	lamports, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: lamports: %v", ErrMalformedAccount, err)
	}
	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrMalformedAccount, err)
	}
	executable, err := dec.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("%w: executable: %v", ErrMalformedAccount, err)
	}
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: data length: %v", ErrMalformedAccount, err)
	}
	if n > MaxDataLen || int(n) != dec.Remaining() {
		return nil, fmt.Errorf("%w: data length %d with %d bytes remaining", ErrMalformedAccount, n, dec.Remaining())
	}
	payload, err := dec.ReadNBytes(int(n))
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrMalformedAccount, err)
	}

	return &Account{
		Lamports:   lamports,
		Owner:      solana.PublicKeyFromBytes(owner),
		Executable: executable,
		Data:       append([]byte(nil), payload...),
	}, nil
}
