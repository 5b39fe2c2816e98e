package tx

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

// AccountStorageOverhead is the per-account byte cost charged on top of data.
const AccountStorageOverhead = 128

// Rent defaults
const (
	DefaultLamportsPerByteYear uint64 = 3480
	DefaultExemptionThreshold  uint64 = 2
)

// RentSysvarLen is the encoded size of the rent sysvar.
const RentSysvarLen = 16

// Rent holds the storage deposit parameters published in the rent sysvar.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

// DefaultRent returns the rent parameters used when none are configured.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance returns the deposit that makes an account of dataLen bytes
// rent exempt.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionThreshold
}

// IsExempt reports whether lamports cover the deposit for dataLen bytes.
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// Marshal encodes the sysvar payload.
func (r Rent) Marshal() []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteUint64(r.LamportsPerByteYear, bin.LE)
	_ = enc.WriteUint64(r.ExemptionThreshold, bin.LE)
	return buf.Bytes()
}

// UnmarshalRent decodes the rent sysvar payload.
func UnmarshalRent(data []byte) (Rent, error) {
	if len(data) != RentSysvarLen {
		return Rent{}, fmt.Errorf("rent sysvar must be %d bytes, got %d", RentSysvarLen, len(data))
	}
	dec := bin.NewBorshDecoder(data)
	lpby, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return Rent{}, err
	}
	threshold, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return Rent{}, err
	}
	return Rent{LamportsPerByteYear: lpby, ExemptionThreshold: threshold}, nil
}

// ReadRent loads the rent sysvar from view, falling back to DefaultRent when
// it has not been published.
func ReadRent(view ReadView) (Rent, error) {
	acct, err := view.Read(solana.SysVarRentPubkey)
	if err != nil {
		return Rent{}, err
	}
	if acct == nil {
		return DefaultRent(), nil
	}
	return UnmarshalRent(acct.Data)
}

// GenesisAccounts returns the accounts every fresh ledger starts with: one
// executable account per registered program and the rent sysvar.
func GenesisAccounts(rent Rent) map[solana.PublicKey]*entry.Account {
	out := make(map[solana.PublicKey]*entry.Account)
	for _, id := range RegisteredPrograms() {
		out[id] = &entry.Account{
			Lamports:   1,
			Owner:      NativeLoaderID,
			Executable: true,
		}
	}
	data := rent.Marshal()
	out[solana.SysVarRentPubkey] = &entry.Account{
		Lamports: rent.MinimumBalance(len(data)),
		Owner:    SysvarOwnerID,
		Data:     data,
	}
	return out
}
