// Package keylet derives the program-controlled addresses used by the escrow
// program and the authority capabilities that let a program sign for them.
package keylet

import (
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Seed namespaces for derived addresses.
var (
	seedEscrow = []byte("escrow")
	seedVault  = []byte("vault")
)

var (
	// ErrSeedsMismatch is returned when a supplied address or bump does not
	// match the canonical derivation.
	ErrSeedsMismatch = errors.New("derived address does not match seeds")
)

// Keylet is a derived address together with the seeds and canonical bump
// that produced it.
type Keylet struct {
	Key   solana.PublicKey
	Bump  uint8
	Seeds [][]byte
}

// Authority is the capability a program presents to sign for one of its
// derived addresses. Seeds must include the trailing bump byte.
type Authority struct {
	ProgramID solana.PublicKey
	Seeds     [][]byte
}

// Address recomputes the address the authority signs for.
func (a Authority) Address() (solana.PublicKey, error) {
	return solana.CreateProgramAddress(a.Seeds, a.ProgramID)
}

// Authority returns the signing capability for this keylet under programID.
func (k Keylet) Authority(programID solana.PublicKey) Authority {
	seeds := make([][]byte, 0, len(k.Seeds)+1)
	seeds = append(seeds, k.Seeds...)
	seeds = append(seeds, []byte{k.Bump})
	return Authority{ProgramID: programID, Seeds: seeds}
}

// EscrowSeeds returns the seeds for the escrow record of the given id.
func EscrowSeeds(id uint64) [][]byte {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, id)
	return [][]byte{seedEscrow, idBytes}
}

// VaultSeeds returns the seeds for the vault belonging to an escrow record.
func VaultSeeds(escrow solana.PublicKey) [][]byte {
	return [][]byte{seedVault, escrow.Bytes()}
}

// Escrow derives the canonical escrow record address for an offer id.
func Escrow(programID solana.PublicKey, id uint64) (Keylet, error) {
	return find(programID, EscrowSeeds(id))
}

// Vault derives the canonical vault address for an escrow record.
func Vault(programID, escrow solana.PublicKey) (Keylet, error) {
	return find(programID, VaultSeeds(escrow))
}

// EscrowWithBump rebuilds the escrow keylet from a stored bump without
// searching. It fails if the bump produces an on-curve point.
func EscrowWithBump(programID solana.PublicKey, id uint64, bump uint8) (Keylet, error) {
	return withBump(programID, EscrowSeeds(id), bump)
}

// VaultWithBump rebuilds the vault keylet from a stored bump.
func VaultWithBump(programID, escrow solana.PublicKey, bump uint8) (Keylet, error) {
	return withBump(programID, VaultSeeds(escrow), bump)
}

// Verify checks that supplied is the address seeds and bump produce.
// Any valid bump is accepted; callers pass bumps that were checked canonical
// when the record was created.
func Verify(programID, supplied solana.PublicKey, bump uint8, seeds [][]byte) error {
	k, err := withBump(programID, seeds, bump)
	if err != nil {
		return ErrSeedsMismatch
	}
	if k.Key != supplied {
		return ErrSeedsMismatch
	}
	return nil
}

func find(programID solana.PublicKey, seeds [][]byte) (Keylet, error) {
	key, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return Keylet{}, err
	}
	return Keylet{Key: key, Bump: bump, Seeds: seeds}, nil
}

func withBump(programID solana.PublicKey, seeds [][]byte, bump uint8) (Keylet, error) {
	full := append(append([][]byte{}, seeds...), []byte{bump})
	key, err := solana.CreateProgramAddress(full, programID)
	if err != nil {
		return Keylet{}, err
	}
	return Keylet{Key: key, Bump: bump, Seeds: seeds}, nil
}
