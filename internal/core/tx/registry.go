package tx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Owners of host-managed accounts.
var (
	NativeLoaderID = solana.MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")
	SysvarOwnerID  = solana.MustPublicKeyFromBase58("Sysvar1111111111111111111111111111111111111")
)

// ErrUnknownProgram is returned when no program is registered at an address
var ErrUnknownProgram = errors.New("unknown program")

// Program is an executable registered at a fixed address.
type Program interface {
	// Name is the human-readable program name used in logs and metrics.
	Name() string

	// Process executes one instruction addressed to the program.
	Process(ctx *ApplyContext) Result

	// InstructionName labels an instruction payload for logs and the
	// journal. Unknown payloads return "unknown".
	InstructionName(data []byte) string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[solana.PublicKey]Program)
)

// Register installs a program at id. Programs call Register from init;
// registering the same id twice panics.
func Register(id solana.PublicKey, p Program) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[id]; exists {
		panic(fmt.Sprintf("program %s already registered", id))
	}
	registry[id] = p
}

// Lookup returns the program registered at id.
func Lookup(id solana.PublicKey) (Program, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, id)
	}
	return p, nil
}

// RegisteredPrograms returns every registered program id in key order.
func RegisteredPrograms() []solana.PublicKey {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]solana.PublicKey, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sortKeys(ids)
	return ids
}

// InstructionName labels ix for logs, as "<program>.<instruction>".
func InstructionName(ix Instruction) string {
	p, err := Lookup(ix.ProgramID)
	if err != nil {
		return "unknown"
	}
	return p.Name() + "." + p.InstructionName(ix.Data)
}
