package tx

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	crypto "github.com/LeJamon/goEscrow/internal/crypto/common"
)

// Structural limits checked before execution.
const (
	MaxInstructions        = 16
	MaxAccountsPerIx       = 32
	MaxInstructionDataSize = 1232
)

var (
	ErrNoInstructions    = errors.New("transaction has no instructions")
	ErrTooManyIx         = errors.New("transaction has too many instructions")
	ErrTooManyAccounts   = errors.New("instruction references too many accounts")
	ErrDataTooLarge      = errors.New("instruction data too large")
	ErrTrailingBytes     = errors.New("trailing bytes after transaction")
	ErrDuplicateSigner   = errors.New("signer appears twice")
	ErrUnknownSignerKey  = errors.New("signature from key not required by the message")
	prefixTransactionID  = []byte{'T', 'X', 'N', 0}
	prefixMessageSigning = []byte{'M', 'S', 'G', 0}
)

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte
}

// Message is the signed portion of a transaction. Nonce distinguishes
// otherwise identical messages.
type Message struct {
	Nonce        uint64
	Instructions []Instruction
}

// SignatureEntry binds a signature to the key that produced it.
type SignatureEntry struct {
	Signer    solana.PublicKey
	Signature solana.Signature
}

// Transaction is a signed message.
type Transaction struct {
	Signatures []SignatureEntry
	Message    Message
}

// Hash identifies a transaction.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash decodes a hex transaction hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// NewTransaction builds an unsigned transaction.
func NewTransaction(nonce uint64, instructions ...Instruction) *Transaction {
	return &Transaction{Message: Message{Nonce: nonce, Instructions: instructions}}
}

// Signers returns the keys that must sign the message, in first-seen order.
func (m *Message) Signers() []solana.PublicKey {
	seen := make(map[solana.PublicKey]bool)
	var out []solana.PublicKey
	for _, ix := range m.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !seen[meta.PublicKey] {
				seen[meta.PublicKey] = true
				out = append(out, meta.PublicKey)
			}
		}
	}
	return out
}

// Validate performs structural checks that need no ledger state.
func (m *Message) Validate() error {
	if len(m.Instructions) == 0 {
		return ErrNoInstructions
	}
	if len(m.Instructions) > MaxInstructions {
		return ErrTooManyIx
	}
	for i, ix := range m.Instructions {
		if len(ix.Accounts) > MaxAccountsPerIx {
			return fmt.Errorf("instruction %d: %w", i, ErrTooManyAccounts)
		}
		if len(ix.Data) > MaxInstructionDataSize {
			return fmt.Errorf("instruction %d: %w", i, ErrDataTooLarge)
		}
		for j, meta := range ix.Accounts {
			if meta == nil {
				return fmt.Errorf("instruction %d: account %d is nil", i, j)
			}
		}
	}
	return nil
}

// SigningBytes returns the bytes covered by every signature.
func (m *Message) SigningBytes() ([]byte, error) {
	body, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, prefixMessageSigning...), body...), nil
}

// MarshalBinary encodes nonce | u32 n | n * (program | u32 m | m * (key |
// signer | writable) | u32 len | data).
func (m *Message) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(m.Nonce, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(m.Instructions)), bin.LE); err != nil {
		return nil, err
	}
	for _, ix := range m.Instructions {
		if err := enc.WriteBytes(ix.ProgramID[:], false); err != nil {
			return nil, err
		}
		if err := enc.WriteUint32(uint32(len(ix.Accounts)), bin.LE); err != nil {
			return nil, err
		}
		for _, meta := range ix.Accounts {
			if err := enc.WriteBytes(meta.PublicKey[:], false); err != nil {
				return nil, err
			}
			if err := enc.WriteBool(meta.IsSigner); err != nil {
				return nil, err
			}
			if err := enc.WriteBool(meta.IsWritable); err != nil {
				return nil, err
			}
		}
		if err := enc.WriteUint32(uint32(len(ix.Data)), bin.LE); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(ix.Data, false); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeMessage(dec *bin.Decoder, m *Message) error {
	nonce, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	if n > MaxInstructions {
		return ErrTooManyIx
	}
	m.Nonce = nonce
	m.Instructions = make([]Instruction, 0, n)
	for i := uint32(0); i < n; i++ {
		var ix Instruction
		if ix.ProgramID, err = readKey(dec); err != nil {
			return err
		}
		count, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return err
		}
		if count > MaxAccountsPerIx {
			return ErrTooManyAccounts
		}
		for j := uint32(0); j < count; j++ {
			key, err := readKey(dec)
			if err != nil {
				return err
			}
			signer, err := dec.ReadBool()
			if err != nil {
				return err
			}
			writable, err := dec.ReadBool()
			if err != nil {
				return err
			}
			ix.Accounts = append(ix.Accounts, solana.NewAccountMeta(key, writable, signer))
		}
		size, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return err
		}
		if size > MaxInstructionDataSize {
			return ErrDataTooLarge
		}
		if ix.Data, err = dec.ReadNBytes(int(size)); err != nil {
			return err
		}
		m.Instructions = append(m.Instructions, ix)
	}
	return nil
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// Sign signs the message with each key, replacing any earlier signature by
// the same key.
func (t *Transaction) Sign(keys ...solana.PrivateKey) error {
	msg, err := t.Message.SigningBytes()
	if err != nil {
		return err
	}
	for _, key := range keys {
		sig, err := key.Sign(msg)
		if err != nil {
			return fmt.Errorf("sign: %w", err)
		}
		pub := key.PublicKey()
		replaced := false
		for i := range t.Signatures {
			if t.Signatures[i].Signer == pub {
				t.Signatures[i].Signature = sig
				replaced = true
			}
		}
		if !replaced {
			t.Signatures = append(t.Signatures, SignatureEntry{Signer: pub, Signature: sig})
		}
	}
	return nil
}

// VerifySignatures checks every attached signature and returns the set of
// keys that signed.
func (t *Transaction) VerifySignatures() (map[solana.PublicKey]bool, error) {
	msg, err := t.Message.SigningBytes()
	if err != nil {
		return nil, err
	}
	signed := make(map[solana.PublicKey]bool, len(t.Signatures))
	for _, s := range t.Signatures {
		if signed[s.Signer] {
			return nil, ErrDuplicateSigner
		}
		if !s.Signature.Verify(s.Signer, msg) {
			return nil, fmt.Errorf("signature by %s does not verify", s.Signer)
		}
		signed[s.Signer] = true
	}
	return signed, nil
}

// MarshalBinary encodes u8 n | n * (key | sig) | message.
func (t *Transaction) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(uint8(len(t.Signatures))); err != nil {
		return nil, err
	}
	for _, s := range t.Signatures {
		if err := enc.WriteBytes(s.Signer[:], false); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(s.Signature[:], false); err != nil {
			return nil, err
		}
	}
	msg, err := t.Message.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(msg, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a transaction produced by MarshalBinary.
func (t *Transaction) UnmarshalBinary(data []byte) error {
	dec := bin.NewBorshDecoder(data)
	n, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	sigs := make([]SignatureEntry, 0, n)
	for i := uint8(0); i < n; i++ {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		raw, err := dec.ReadNBytes(64)
		if err != nil {
			return err
		}
		var sig solana.Signature
		copy(sig[:], raw)
		sigs = append(sigs, SignatureEntry{Signer: key, Signature: sig})
	}
	var msg Message
	if err := decodeMessage(dec, &msg); err != nil {
		return err
	}
	if dec.Remaining() != 0 {
		return ErrTrailingBytes
	}
	t.Signatures = sigs
	t.Message = msg
	return nil
}

// Hash returns the transaction id: SHA-512Half over a prefix and the
// encoded message. Signatures are excluded, so reordering or re-signing a
// message keeps its id and its replay protection.
func (t *Transaction) Hash() (Hash, error) {
	raw, err := t.Message.MarshalBinary()
	if err != nil {
		return Hash{}, err
	}
	return crypto.Sha512Half(prefixTransactionID, raw), nil
}
