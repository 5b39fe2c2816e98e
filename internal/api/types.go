// Package api defines the JSON bodies exchanged with the node HTTP API.
package api

import (
	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrow/internal/core/tx/token"
)

// SubmitRequest carries a base64 encoded signed transaction
type SubmitRequest struct {
	Transaction string `json:"transaction"`
}

// SubmitResponse reports how the node handled a transaction
type SubmitResponse struct {
	Hash              string   `json:"hash"`
	Result            string   `json:"result"`
	Code              int      `json:"code"`
	Applied           bool     `json:"applied"`
	Sequence          uint64   `json:"sequence,omitempty"`
	FailedInstruction int      `json:"failed_instruction"`
	Message           string   `json:"message,omitempty"`
	Logs              []string `json:"logs,omitempty"`
	Instructions      []string `json:"instructions,omitempty"`
	Affected          []string `json:"affected,omitempty"`
}

// NewSubmitResponse converts an engine result.
func NewSubmitResponse(res *tx.ApplyResult) *SubmitResponse {
	out := &SubmitResponse{
		Hash:              res.Hash.String(),
		Result:            res.Result.String(),
		Code:              int(res.Result),
		Applied:           res.Applied,
		Sequence:          res.Sequence,
		FailedInstruction: res.FailedInstruction,
		Message:           res.Message,
		Logs:              res.Logs,
	}
	if res.Metadata != nil {
		out.Instructions = res.Metadata.Instructions
		for _, k := range res.Metadata.AffectedAccounts() {
			out.Affected = append(out.Affected, k.String())
		}
	}
	return out
}

// AccountResponse is an account plus its decoded program state, if known
type AccountResponse struct {
	Address    solana.PublicKey `json:"address"`
	Lamports   uint64           `json:"lamports"`
	Owner      solana.PublicKey `json:"owner"`
	Executable bool             `json:"executable"`
	Data       []byte           `json:"data"`

	Mint         *MintView         `json:"mint,omitempty"`
	TokenAccount *TokenAccountView `json:"token_account,omitempty"`
	Escrow       *EscrowView       `json:"escrow,omitempty"`
}

type MintView struct {
	MintAuthority solana.PublicKey `json:"mint_authority"`
	Supply        uint64           `json:"supply"`
	Decimals      uint8            `json:"decimals"`
}

type TokenAccountView struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// EscrowView is a decoded Escrow Record with its derived Vault
type EscrowView struct {
	Address            solana.PublicKey `json:"address"`
	Vault              solana.PublicKey `json:"vault"`
	ID                 uint64           `json:"id"`
	AmountA            uint64           `json:"amount_a"`
	AmountB            uint64           `json:"amount_b"`
	Maker              solana.PublicKey `json:"maker"`
	MintA              solana.PublicKey `json:"mint_a"`
	MintB              solana.PublicKey `json:"mint_b"`
	MakerReturnAccount solana.PublicKey `json:"maker_return_account"`
	EscrowBump         uint8            `json:"escrow_bump"`
	VaultBump          uint8            `json:"vault_bump"`
}

// NewEscrowView describes rec stored at address.
func NewEscrowView(address solana.PublicKey, rec *escrow.Record) (*EscrowView, error) {
	vault, err := keylet.VaultWithBump(escrow.ProgramID, address, rec.VaultBump)
	if err != nil {
		return nil, err
	}
	return &EscrowView{
		Address:            address,
		Vault:              vault.Key,
		ID:                 rec.ID,
		AmountA:            rec.AmountA,
		AmountB:            rec.AmountB,
		Maker:              rec.Maker,
		MintA:              rec.MintA,
		MintB:              rec.MintB,
		MakerReturnAccount: rec.MakerReturnAccount,
		EscrowBump:         rec.EscrowBump,
		VaultBump:          rec.VaultBump,
	}, nil
}

// Record converts the view back into the stored record.
func (v *EscrowView) Record() *escrow.Record {
	return &escrow.Record{
		ID:                 v.ID,
		AmountA:            v.AmountA,
		AmountB:            v.AmountB,
		Maker:              v.Maker,
		MintA:              v.MintA,
		MintB:              v.MintB,
		MakerReturnAccount: v.MakerReturnAccount,
		EscrowBump:         v.EscrowBump,
		VaultBump:          v.VaultBump,
	}
}

// NewAccountResponse describes acct, decoding state owned by the token and
// escrow programs. Undecodable data is returned raw.
func NewAccountResponse(address solana.PublicKey, acct *entry.Account) *AccountResponse {
	out := &AccountResponse{
		Address:    address,
		Lamports:   acct.Lamports,
		Owner:      acct.Owner,
		Executable: acct.Executable,
		Data:       acct.Data,
	}
	switch acct.Owner {
	case solana.TokenProgramID:
		switch len(acct.Data) {
		case token.MintLen:
			if m, err := token.UnpackMint(acct.Data); err == nil {
				out.Mint = &MintView{MintAuthority: m.MintAuthority, Supply: m.Supply, Decimals: m.Decimals}
			}
		case token.AccountLen:
			if a, err := token.UnpackAccount(acct.Data); err == nil {
				out.TokenAccount = &TokenAccountView{Mint: a.Mint, Owner: a.Owner, Amount: a.Amount}
			}
		}
	case escrow.ProgramID:
		if rec, err := escrow.UnmarshalRecord(acct.Data); err == nil {
			out.Escrow, _ = NewEscrowView(address, rec)
		}
	}
	return out
}

// EscrowsResponse lists open offers
type EscrowsResponse struct {
	Escrows []*EscrowView `json:"escrows"`
}

// AirdropRequest asks the faucet to credit an address
type AirdropRequest struct {
	Address  solana.PublicKey `json:"address"`
	Lamports uint64           `json:"lamports"`
}

type AirdropResponse struct {
	Address solana.PublicKey `json:"address"`
	Balance uint64           `json:"balance"`
}

// TransactionResponse is one journal entry
type TransactionResponse struct {
	Hash         string             `json:"hash"`
	Sequence     uint64             `json:"sequence"`
	Result       string             `json:"result"`
	Code         int                `json:"code"`
	Applied      bool               `json:"applied"`
	Instructions []string           `json:"instructions"`
	Accounts     []solana.PublicKey `json:"accounts"`
	RecordedAt   int64              `json:"recorded_at"`
}

// HealthResponse reports node liveness
type HealthResponse struct {
	Status   string `json:"status"`
	Sequence uint64 `json:"sequence"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}
