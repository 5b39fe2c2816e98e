package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/LeJamon/goEscrow/internal/api"
	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrow/internal/storage/relationaldb"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, &api.ErrorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &api.HealthResponse{Status: "ok", Sequence: s.state.Sequence()})
}

// handleSubmit replies 200 for applied transactions and 422 for rejected
// ones; the body carries the result code either way.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Transaction)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("transaction is not base64: %w", err))
		return
	}
	var txn tx.Transaction
	if err := txn.UnmarshalBinary(raw); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode transaction: %w", err))
		return
	}

	res := s.engine.Submit(r.Context(), &txn)
	status := http.StatusOK
	if !res.Applied {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, api.NewSubmitResponse(&res))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	key, err := solana.PublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address: %w", err))
		return
	}
	acct, err := s.state.Read(key)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if acct == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("account %s not found", key))
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewAccountResponse(key, acct))
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid escrow id: %w", err))
		return
	}
	record, _, err := escrow.Addresses(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	acct, err := s.state.Read(record.Key)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if acct == nil || acct.Owner != escrow.ProgramID {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("escrow %d not found", id))
		return
	}
	rec, err := escrow.UnmarshalRecord(acct.Data)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	view, err := api.NewEscrowView(record.Key, rec)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListEscrows(w http.ResponseWriter, r *http.Request) {
	var maker *solana.PublicKey
	if m := r.URL.Query().Get("maker"); m != "" {
		key, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid maker: %w", err))
			return
		}
		maker = &key
	}

	out := &api.EscrowsResponse{Escrows: []*api.EscrowView{}}
	err := s.state.ForEachOwned(r.Context(), escrow.ProgramID, func(key solana.PublicKey, acct *entry.Account) error {
		rec, err := escrow.UnmarshalRecord(acct.Data)
		if err != nil {
			return nil
		}
		if maker != nil && rec.Maker != *maker {
			return nil
		}
		view, err := api.NewEscrowView(key, rec)
		if err != nil {
			return err
		}
		out.Escrows = append(out.Escrows, view)
		return nil
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	var req api.AirdropRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Lamports == 0 || req.Lamports > s.config.FaucetMaxLamports {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("lamports must be between 1 and %d", s.config.FaucetMaxLamports))
		return
	}
	balance, err := s.engine.Airdrop(r.Context(), req.Address, req.Lamports)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tx.ErrAirdropOverflow) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &api.AirdropResponse{Address: req.Address, Balance: balance})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotImplemented, errors.New("transaction journal is disabled"))
		return
	}
	hash, err := tx.ParseHash(chi.URLParam(r, "hash"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid hash: %w", err))
		return
	}
	rec, err := s.journal.GetTransaction(r.Context(), hash)
	if errors.Is(err, relationaldb.ErrTransactionNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transactionResponse(rec))
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotImplemented, errors.New("transaction journal is disabled"))
		return
	}
	key, err := solana.PublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address: %w", err))
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", l))
			return
		}
	}
	records, err := s.journal.AccountTransactions(r.Context(), key, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]*api.TransactionResponse, len(records))
	for i, rec := range records {
		out[i] = transactionResponse(rec)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func transactionResponse(rec *relationaldb.TransactionRecord) *api.TransactionResponse {
	return &api.TransactionResponse{
		Hash:         rec.Hash.String(),
		Sequence:     rec.Sequence,
		Result:       rec.Result,
		Code:         rec.ResultCode,
		Applied:      rec.Applied,
		Instructions: rec.Instructions,
		Accounts:     rec.Accounts,
		RecordedAt:   rec.RecordedAt.UnixNano(),
	}
}

// handleStream upgrades to a websocket feed of applied transactions,
// optionally only those touching ?account=.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var account *solana.PublicKey
	if a := r.URL.Query().Get("account"); a != "" {
		key, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid account: %w", err))
			return
		}
		account = &key
	}
	s.stream.serve(w, r, account)
}
