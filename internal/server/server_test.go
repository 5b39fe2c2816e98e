package server_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrow/internal/api"
	"github.com/LeJamon/goEscrow/internal/config"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrow/internal/core/tx/system"
	"github.com/LeJamon/goEscrow/internal/metrics"
	"github.com/LeJamon/goEscrow/internal/server"
	"github.com/LeJamon/goEscrow/internal/storage/relationaldb"
	jtx "github.com/LeJamon/goEscrow/internal/testing"
)

type fixture struct {
	env     *jtx.TestEnv
	http    *httptest.Server
	journal *relationaldb.Journal
	metrics *metrics.Registry
	stream  *server.Stream
}

type fixtureOptions struct {
	faucet  bool
	journal bool
	stream  bool
}

func serverConfig(faucet bool) config.ServerConfig {
	return config.ServerConfig{
		Address:           "127.0.0.1:0",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		Faucet:            faucet,
		FaucetMaxLamports: 1_000_000,
	}
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	f := &fixture{metrics: metrics.NewRegistry()}
	observers := []tx.Observer{f.metrics}
	srvOpts := server.Options{Metrics: f.metrics.Handler()}
	if opts.journal {
		j, err := relationaldb.Open(context.Background(), relationaldb.SQLiteConfig(filepath.Join(t.TempDir(), "journal.db")))
		require.NoError(t, err)
		t.Cleanup(func() { _ = j.Close() })
		f.journal = j
		observers = append(observers, j)
		srvOpts.Journal = j
	}
	if opts.stream {
		f.stream = server.NewStream()
		t.Cleanup(func() { _ = f.stream.Close() })
		observers = append(observers, f.stream)
		srvOpts.Stream = f.stream
	}
	f.env = jtx.NewTestEnv(t, observers...)
	s := server.New(f.env.Engine(), f.env.Ledger(), serverConfig(opts.faucet), srvOpts)
	f.http = httptest.NewServer(s.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.http.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (f *fixture) submit(t *testing.T, txn *tx.Transaction) (int, *api.SubmitResponse) {
	t.Helper()
	raw, err := txn.MarshalBinary()
	require.NoError(t, err)
	status, body := f.do(t, http.MethodPost, "/v1/transactions", &api.SubmitRequest{
		Transaction: base64.StdEncoding.EncodeToString(raw),
	})
	var out api.SubmitResponse
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return status, &out
}

func signed(t *testing.T, f *fixture, signer *jtx.Account, ixs ...tx.Instruction) *tx.Transaction {
	t.Helper()
	txn := f.env.NewTransaction(ixs...)
	require.NoError(t, txn.Sign(signer.Key))
	return txn
}

func TestHealth(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	status, body := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)

	var out api.HealthResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, f.env.Ledger().Sequence(), out.Sequence)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	alice := f.env.Account("alice")
	bob := f.env.Account("bob")
	f.env.Fund(alice)

	status, out := f.submit(t, signed(t, f, alice, system.NewTransferInstruction(alice.PublicKey(), bob.PublicKey(), 1234)))
	require.Equal(t, http.StatusOK, status, out.Message)
	assert.True(t, out.Applied)
	assert.Equal(t, int(tx.TesSUCCESS), out.Code)
	assert.Equal(t, "tesSUCCESS", out.Result)
	assert.Equal(t, []string{"system.transfer"}, out.Instructions)
	assert.Contains(t, out.Affected, bob.PublicKey().String())
	jtx.RequireBalance(t, f.env, bob.PublicKey(), 1234)

	t.Run("rejected", func(t *testing.T) {
		status, out := f.submit(t, signed(t, f, bob, system.NewTransferInstruction(bob.PublicKey(), alice.PublicKey(), 1_000_000)))
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.False(t, out.Applied)
		assert.Equal(t, int(tx.TecINSUFFICIENT_LAMPORTS), out.Code)
		assert.Equal(t, 0, out.FailedInstruction)
	})

	t.Run("resubmitted", func(t *testing.T) {
		txn := signed(t, f, alice, system.NewTransferInstruction(alice.PublicKey(), bob.PublicKey(), 10))
		status, first := f.submit(t, txn)
		require.Equal(t, http.StatusOK, status, first.Message)

		status, again := f.submit(t, txn)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.False(t, again.Applied)
		assert.Equal(t, "tefALREADY_PROCESSED", again.Result)
		assert.Equal(t, first.Hash, again.Hash)
		jtx.RequireBalance(t, f.env, bob.PublicKey(), 1244)
	})

	t.Run("malformed bodies", func(t *testing.T) {
		for name, body := range map[string]string{
			"not json":      "{",
			"unknown field": `{"transaction":"", "extra":1}`,
			"not base64":    `{"transaction":"%%%"}`,
			"not a txn":     `{"transaction":"AAAA"}`,
		} {
			status, _ := f.do(t, http.MethodPost, "/v1/transactions", body)
			assert.Equal(t, http.StatusBadRequest, status, name)
		}
	})
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	issuer := f.env.Account("issuer")
	f.env.Fund(issuer)
	mint := f.env.CreateMint(issuer, 3)
	holder := f.env.CreateTokenAccount(issuer, mint)
	f.env.MintTo(mint, issuer, holder, 77)

	status, body := f.do(t, http.MethodGet, "/v1/accounts/"+holder.PublicKey().String(), nil)
	require.Equal(t, http.StatusOK, status)
	var out api.AccountResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, solana.TokenProgramID, out.Owner)
	require.NotNil(t, out.TokenAccount)
	assert.Equal(t, uint64(77), out.TokenAccount.Amount)
	assert.Equal(t, mint.PublicKey(), out.TokenAccount.Mint)

	status, body = f.do(t, http.MethodGet, "/v1/accounts/"+mint.PublicKey().String(), nil)
	require.Equal(t, http.StatusOK, status)
	out = api.AccountResponse{}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotNil(t, out.Mint)
	assert.Equal(t, uint8(3), out.Mint.Decimals)
	assert.Equal(t, uint64(77), out.Mint.Supply)

	status, _ = f.do(t, http.MethodGet, "/v1/accounts/"+solana.NewWallet().PublicKey().String(), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/v1/accounts/not-a-key", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func openOffer(t *testing.T, env *jtx.TestEnv, makerName string, id uint64) *jtx.Account {
	t.Helper()
	issuer := env.Account("issuer")
	maker := env.Account(makerName)
	env.Fund(issuer, maker)
	mintA := env.CreateMint(issuer, 0)
	mintB := env.CreateMint(issuer, 0)
	makerA := env.CreateTokenAccount(maker, mintA)
	makerB := env.CreateTokenAccount(maker, mintB)
	env.MintTo(mintA, issuer, makerA, 500)

	ix, err := escrow.NewInitializeInstruction(&escrow.InitializeInstructionAccounts{
		Maker:         maker.PublicKey(),
		MakerSourceA:  makerA.PublicKey(),
		MakerReceiveB: makerB.PublicKey(),
		MintA:         mintA.PublicKey(),
		MintB:         mintB.PublicKey(),
	}, &escrow.InitializeInstructionArgs{ID: id, AmountA: 100, AmountB: 200})
	require.NoError(t, err)
	jtx.RequireTxSuccess(t, env.Submit(ix))
	return maker
}

func TestEscrows(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	alice := openOffer(t, f.env, "alice", 3)
	openOffer(t, f.env, "bob", 9)

	status, body := f.do(t, http.MethodGet, "/v1/escrows/3", nil)
	require.Equal(t, http.StatusOK, status)
	var view api.EscrowView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, uint64(3), view.ID)
	assert.Equal(t, alice.PublicKey(), view.Maker)
	assert.Equal(t, uint64(100), view.AmountA)
	record, vault, err := escrow.Addresses(3)
	require.NoError(t, err)
	assert.Equal(t, record.Key, view.Address)
	assert.Equal(t, vault.Key, view.Vault)
	assert.Equal(t, f.env.Escrow(3), view.Record())

	status, _ = f.do(t, http.MethodGet, "/v1/escrows/4", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(t, http.MethodGet, "/v1/escrows/-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(t, http.MethodGet, "/v1/escrows", nil)
	require.Equal(t, http.StatusOK, status)
	var list api.EscrowsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Escrows, 2)

	status, body = f.do(t, http.MethodGet, "/v1/escrows?maker="+alice.PublicKey().String(), nil)
	require.Equal(t, http.StatusOK, status)
	list = api.EscrowsResponse{}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Escrows, 1)
	assert.Equal(t, uint64(3), list.Escrows[0].ID)

	status, _ = f.do(t, http.MethodGet, "/v1/escrows?maker=nope", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAirdrop(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})
		status, _ := f.do(t, http.MethodPost, "/v1/airdrop", &api.AirdropRequest{Address: solana.NewWallet().PublicKey(), Lamports: 1})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("enabled", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{faucet: true})
		key := solana.NewWallet().PublicKey()

		status, body := f.do(t, http.MethodPost, "/v1/airdrop", &api.AirdropRequest{Address: key, Lamports: 500})
		require.Equal(t, http.StatusOK, status, string(body))
		var out api.AirdropResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, key, out.Address)
		assert.Equal(t, uint64(500), out.Balance)
		jtx.RequireBalance(t, f.env, key, 500)

		for _, lamports := range []uint64{0, 1_000_001} {
			status, _ := f.do(t, http.MethodPost, "/v1/airdrop", &api.AirdropRequest{Address: key, Lamports: lamports})
			assert.Equal(t, http.StatusBadRequest, status, lamports)
		}
	})
}

func TestTransactionHistory(t *testing.T) {
	f := newFixture(t, fixtureOptions{journal: true})
	alice := f.env.Account("alice")
	bob := f.env.Account("bob")
	f.env.Fund(alice)

	txn := signed(t, f, alice, system.NewTransferInstruction(alice.PublicKey(), bob.PublicKey(), 10))
	status, out := f.submit(t, txn)
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodGet, "/v1/transactions/"+out.Hash, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var rec api.TransactionResponse
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, out.Hash, rec.Hash)
	assert.True(t, rec.Applied)
	assert.Equal(t, out.Sequence, rec.Sequence)
	assert.Equal(t, []solana.PublicKey{alice.PublicKey(), bob.PublicKey()}, rec.Accounts)

	status, body = f.do(t, http.MethodGet, fmt.Sprintf("/v1/accounts/%s/transactions?limit=5", bob.PublicKey()), nil)
	require.Equal(t, http.StatusOK, status)
	var list []*api.TransactionResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, out.Hash, list[0].Hash)

	var missing tx.Hash
	missing[0] = 1
	status, _ = f.do(t, http.MethodGet, "/v1/transactions/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(t, http.MethodGet, "/v1/transactions/zz", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodGet, fmt.Sprintf("/v1/accounts/%s/transactions?limit=0", bob.PublicKey()), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTransactionHistory_Disabled(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	var h tx.Hash
	status, _ := f.do(t, http.MethodGet, "/v1/transactions/"+h.String(), nil)
	assert.Equal(t, http.StatusNotImplemented, status)
	status, _ = f.do(t, http.MethodGet, "/v1/accounts/"+solana.NewWallet().PublicKey().String()+"/transactions", nil)
	assert.Equal(t, http.StatusNotImplemented, status)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	alice := f.env.Account("alice")
	f.env.Fund(alice)
	f.submit(t, signed(t, f, alice, system.NewTransferInstruction(alice.PublicKey(), solana.NewWallet().PublicKey(), 1)))

	status, body := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `escrowd_transactions_total{result="tesSUCCESS"} 1`)
}

func TestServe_GracefulShutdown(t *testing.T) {
	env := jtx.NewTestEnv(t)
	s := server.New(env.Engine(), env.Ledger(), serverConfig(false), server.Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
