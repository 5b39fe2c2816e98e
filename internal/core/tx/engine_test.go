package tx

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
)

type engineFixture struct {
	ledger *memLedger
	engine *Engine
	payer  solana.PrivateKey
	owned  solana.PublicKey
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	owned := solana.NewWallet().PublicKey()

	l := newMemLedger()
	for k, acct := range GenesisAccounts(DefaultRent()) {
		l.put(k, acct)
	}
	l.put(payer.PublicKey(), entry.NewSystemAccount(1_000_000))
	l.put(owned, &entry.Account{Lamports: 5_000, Owner: testProgramID})
	return &engineFixture{
		ledger: l,
		engine: NewEngine(l, EngineConfig{}),
		payer:  payer,
		owned:  owned,
	}
}

func (f *engineFixture) submit(t *testing.T, ixs ...Instruction) ApplyResult {
	t.Helper()
	txn := NewTransaction(1, ixs...)
	var signers []solana.PrivateKey
	for _, k := range txn.Message.Signers() {
		if k == f.payer.PublicKey() {
			signers = append(signers, f.payer)
		}
	}
	require.NoError(t, txn.Sign(signers...))
	return f.engine.Submit(context.Background(), txn)
}

func testIx(data []byte, metas ...*solana.AccountMeta) Instruction {
	return Instruction{ProgramID: testProgramID, Accounts: metas, Data: data}
}

func TestEngine_AppliesAndCommits(t *testing.T) {
	f := newEngineFixture(t)

	res := f.submit(t, testIx([]byte{opWrite, 1, 2, 3}, solana.Meta(f.owned).WRITE()))
	require.Equal(t, TesSUCCESS, res.Result, res.Message)
	assert.True(t, res.Applied)
	assert.Equal(t, uint64(1), res.Sequence)
	assert.Equal(t, -1, res.FailedInstruction)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, []string{"test.write"}, res.Metadata.Instructions)
	assert.Equal(t, []solana.PublicKey{f.owned}, res.Metadata.AffectedAccounts())

	acct, err := f.ledger.Read(f.owned)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, acct.Data)
	assert.NotEmpty(t, res.Logs)
}

func TestEngine_FailureDiscardsEarlierInstructions(t *testing.T) {
	f := newEngineFixture(t)

	res := f.submit(t,
		testIx([]byte{opWrite, 9}, solana.Meta(f.owned).WRITE()),
		testIx([]byte{opFail}),
	)
	assert.Equal(t, testFailure, res.Result)
	assert.Equal(t, "testFailure", res.Result.String())
	assert.True(t, res.Result.IsCustom())
	assert.False(t, res.Applied)
	assert.Equal(t, 1, res.FailedInstruction)

	acct, err := f.ledger.Read(f.owned)
	require.NoError(t, err)
	assert.Empty(t, acct.Data)
	assert.Zero(t, f.ledger.seq)
}

func TestEngine_RejectsReplay(t *testing.T) {
	f := newEngineFixture(t)
	txn := NewTransaction(7, testIx(moveData(10),
		solana.Meta(f.owned).WRITE(),
		solana.Meta(f.payer.PublicKey()).WRITE(),
	))

	first := f.engine.Submit(context.Background(), txn)
	require.Equal(t, TesSUCCESS, first.Result, first.Message)

	again := f.engine.Submit(context.Background(), txn)
	assert.Equal(t, TefALREADY_PROCESSED, again.Result)
	assert.False(t, again.Applied)
	assert.Equal(t, first.Hash, again.Hash)
	assert.Equal(t, uint64(1), f.ledger.seq)

	acct, err := f.ledger.Read(f.payer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_010), acct.Lamports)

	t.Run("rejected transactions may be retried", func(t *testing.T) {
		f := newEngineFixture(t)
		failing := NewTransaction(8, testIx([]byte{opFail}))
		assert.Equal(t, testFailure, f.engine.Submit(context.Background(), failing).Result)
		assert.Equal(t, testFailure, f.engine.Submit(context.Background(), failing).Result)
		done, err := f.ledger.Processed(mustHash(t, failing))
		require.NoError(t, err)
		assert.False(t, done)
	})
}

func mustHash(t *testing.T, txn *Transaction) Hash {
	t.Helper()
	h, err := txn.Hash()
	require.NoError(t, err)
	return h
}

func TestEngine_HostRules(t *testing.T) {
	t.Run("readonly account modified", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx([]byte{opWrite, 1}, solana.Meta(f.owned)))
		assert.Equal(t, TefREADONLY_MODIFIED, res.Result)
	})

	t.Run("debit of foreign account", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx(moveData(10),
			solana.Meta(f.payer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(f.owned).WRITE(),
		))
		assert.Equal(t, TefEXTERNAL_ACCOUNT_MODIFIED, res.Result)
	})

	t.Run("credit of foreign account is allowed", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx(moveData(10),
			solana.Meta(f.owned).WRITE(),
			solana.Meta(f.payer.PublicKey()).WRITE(),
		))
		require.Equal(t, TesSUCCESS, res.Result, res.Message)
		acct, err := f.ledger.Read(f.payer.PublicKey())
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_010), acct.Lamports)
	})

	t.Run("lamports created from nothing", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx([]byte{opMint}, solana.Meta(f.owned).WRITE()))
		assert.Equal(t, TefUNBALANCED, res.Result)
	})
}

func TestEngine_CrossProgramInvocation(t *testing.T) {
	pda, _, err := solana.FindProgramAddress(testSeeds, testProgramID)
	require.NoError(t, err)

	t.Run("derived signer", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx([]byte{opInvokeSigned}, solana.Meta(pda), solana.Meta(testProgramID)))
		require.Equal(t, TesSUCCESS, res.Result, res.Message)
	})

	t.Run("signer escalation", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx([]byte{opInvokeUnsigned}, solana.Meta(pda), solana.Meta(testProgramID)))
		assert.Equal(t, TefPRIVILEGE_ESCALATION, res.Result)
	})

	t.Run("program not referenced", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx([]byte{opInvokeSigned}, solana.Meta(pda)))
		assert.Equal(t, TefMISSING_ACCOUNT, res.Result)
	})

	t.Run("depth limit", func(t *testing.T) {
		f := newEngineFixture(t)
		res := f.submit(t, testIx([]byte{opRecurse}, solana.Meta(testProgramID)))
		assert.Equal(t, TefCALL_DEPTH, res.Result)
	})
}

func TestEngine_Signatures(t *testing.T) {
	t.Run("missing signature", func(t *testing.T) {
		f := newEngineFixture(t)
		txn := NewTransaction(1, testIx([]byte{opRequireSigner}, solana.Meta(f.payer.PublicKey()).SIGNER()))
		res := f.engine.Submit(context.Background(), txn)
		assert.Equal(t, TefMISSING_SIGNER, res.Result)
	})

	t.Run("signature over different message", func(t *testing.T) {
		f := newEngineFixture(t)
		txn := NewTransaction(1, testIx([]byte{opRequireSigner}, solana.Meta(f.payer.PublicKey()).SIGNER()))
		require.NoError(t, txn.Sign(f.payer))
		txn.Message.Nonce = 2
		res := f.engine.Submit(context.Background(), txn)
		assert.Equal(t, TefBAD_SIGNATURE, res.Result)
	})

	t.Run("unexpected signer", func(t *testing.T) {
		f := newEngineFixture(t)
		other, err := solana.NewRandomPrivateKey()
		require.NoError(t, err)
		txn := NewTransaction(1, testIx([]byte{opRequireSigner}, solana.Meta(f.payer.PublicKey()).SIGNER()))
		require.NoError(t, txn.Sign(f.payer, other))
		res := f.engine.Submit(context.Background(), txn)
		assert.Equal(t, TemMALFORMED, res.Result)
	})

	t.Run("skip verification", func(t *testing.T) {
		l := newMemLedger()
		e := NewEngine(l, EngineConfig{SkipSignatureVerification: true})
		key := solana.NewWallet().PublicKey()
		res := e.Submit(context.Background(), NewTransaction(1, testIx([]byte{opRequireSigner}, solana.Meta(key).SIGNER())))
		assert.Equal(t, TesSUCCESS, res.Result)
	})
}

func TestEngine_Preflight(t *testing.T) {
	f := newEngineFixture(t)

	res := f.engine.Submit(context.Background(), NewTransaction(1))
	assert.Equal(t, TemMALFORMED, res.Result)

	res = f.engine.Submit(context.Background(), NewTransaction(1, Instruction{
		ProgramID: solana.NewWallet().PublicKey(),
	}))
	assert.Equal(t, TemUNKNOWN_PROGRAM, res.Result)
	assert.Equal(t, 0, res.FailedInstruction)

	res = f.engine.Submit(context.Background(), nil)
	assert.Equal(t, TemMALFORMED, res.Result)
}

type recordingObserver struct {
	results []Result
}

func (o *recordingObserver) TransactionApplied(_ context.Context, _ *Transaction, r *ApplyResult, _ time.Duration) {
	o.results = append(o.results, r.Result)
}

func TestEngine_Observers(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(newMemLedger(), EngineConfig{SkipSignatureVerification: true}, obs)

	e.Submit(context.Background(), NewTransaction(1, testIx([]byte{opFail})))
	e.Submit(context.Background(), NewTransaction(2, testIx([]byte{opRequireSigner}, solana.Meta(testProgramID))))

	assert.Equal(t, []Result{testFailure, TefMISSING_SIGNER}, obs.results)
}

func TestEngine_CancelledWhileWaitingForLocks(t *testing.T) {
	f := newEngineFixture(t)
	release, err := f.engine.locks.acquire(context.Background(), []solana.PublicKey{f.owned}, nil)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.engine.Submit(ctx, NewTransaction(1, testIx([]byte{opWrite, 1}, solana.Meta(f.owned).WRITE())))
	assert.Equal(t, TelCANCELLED, res.Result)
}
