package cli

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrow/internal/config"
	"github.com/LeJamon/goEscrow/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrow/internal/server"
	jtx "github.com/LeJamon/goEscrow/internal/testing"
)

func startNode(t *testing.T) *jtx.TestEnv {
	t.Helper()
	env := jtx.NewTestEnv(t)
	s := server.New(env.Engine(), env.Ledger(), config.ServerConfig{
		ShutdownTimeout:   time.Second,
		Faucet:            true,
		FaucetMaxLamports: jtx.DefaultFunding,
	}, server.Options{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	nodeURL = ts.URL
	t.Cleanup(func() { nodeURL = "" })
	return env
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

// field returns the value printed after "label: " on the last matching line.
func field(t *testing.T, out, label string) solana.PublicKey {
	t.Helper()
	var value string
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, label+": "); ok {
			value = strings.TrimSpace(v)
		}
	}
	require.NotEmpty(t, value, "no %q in output:\n%s", label, out)
	key, err := solana.PublicKeyFromBase58(value)
	require.NoError(t, err)
	return key
}

func keygen(t *testing.T, dir, name string) (string, solana.PublicKey) {
	t.Helper()
	path := filepath.Join(dir, name+".json")
	out := mustRun(t, "keygen", path)
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(out))
	require.NoError(t, err)
	return path, key
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	assert.Contains(t, out, "escrowd version")
	assert.Contains(t, out, escrow.ProgramID.String())
}

func TestKeygen_RefusesOverwrite(t *testing.T) {
	path, _ := keygen(t, t.TempDir(), "id")
	_, err := run(t, "keygen", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestSwapThroughCLI(t *testing.T) {
	env := startNode(t)
	dir := t.TempDir()
	makerKey, makerAddr := keygen(t, dir, "maker")
	takerKey, takerAddr := keygen(t, dir, "taker")

	mustRun(t, "fund", makerAddr.String(), "5000000000")
	mustRun(t, "fund", "--keypair", takerKey, "5000000000")
	jtx.RequireBalance(t, env, takerAddr, 5_000_000_000)

	// Each side issues its own mint.
	mintA := field(t, mustRun(t, "token", "create-mint", "--keypair", makerKey, "--decimals", "0"), "mint")
	mintB := field(t, mustRun(t, "token", "create-mint", "--keypair", takerKey, "--decimals", "0"), "mint")

	makerA := field(t, mustRun(t, "token", "create-account", "--keypair", makerKey, mintA.String()), "token account")
	makerB := field(t, mustRun(t, "token", "create-account", "--keypair", makerKey, mintB.String()), "token account")
	takerA := field(t, mustRun(t, "token", "create-account", "--keypair", takerKey, mintA.String()), "token account")
	takerB := field(t, mustRun(t, "token", "create-account", "--keypair", takerKey, mintB.String()), "token account")

	mustRun(t, "token", "mint-to", "--keypair", makerKey, mintA.String(), makerA.String(), "1000")
	mustRun(t, "token", "mint-to", "--keypair", takerKey, mintB.String(), takerB.String(), "200")
	assert.Equal(t, "1000", strings.TrimSpace(mustRun(t, "token", "balance", makerA.String())))

	mustRun(t, "escrow", "initialize", "--keypair", makerKey,
		"--id", "5", "--amount-a", "100", "--amount-b", "200",
		"--mint-a", mintA.String(), "--mint-b", mintB.String(),
		"--source", makerA.String(), "--receive", makerB.String())

	out := mustRun(t, "escrow", "show", "5")
	assert.Contains(t, out, makerAddr.String())
	out = mustRun(t, "escrow", "list", "--maker", makerAddr.String())
	assert.Contains(t, out, `"id": 5`)

	mustRun(t, "escrow", "exchange", "--keypair", takerKey, "--id", "5",
		"--source", takerB.String(), "--destination", takerA.String())

	jtx.RequireTokenBalance(t, env, takerA, 100)
	jtx.RequireTokenBalance(t, env, makerB, 200)
	assert.Nil(t, env.Escrow(5))

	_, err := run(t, "escrow", "show", "5")
	assert.Error(t, err)
}

func TestCancelThroughCLI(t *testing.T) {
	env := startNode(t)
	dir := t.TempDir()
	makerKey, makerAddr := keygen(t, dir, "maker")
	mustRun(t, "fund", makerAddr.String(), "5000000000")

	mintA := field(t, mustRun(t, "token", "create-mint", "--keypair", makerKey), "mint")
	mintB := field(t, mustRun(t, "token", "create-mint", "--keypair", makerKey), "mint")
	makerA := field(t, mustRun(t, "token", "create-account", "--keypair", makerKey, mintA.String()), "token account")
	makerB := field(t, mustRun(t, "token", "create-account", "--keypair", makerKey, mintB.String()), "token account")
	mustRun(t, "token", "mint-to", "--keypair", makerKey, mintA.String(), makerA.String(), "100")

	mustRun(t, "escrow", "initialize", "--keypair", makerKey,
		"--id", "1", "--amount-a", "100", "--amount-b", "1",
		"--mint-a", mintA.String(), "--mint-b", mintB.String(),
		"--source", makerA.String(), "--receive", makerB.String())
	jtx.RequireTokenBalance(t, env, makerA, 0)

	mustRun(t, "escrow", "cancel", "--keypair", makerKey, "--id", "1", "--destination", makerA.String())
	jtx.RequireTokenBalance(t, env, makerA, 100)

	// The offer is gone; a second cancel is rejected by the node.
	_, err := run(t, "escrow", "cancel", "--keypair", makerKey, "--id", "1", "--destination", makerA.String())
	assert.ErrorIs(t, err, ErrTransactionRejected)
}
