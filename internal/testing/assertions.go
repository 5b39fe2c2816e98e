package testing

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/LeJamon/goEscrow/internal/core/tx"
)

// RequireTxSuccess fails the test unless result applied with tesSUCCESS.
func RequireTxSuccess(t testing.TB, result tx.ApplyResult) {
	t.Helper()
	if result.Result != tx.TesSUCCESS || !result.Applied {
		t.Fatalf("Expected tesSUCCESS, got %s (%s) at instruction %d\nlogs: %v",
			result.Result, result.Message, result.FailedInstruction, result.Logs)
	}
}

// RequireTxFail fails the test unless result was rejected with want.
func RequireTxFail(t testing.TB, result tx.ApplyResult, want tx.Result) {
	t.Helper()
	if result.Applied {
		t.Fatalf("Expected %s, transaction was applied", want)
	}
	if result.Result != want {
		t.Fatalf("Expected %s, got %s (%s)\nlogs: %v", want, result.Result, result.Message, result.Logs)
	}
}

// RequireTokenBalance checks the token amount held at key.
func RequireTokenBalance(t testing.TB, env *TestEnv, key solana.PublicKey, want uint64) {
	t.Helper()
	if got := env.TokenBalance(key); got != want {
		t.Fatalf("Token balance of %s: expected %d, got %d", key, want, got)
	}
}

// RequireBalance checks the lamports held at key.
func RequireBalance(t testing.TB, env *TestEnv, key solana.PublicKey, want uint64) {
	t.Helper()
	if got := env.Balance(key); got != want {
		t.Fatalf("Balance of %s: expected %d, got %d", key, want, got)
	}
}

// RequireAccountAbsent fails if key holds an account.
func RequireAccountAbsent(t testing.TB, env *TestEnv, key solana.PublicKey) {
	t.Helper()
	if env.Exists(key) {
		t.Fatalf("Expected %s to be absent", key)
	}
}
