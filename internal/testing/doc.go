// Package testing provides test infrastructure for program and escrow
// testing.
//
// # Overview
//
// The testing package provides:
//   - TestEnv: an engine over a fresh ledger with genesis accounts
//   - Account: deterministic named keypairs
//   - Token helpers: mints, token accounts and balances
//   - Assertions: result and balance checks
//
// # Basic Usage
//
//	func TestTransfer(t *testing.T) {
//	    env := testing.NewTestEnv(t)
//	    alice := env.Account("alice")
//	    bob := env.Account("bob")
//	    env.Fund(alice, bob)
//
//	    result := env.Submit(system.NewTransferInstruction(alice.PublicKey(), bob.PublicKey(), 100))
//	    testing.RequireTxSuccess(t, result)
//	}
//
// Submit signs with every known account the message requires.
// SubmitSignedBy signs with exactly the accounts given, which lets tests
// drop or substitute signatures.
//
// # Tokens
//
//	mintA := env.CreateMint(alice, 0)
//	aliceA := env.CreateTokenAccount(alice, mintA)
//	env.MintTo(mintA, alice, aliceA, 1_000)
//	env.TokenBalance(aliceA) // 1000
package testing
