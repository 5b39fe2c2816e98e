package system_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/system"
	jtx "github.com/LeJamon/goEscrow/internal/testing"
)

func TestCreateAccount(t *testing.T) {
	env := jtx.NewTestEnv(t)
	payer := env.Account("payer")
	target := env.Account("target")
	owner := solana.NewWallet().PublicKey()
	env.Fund(payer)

	lamports := env.Rent().MinimumBalance(64)
	res := env.Submit(system.NewCreateAccountInstruction(payer.PublicKey(), target.PublicKey(), lamports, 64, owner))
	jtx.RequireTxSuccess(t, res)

	acct := env.Read(target.PublicKey())
	require.NotNil(t, acct)
	assert.Equal(t, owner, acct.Owner)
	assert.Len(t, acct.Data, 64)
	assert.Equal(t, lamports, acct.Lamports)
	jtx.RequireBalance(t, env, payer.PublicKey(), jtx.DefaultFunding-lamports)
}

func TestCreateAccount_Rejections(t *testing.T) {
	t.Run("address in use", func(t *testing.T) {
		env := jtx.NewTestEnv(t)
		payer := env.Account("payer")
		target := env.Account("target")
		env.Fund(payer, target)

		lamports := env.Rent().MinimumBalance(0)
		res := env.Submit(system.NewCreateAccountInstruction(payer.PublicKey(), target.PublicKey(), lamports, 0, solana.SystemProgramID))
		jtx.RequireTxFail(t, res, tx.TecACCOUNT_IN_USE)
	})

	t.Run("below rent exemption", func(t *testing.T) {
		env := jtx.NewTestEnv(t)
		payer := env.Account("payer")
		target := env.Account("target")
		env.Fund(payer)

		res := env.Submit(system.NewCreateAccountInstruction(payer.PublicKey(), target.PublicKey(), 1, 64, solana.SystemProgramID))
		jtx.RequireTxFail(t, res, tx.TecNOT_RENT_EXEMPT)
		jtx.RequireAccountAbsent(t, env, target.PublicKey())
	})

	t.Run("payer short of lamports", func(t *testing.T) {
		env := jtx.NewTestEnv(t)
		payer := env.Account("payer")
		target := env.Account("target")
		env.FundAmount(payer, 10)

		res := env.Submit(system.NewCreateAccountInstruction(payer.PublicKey(), target.PublicKey(), env.Rent().MinimumBalance(64), 64, solana.SystemProgramID))
		jtx.RequireTxFail(t, res, tx.TecINSUFFICIENT_LAMPORTS)
		jtx.RequireBalance(t, env, payer.PublicKey(), 10)
	})

	t.Run("new account did not sign", func(t *testing.T) {
		env := jtx.NewTestEnv(t)
		payer := env.Account("payer")
		env.Fund(payer)
		target := solana.NewWallet().PublicKey()

		res := env.SubmitSignedBy([]*jtx.Account{payer},
			system.NewCreateAccountInstruction(payer.PublicKey(), target, env.Rent().MinimumBalance(0), 0, solana.SystemProgramID))
		jtx.RequireTxFail(t, res, tx.TefMISSING_SIGNER)
	})
}

func TestTransfer(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := env.Account("alice")
	bob := env.Account("bob")
	env.Fund(alice)

	jtx.RequireTxSuccess(t, env.Submit(system.NewTransferInstruction(alice.PublicKey(), bob.PublicKey(), 5_000)))
	jtx.RequireBalance(t, env, alice.PublicKey(), jtx.DefaultFunding-5_000)
	jtx.RequireBalance(t, env, bob.PublicKey(), 5_000)

	res := env.Submit(system.NewTransferInstruction(bob.PublicKey(), alice.PublicKey(), 5_001))
	jtx.RequireTxFail(t, res, tx.TecINSUFFICIENT_LAMPORTS)

	// A self transfer leaves the balance alone.
	jtx.RequireTxSuccess(t, env.Submit(system.NewTransferInstruction(bob.PublicKey(), bob.PublicKey(), 1_000)))
	jtx.RequireBalance(t, env, bob.PublicKey(), 5_000)
}

func TestAssign(t *testing.T) {
	env := jtx.NewTestEnv(t)
	acct := env.Account("acct")
	env.Fund(acct)
	owner := solana.NewWallet().PublicKey()

	jtx.RequireTxSuccess(t, env.Submit(system.NewAssignInstruction(acct.PublicKey(), owner)))
	assert.Equal(t, owner, env.Read(acct.PublicKey()).Owner)
}

func TestInstructionName(t *testing.T) {
	p := system.Program{}
	assert.Equal(t, "system", p.Name())
	ix := system.NewTransferInstruction(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1)
	assert.Equal(t, "transfer", p.InstructionName(ix.Data))
}
