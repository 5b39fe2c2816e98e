package tx

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLocks(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	t.Run("readers share", func(t *testing.T) {
		l := newAccountLocks()
		r1, err := l.acquire(context.Background(), nil, []solana.PublicKey{a})
		require.NoError(t, err)
		r2, err := l.acquire(context.Background(), nil, []solana.PublicKey{a})
		require.NoError(t, err)
		r1()
		r2()
		assert.Empty(t, l.readers)
	})

	t.Run("writer waits for release", func(t *testing.T) {
		l := newAccountLocks()
		release, err := l.acquire(context.Background(), []solana.PublicKey{a}, nil)
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			r, err := l.acquire(context.Background(), []solana.PublicKey{a, b}, nil)
			if err == nil {
				r()
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("second writer acquired a held lock")
		case <-time.After(20 * time.Millisecond):
		}
		release()
		release() // releasing twice is harmless
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second writer never acquired the lock")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		l := newAccountLocks()
		release, err := l.acquire(context.Background(), nil, []solana.PublicKey{a})
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = l.acquire(ctx, []solana.PublicKey{a}, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLockSets(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	m := &Message{Instructions: []Instruction{
		{ProgramID: testProgramID, Accounts: []*solana.AccountMeta{solana.Meta(a), solana.Meta(b).WRITE()}},
		{ProgramID: testProgramID, Accounts: []*solana.AccountMeta{solana.Meta(a).WRITE()}},
	}}
	writable, readonly := lockSets(m)
	assert.ElementsMatch(t, []solana.PublicKey{a, b}, writable)
	assert.Equal(t, []solana.PublicKey{testProgramID}, readonly)
}
