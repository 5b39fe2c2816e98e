package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrow/internal/api"
	"github.com/LeJamon/goEscrow/internal/client"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/crypto/keypair"
)

// ErrTransactionRejected is returned when the node applies nothing.
var ErrTransactionRejected = errors.New("transaction rejected")

func newClient() (*client.Client, error) {
	return client.New(nodeAddress())
}

// signer loads the --keypair key.
func signer() (solana.PrivateKey, error) {
	return keypair.Load(keypairPath)
}

func parseKey(name, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return key, nil
}

// submit signs ixs with signers, sends them and prints the node's answer.
// The nonce is the wall clock so repeated commands hash differently.
func submit(cmd *cobra.Command, c *client.Client, ixs []tx.Instruction, signers ...solana.PrivateKey) (*api.SubmitResponse, error) {
	txn := tx.NewTransaction(uint64(time.Now().UnixNano()), ixs...)
	if err := txn.Sign(signers...); err != nil {
		return nil, err
	}
	res, err := c.Submit(commandContext(cmd), txn)
	if err != nil {
		return nil, err
	}
	if err := printJSON(cmd, res); err != nil {
		return nil, err
	}
	if !res.Applied {
		return res, fmt.Errorf("%w: %s %s", ErrTransactionRejected, res.Result, res.Message)
	}
	return res, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
