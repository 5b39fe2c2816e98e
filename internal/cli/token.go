package cli

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrow/internal/client"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/token"
	"github.com/LeJamon/goEscrow/internal/crypto/keypair"
)

var (
	// Token flags
	mintDecimals uint8
	accountOwner string
)

// tokenCmd groups the token program commands
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Token program commands",
}

var createMintCmd = &cobra.Command{
	Use:   "create-mint",
	Short: "Create a mint with the --keypair key as mint authority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payer, err := signer()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		rent, err := nodeRent(cmd, c)
		if err != nil {
			return err
		}
		mint, err := keypair.Generate()
		if err != nil {
			return err
		}
		ixs := token.CreateMintInstructions(rent, payer.PublicKey(), mint.PublicKey(), payer.PublicKey(), mintDecimals)
		if _, err := submit(cmd, c, ixs, payer, mint); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "mint: %s\n", mint.PublicKey())
		return nil
	},
}

var createAccountCmd = &cobra.Command{
	Use:   "create-account <mint>",
	Short: "Create a token account holding mint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := parseKey("mint", args[0])
		if err != nil {
			return err
		}
		payer, err := signer()
		if err != nil {
			return err
		}
		owner := payer.PublicKey()
		if accountOwner != "" {
			if owner, err = parseKey("owner", accountOwner); err != nil {
				return err
			}
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		rent, err := nodeRent(cmd, c)
		if err != nil {
			return err
		}
		acct, err := keypair.Generate()
		if err != nil {
			return err
		}
		ixs := token.CreateAccountInstructions(rent, payer.PublicKey(), acct.PublicKey(), mint, owner)
		if _, err := submit(cmd, c, ixs, payer, acct); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token account: %s\n", acct.PublicKey())
		return nil
	},
}

var mintToCmd = &cobra.Command{
	Use:   "mint-to <mint> <destination> <amount>",
	Short: "Issue tokens; the --keypair key must be the mint authority",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := parseKey("mint", args[0])
		if err != nil {
			return err
		}
		dest, err := parseKey("destination", args[1])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[2], err)
		}
		authority, err := signer()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		_, err = submit(cmd, c, []tx.Instruction{token.NewMintToInstruction(mint, dest, authority.PublicKey(), amount)}, authority)
		return err
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <token-account>",
	Short: "Show a token account balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey("token account", args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		acct, err := c.Account(commandContext(cmd), key)
		if err != nil {
			return err
		}
		if acct.TokenAccount == nil {
			return fmt.Errorf("%s is not a token account", key)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", acct.TokenAccount.Amount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(createMintCmd, createAccountCmd, mintToCmd, balanceCmd)

	createMintCmd.Flags().Uint8Var(&mintDecimals, "decimals", 9, "mint decimals")
	createAccountCmd.Flags().StringVar(&accountOwner, "owner", "", "account owner (default: the --keypair address)")
}

// nodeRent reads the rent parameters the node published at genesis.
func nodeRent(cmd *cobra.Command, c *client.Client) (tx.Rent, error) {
	acct, err := c.Account(commandContext(cmd), solana.SysVarRentPubkey)
	if err != nil {
		return tx.Rent{}, fmt.Errorf("read rent sysvar: %w", err)
	}
	return tx.UnmarshalRent(acct.Data)
}
