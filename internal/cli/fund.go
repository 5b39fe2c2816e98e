package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var fundCmd = &cobra.Command{
	Use:   "fund [address] <lamports>",
	Short: "Request lamports from the node faucet",
	Long:  `Credit address (default: the --keypair address) through POST /v1/airdrop. The node must run with the faucet enabled.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amountArg := args[len(args)-1]
		lamports, err := strconv.ParseUint(amountArg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid lamports %q: %w", amountArg, err)
		}

		var address string
		if len(args) == 2 {
			address = args[0]
		} else {
			key, err := signer()
			if err != nil {
				return err
			}
			address = key.PublicKey().String()
		}
		key, err := parseKey("address", address)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		balance, err := c.Airdrop(commandContext(cmd), key, lamports)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s balance: %d lamports\n", key, balance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fundCmd)
}
