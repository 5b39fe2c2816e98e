package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrow/internal/crypto/keypair"
)

var keygenForce bool

var keygenCmd = &cobra.Command{
	Use:   "keygen [path]",
	Short: "Generate a signing keypair",
	Long:  `Write a new ed25519 keypair to path (default: the --keypair file) and print its address.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := keypairPath
		if len(args) > 0 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !keygenForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		key, err := keypair.Generate()
		if err != nil {
			return err
		}
		if err := keypair.Save(path, key); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key.PublicKey())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().BoolVarP(&keygenForce, "force", "f", false, "overwrite an existing file")
}
