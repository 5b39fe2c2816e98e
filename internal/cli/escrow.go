package cli

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/core/tx/escrow"
)

var (
	// Escrow flags
	escrowID      uint64
	escrowAmountA uint64
	escrowAmountB uint64
	escrowMintA   string
	escrowMintB   string
	escrowSource  string
	escrowReceive string
	escrowDest    string
	escrowMaker   string
)

// escrowCmd groups the escrow program commands
var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Escrow program commands",
}

var initializeCmd = &cobra.Command{
	Use:   "initialize",
	Short: "Open an offer: lock amount A of mint A until someone pays amount B of mint B",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := parseKeys(map[string]string{
			"mint-a":  escrowMintA,
			"mint-b":  escrowMintB,
			"source":  escrowSource,
			"receive": escrowReceive,
		})
		if err != nil {
			return err
		}
		maker, err := signer()
		if err != nil {
			return err
		}
		ix, err := escrow.NewInitializeInstruction(&escrow.InitializeInstructionAccounts{
			Maker:         maker.PublicKey(),
			MakerSourceA:  keys["source"],
			MakerReceiveB: keys["receive"],
			MintA:         keys["mint-a"],
			MintB:         keys["mint-b"],
		}, &escrow.InitializeInstructionArgs{ID: escrowID, AmountA: escrowAmountA, AmountB: escrowAmountB})
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		_, err = submit(cmd, c, []tx.Instruction{ix}, maker)
		return err
	},
}

var exchangeCmd = &cobra.Command{
	Use:   "exchange",
	Short: "Fill an offer, paying amount B from --source and receiving amount A at --destination",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := parseKeys(map[string]string{"source": escrowSource, "destination": escrowDest})
		if err != nil {
			return err
		}
		taker, err := signer()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		view, err := c.Escrow(commandContext(cmd), escrowID)
		if err != nil {
			return err
		}
		accounts := escrow.ExchangeAccountsFor(view.Record(), taker.PublicKey(), keys["source"], keys["destination"])
		ix, err := escrow.NewExchangeInstruction(accounts)
		if err != nil {
			return err
		}
		_, err = submit(cmd, c, []tx.Instruction{ix}, taker)
		return err
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Withdraw an offer, returning amount A to --destination",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := parseKeys(map[string]string{"destination": escrowDest})
		if err != nil {
			return err
		}
		maker, err := signer()
		if err != nil {
			return err
		}
		ix, err := escrow.NewCancelInstruction(&escrow.CancelInstructionAccounts{
			ID:                escrowID,
			Maker:             maker.PublicKey(),
			MakerDestinationA: keys["destination"],
		})
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		_, err = submit(cmd, c, []tx.Instruction{ix}, maker)
		return err
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an open offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		view, err := c.Escrow(commandContext(cmd), id)
		if err != nil {
			return err
		}
		return printJSON(cmd, view)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var maker *solana.PublicKey
		if escrowMaker != "" {
			key, err := parseKey("maker", escrowMaker)
			if err != nil {
				return err
			}
			maker = &key
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		views, err := c.Escrows(commandContext(cmd), maker)
		if err != nil {
			return err
		}
		return printJSON(cmd, views)
	},
}

func init() {
	rootCmd.AddCommand(escrowCmd)
	escrowCmd.AddCommand(initializeCmd, exchangeCmd, cancelCmd, showCmd, listCmd)

	for _, c := range []*cobra.Command{initializeCmd, exchangeCmd, cancelCmd} {
		c.Flags().Uint64Var(&escrowID, "id", 0, "offer id")
	}

	initializeCmd.Flags().Uint64Var(&escrowAmountA, "amount-a", 0, "amount of mint A to lock")
	initializeCmd.Flags().Uint64Var(&escrowAmountB, "amount-b", 0, "amount of mint B requested")
	initializeCmd.Flags().StringVar(&escrowMintA, "mint-a", "", "mint being offered")
	initializeCmd.Flags().StringVar(&escrowMintB, "mint-b", "", "mint requested")
	initializeCmd.Flags().StringVar(&escrowSource, "source", "", "maker token account holding mint A")
	initializeCmd.Flags().StringVar(&escrowReceive, "receive", "", "maker token account that receives mint B")

	exchangeCmd.Flags().StringVar(&escrowSource, "source", "", "taker token account holding mint B")
	exchangeCmd.Flags().StringVar(&escrowDest, "destination", "", "taker token account that receives mint A")

	cancelCmd.Flags().StringVar(&escrowDest, "destination", "", "maker token account that receives mint A back")

	listCmd.Flags().StringVar(&escrowMaker, "maker", "", "only offers made by this address")
}

// parseKeys decodes named base58 flag values; every value is required.
func parseKeys(values map[string]string) (map[string]solana.PublicKey, error) {
	out := make(map[string]solana.PublicKey, len(values))
	for name, v := range values {
		if v == "" {
			return nil, fmt.Errorf("--%s is required", name)
		}
		key, err := parseKey(name, v)
		if err != nil {
			return nil, err
		}
		out[name] = key
	}
	return out, nil
}
