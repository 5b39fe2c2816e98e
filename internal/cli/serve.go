package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrow/internal/di"
)

var (
	// Serve flags
	serveAddress string
	serveFaucet  bool
	serveMemory  bool
)

// serveCmd runs the node
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the escrowd node",
	Long: `Open the ledger, apply submitted transactions and serve the node API:
- POST /v1/transactions        submit a signed transaction
- GET  /v1/accounts/{address}  account with decoded token/escrow state
- GET  /v1/escrows[/{id}]      open offers
- POST /v1/airdrop             faucet, when enabled
- GET  /health, /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (overrides server.address)")
	serveCmd.Flags().BoolVar(&serveFaucet, "faucet", false, "enable the airdrop endpoint")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep the ledger in memory")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddress != "" {
		cfg.Server.Address = serveAddress
	}
	if serveFaucet {
		cfg.Server.Faucet = true
	}
	if serveMemory {
		cfg.Ledger.Backend = "memory"
	}

	container := di.New()
	provider := di.NewProvider(container, cfg)
	if err := provider.RegisterAll(); err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logrus.WithError(err).Error("failed to close services")
		}
	}()

	srv, err := provider.Server()
	if err != nil {
		return err
	}
	l, err := provider.Ledger()
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"module":   "cli",
		"backend":  cfg.Ledger.Backend,
		"sequence": l.Sequence(),
		"faucet":   cfg.Server.Faucet,
		"journal":  cfg.Journal.Enabled,
	}).Info("starting escrowd")

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
