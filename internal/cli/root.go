package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrow/internal/config"
)

var (
	// Global flags
	configFile  string
	nodeURL     string
	keypairPath string
	debug       bool
	quiet       bool

	// cfg is loaded before any command runs
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "escrowd",
	Short: "escrowd - token swap escrow node",
	Long: `escrowd runs a single-node ledger hosting the escrow program, which lets a
maker lock one token in a program-controlled vault until a taker pays the
requested amount of another, or the maker cancels.

The same binary is the client: token and escrow commands build, sign and
submit transactions to a running node.`,
	Version:           "0.1.0-dev",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().StringVar(&nodeURL, "node", "", "node API url (default: http://<server.address>)")
	rootCmd.PersistentFlags().StringVarP(&keypairPath, "keypair", "k", "id.json", "signing keypair file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// loadConfig reads the configuration and applies its log settings.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	cfg = c
	return setupLogging(cfg.Log)
}

func setupLogging(lc config.LogConfig) error {
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch {
	case debug:
		level = logrus.DebugLevel
	case quiet:
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(lc.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stderr)
	return nil
}

// nodeAddress is the API base url commands talk to.
func nodeAddress() string {
	if nodeURL != "" {
		return nodeURL
	}
	return "http://" + cfg.Server.Address
}
