package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3gas/internal/config"
	"github.com/Mohsinsiddi/w3gas/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3gas/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfgDir  string
	envFile string
	cfg     *config.Config
	verbose bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3gas",
	Short: "Gas spent by an address over a time window",
	Long: `w3gas — total gas used by the transactions an address sent.

  Looks up the block range for a time window through an Etherscan-compatible
  explorer, pages through the address's transaction list and sums gasUsed
  for every transaction the address sent.

Run it once from the terminal with "w3gas calc <address>", or serve the
same calculation over HTTP with "w3gas serve".

Settings come from ~/.w3gas/config.json, then .env, then the environment
(APIKEY, HOST, PORT, CHAIN, ...), then flags.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), ui.Banner(Version))
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = loadConfig(cfgDir, envFile, os.LookupEnv)
		return err
	},
}

// loadConfig layers defaults, config.json, .env and the environment.
func loadConfig(dir, dotenv string, lookup func(string) (string, bool)) (*config.Config, error) {
	c, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.LoadDotEnv(dotenv); err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return c, nil
}

// reportedError wraps an error the command has already shown the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// printError writes err to w unless it was already shown.
func printError(w io.Writer, err error) {
	var shown reportedError
	if errors.As(err, &shown) {
		return
	}
	fmt.Fprintln(w, ui.Err(err.Error()))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// W3GAS_CONFIG_DIR env var overrides the --config default.
	if envDir := os.Getenv(config.EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3gas)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		calcCmd,
		serveCmd,
		periodsCmd,
		chainsCmd,
		keyCmd,
		configCmd,
	)
}
