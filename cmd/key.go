package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3gas/internal/secrets"
	"github.com/Mohsinsiddi/w3gas/internal/ui"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the explorer API key in the OS keychain",
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store the explorer API key (reads stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading API key: %w", err)
			}
			key = line
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("API key is empty")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Set(secrets.APIKeyName, key); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("API key stored ("+secrets.Mask(key)+")"))
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which API key is in effect, masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		resolveAPIKey()
		if cfg.APIKey == "" {
			fmt.Fprintln(out, ui.Warn("no API key configured"))
			fmt.Fprintln(out, ui.Hint("w3gas key set   or   export APIKEY=..."))
			return nil
		}
		fmt.Fprintln(out, ui.KeyValueBlock("", [][2]string{
			{"Key", secrets.Mask(cfg.APIKey)},
			{"Source", cfg.APIKeySource},
		}))
		if cfg.APIKeySource == "env" {
			fmt.Fprintln(out, ui.Info("APIKEY from the environment takes precedence over the keychain"))
		}
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Delete(secrets.APIKeyName); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("API key removed"))
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyShowCmd, keyDeleteCmd)
}
