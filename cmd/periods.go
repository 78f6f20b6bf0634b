package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/ui"
)

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "List the accepted time periods",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), ui.PeriodsTable())
		return nil
	},
}

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported chains (* marks the default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), ui.ChainsTable(chain.NewRegistry().All(), cfg.Chain))
		return nil
	},
}
