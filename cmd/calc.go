package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3gas/internal/address"
	"github.com/Mohsinsiddi/w3gas/internal/gas"
	"github.com/Mohsinsiddi/w3gas/internal/logger"
	"github.com/Mohsinsiddi/w3gas/internal/metrics"
	"github.com/Mohsinsiddi/w3gas/internal/period"
	"github.com/Mohsinsiddi/w3gas/internal/ui"
)

var (
	calcPeriod   string
	calcChain    string
	calcCurrency string
	calcNoPrice  bool
	calcLive     bool
	calcJSON     bool
)

var calcCmd = &cobra.Command{
	Use:   "calc <address>",
	Short: "Calculate gas used by an address",
	Long: `Sum gasUsed over every transaction <address> sent in the time window.

Periods: Last24Hours, Last7Days, Last30Days, Last3Months, Last6Months,
Last12Months, AllTime. See "w3gas periods".`,
	Example: `  w3gas calc 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  w3gas calc 0xd8dA...6045 --period Last7Days --chain base --currency eur
  w3gas calc 0xd8dA...6045 --period AllTime --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolveAPIKey()
		if err := cfg.Validate(false); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		if !address.IsHex(args[0]) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Warn(args[0]+" does not look like a 20-byte hex address"))
		}

		log := logger.Nop()
		if verbose {
			l, err := logger.New(logger.Config{Level: "debug", Stage: cfg.Stage})
			if err != nil {
				return err
			}
			log = l
			defer func() { _ = log.Sync() }()
		}

		ctx := cmd.Context()
		st, err := newStack(ctx, log, metrics.New(), false)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Warn("closing cache", zap.Error(err))
			}
		}()

		req := gas.Request{Address: args[0], Period: calcPeriod, Chain: calcChain}
		if !calcNoPrice {
			req.Currency = calcCurrency
			if req.Currency == "" {
				req.Currency = cfg.Currency
			}
		}
		run := func(ctx context.Context) (*gas.Report, error) {
			return st.factory.Calculate(ctx, req)
		}

		out := cmd.OutOrStdout()
		switch {
		case calcJSON:
			r, err := run(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(r.Response())

		case calcLive:
			title := fmt.Sprintf("Calculating %s gas for %s", calcPeriod, address.Short(args[0]))
			final, err := tea.NewProgram(ui.NewCalcModel(ctx, title, run), tea.WithOutput(out)).Run()
			if err != nil {
				return err
			}
			return liveResult(final)

		default:
			spin := ui.NewSpinner(os.Stderr, "Querying explorer…")
			spin.Start()
			r, err := run(ctx)
			spin.Stop()
			if err != nil {
				return err
			}
			fmt.Fprint(out, ui.ReportBlock(r))
			return nil
		}
	},
}

// liveResult turns the final live view into the command's error. The view
// has already printed the error (or "cancelled" after a quit), so it is
// not printed again.
func liveResult(final tea.Model) error {
	m, ok := final.(ui.CalcModel)
	if !ok || m.Err == nil {
		return nil
	}
	return reportedError{err: m.Err}
}

func init() {
	calcCmd.Flags().StringVarP(&calcPeriod, "period", "p", period.Last24Hours, "time window")
	calcCmd.Flags().StringVarP(&calcChain, "chain", "c", "", "chain slug (default: configured chain)")
	calcCmd.Flags().StringVar(&calcCurrency, "currency", "", "fiat currency for the fee (default: configured currency)")
	calcCmd.Flags().BoolVar(&calcNoPrice, "no-price", false, "skip the fiat price lookup")
	calcCmd.Flags().BoolVar(&calcLive, "live", false, "interactive progress view")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "print the report as JSON")
	calcCmd.MarkFlagsMutuallyExclusive("live", "json")
}
