package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3gas/internal/address"
	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/gas"
	"github.com/Mohsinsiddi/w3gas/internal/period"
)

// ReportBlock renders a calculation report as a bordered key/value block.
func ReportBlock(r *gas.Report) string {
	if r == nil {
		return ""
	}
	display := r.Address
	if cs, err := address.Checksum(r.Address); err == nil {
		display = cs
	}

	blocks := fmt.Sprintf("%d → %d", r.StartBlock, r.EndBlock)
	if r.Period == period.AllTime {
		blocks = fmt.Sprintf("genesis → %d", r.EndBlock)
	}

	pairs := [][2]string{
		{"Address", display},
		{"Chain", r.Chain},
		{"Period", r.Period},
		{"Blocks", blocks},
		{"Gas used", groupDigits(r.GasUsed)},
		{"Transactions", fmt.Sprintf("%d sent, %d failed", r.TxCount, r.FailedTxs)},
		{"Fee", strings.TrimSpace(r.FeeNative + " " + r.Symbol)},
	}
	if r.FeeFiat != nil {
		pairs = append(pairs, [2]string{"Fee (" + strings.ToUpper(r.Currency) + ")", strconv.FormatFloat(*r.FeeFiat, 'f', 2, 64)})
	}
	source := "explorer"
	if r.Cached {
		source = "cache"
	}
	pairs = append(pairs, [2]string{"Calculated", r.At.Format(time.RFC3339) + " (" + source + ")"})

	var sb strings.Builder
	sb.WriteString(KeyValueBlock("⛽ Gas report", pairs))
	sb.WriteString("\n")
	if r.Truncated {
		sb.WriteString(Warn("transaction list was truncated; gas used is a lower bound") + "\n")
	}
	for _, w := range r.Warnings {
		sb.WriteString(Warn(w) + "\n")
	}
	return sb.String()
}

// PeriodsTable lists the accepted period names with their window length.
func PeriodsTable() string {
	t := NewTable([]Column{
		{Title: "PERIOD", Width: 14},
		{Title: "SECONDS", Width: 10, Right: true},
		{Title: "WINDOW", Width: 10, Right: true},
	})
	for _, p := range period.All() {
		t.AddRow(Row{p.Name, strconv.FormatInt(p.Seconds, 10), humanDays(p.Duration())})
	}
	t.AddRow(Row{period.AllTime, "-", "genesis"})
	return t.Render()
}

// ChainsTable lists the supported chains.
func ChainsTable(chains []chain.Chain, defaultChain string) string {
	t := NewTable([]Column{
		{Title: "CHAIN", Width: 12},
		{Title: "NAME", Width: 18},
		{Title: "ID", Width: 8, Right: true},
		{Title: "SYMBOL", Width: 6},
	})
	for _, c := range chains {
		name := c.Name
		if c.Name == defaultChain {
			name += " *"
		}
		t.AddRow(Row{name, c.DisplayName, strconv.FormatInt(c.ChainID, 10), c.NativeCurrency})
	}
	return t.Render()
}

func humanDays(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// groupDigits renders n with thousands separators.
func groupDigits(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}
