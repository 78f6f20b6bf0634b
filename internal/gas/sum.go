package gas

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Mohsinsiddi/w3gas/internal/address"
	"github.com/Mohsinsiddi/w3gas/internal/explorer"
)

// weiDecimals is the number of decimals of every EVM native token.
const weiDecimals = 18

// Totals is the aggregate over the transactions sent by one address.
type Totals struct {
	GasUsed uint64
	TxCount int
	Failed  int
	FeeWei  *big.Int
}

// Sum adds up gasUsed over the transactions whose sender equals addr,
// compared case-insensitively. Transactions from anyone else are ignored.
//
// The fee (gasUsed * gasPrice) is accumulated alongside when gasPrice parses;
// a missing or odd gasPrice only leaves the fee short, it never fails Sum.
func Sum(addr string, txs []explorer.Transaction) (Totals, error) {
	t := Totals{FeeWei: new(big.Int)}
	for _, tx := range txs {
		if !address.Equal(tx.From, addr) {
			continue
		}
		used, err := strconv.ParseUint(strings.TrimSpace(tx.GasUsed), 10, 64)
		if err != nil {
			return Totals{}, fmt.Errorf("%w: %q in tx %s", ErrInvalidGasUsed, tx.GasUsed, tx.Hash)
		}
		t.GasUsed += used
		t.TxCount++
		if tx.Failed() {
			t.Failed++
		}

		if price, ok := new(big.Int).SetString(strings.TrimSpace(tx.GasPrice), 10); ok && price.Sign() >= 0 {
			fee := new(big.Int).SetUint64(used)
			t.FeeWei.Add(t.FeeWei, fee.Mul(fee, price))
		}
	}
	return t, nil
}

// FormatWei renders a wei amount as a decimal token amount without
// trailing zeros.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}
