package gas

// TruncatedWarning is added to a Response whose transaction list hit the
// page limit.
const TruncatedWarning = "transaction list truncated at the page limit; gas_used is a lower bound"

// Response is the wire form of a Report. POST /calculate and `calc --json`
// both emit it.
type Response struct {
	GasUsed    uint64   `json:"gas_used"`
	TxCount    int      `json:"tx_count"`
	FailedTxs  int      `json:"failed_tx_count"`
	StartBlock uint64   `json:"start_block"`
	EndBlock   uint64   `json:"end_block"`
	TimePeriod string   `json:"time_period"`
	Chain      string   `json:"chain"`
	FeeWei     string   `json:"fee_wei"`
	FeeETH     string   `json:"fee_eth"`
	Symbol     string   `json:"symbol"`
	FeeFiat    *float64 `json:"fee_fiat,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Truncated  bool     `json:"truncated,omitempty"`
	Cached     bool     `json:"cached"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Response converts r to its wire form.
func (r *Report) Response() Response {
	resp := Response{
		GasUsed:    r.GasUsed,
		TxCount:    r.TxCount,
		FailedTxs:  r.FailedTxs,
		StartBlock: r.StartBlock,
		EndBlock:   r.EndBlock,
		TimePeriod: r.Period,
		Chain:      r.Chain,
		FeeWei:     r.FeeWei,
		FeeETH:     r.FeeNative,
		Symbol:     r.Symbol,
		FeeFiat:    r.FeeFiat,
		Currency:   r.Currency,
		Truncated:  r.Truncated,
		Cached:     r.Cached,
		Warnings:   append([]string(nil), r.Warnings...),
	}
	if r.Truncated {
		resp.Warnings = append(resp.Warnings, TruncatedWarning)
	}
	return resp
}
