package explorer

// Transaction is one row of the Etherscan txlist result. Every field is the
// decimal or hex string the explorer returns; nothing is parsed here.
type Transaction struct {
	Hash              string `json:"hash"`
	BlockNumber       string `json:"blockNumber"`
	TimeStamp         string `json:"timeStamp"`
	From              string `json:"from"`
	To                string `json:"to"`
	Value             string `json:"value"`
	Gas               string `json:"gas"`
	GasPrice          string `json:"gasPrice"`
	GasUsed           string `json:"gasUsed"`
	Nonce             string `json:"nonce"`
	IsError           string `json:"isError"`
	TxReceiptStatus   string `json:"txreceipt_status"`
	Input             string `json:"input"`
	ContractAddress   string `json:"contractAddress"`
	MethodID          string `json:"methodId"`
	FunctionName      string `json:"functionName"`
	Confirmations     string `json:"confirmations"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
}

// Failed reports whether the transaction reverted. Reverted transactions
// still consume gas.
func (t Transaction) Failed() bool {
	return t.IsError == "1" || t.TxReceiptStatus == "0"
}

// TxList is the result of a paginated txlist query.
type TxList struct {
	Transactions []Transaction
	Pages        int
	// Truncated is set when the page limit was reached with a full last page,
	// meaning the explorer may hold more rows in the range.
	Truncated bool
}
