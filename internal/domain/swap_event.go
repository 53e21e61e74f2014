package domain

// SwapEvent is a swap as returned by the upstream indexer.
// Quantities are kept as the decimal text the indexer sent.
type SwapEvent struct {
	ID           string  // upstream swap id
	TxHash       string  // transaction.id
	Timestamp    int64   // Unix timestamp in seconds
	Sender       string  // sender address
	To           string  // recipient address
	AmountUSD    string  // USD volume
	Amount0In    string  // token0 in
	Amount0Out   string  // token0 out
	Amount1In    string  // token1 in
	Amount1Out   string  // token1 out
	Token0Symbol *string // nil when the indexer omitted token0.symbol
	Token1Symbol *string // nil when the indexer omitted token1.symbol
}
