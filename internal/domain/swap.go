package domain

// SwapRecord is a normalized swap row.
// Corresponds to swaps table in PostgreSQL.
type SwapRecord struct {
	SeqID        int64    // BIGSERIAL primary key, assigned by storage
	SwapID       string   // upstream swap id, unique natural key
	Pair         string   // pair address (lowercase hex)
	TxHash       string   // transaction hash
	Timestamp    int64    // Unix timestamp in seconds
	Sender       string   // swap sender address
	ToAddress    string   // swap recipient address
	Amount0In    string   // exact decimal text
	Amount0Out   string   // exact decimal text
	Amount1In    string   // exact decimal text
	Amount1Out   string   // exact decimal text
	AmountUSD    string   // exact decimal text
	Token0Symbol string   // token0 symbol or UnknownSymbol
	Token1Symbol string   // token1 symbol or UnknownSymbol
	Type         SwapType // derived from Amount0In and Amount1Out
	CreatedAt    int64    // record creation timestamp (ms), storage-owned
	UpdatedAt    int64    // last upsert timestamp (ms), storage-owned
}

// SwapType is the trade direction of a swap relative to token0.
type SwapType string

// Swap type constants
const (
	SwapTypeBuy  SwapType = "BUY"
	SwapTypeSell SwapType = "SELL"
)

// UnknownSymbol replaces token symbols the indexer did not return.
const UnknownSymbol = "UNKNOWN"

// Valid reports whether t is one of the known swap types.
func (t SwapType) Valid() bool {
	return t == SwapTypeBuy || t == SwapTypeSell
}
