package subgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pulsex-swap-sync/internal/domain"
)

// ErrInvalidResponse is returned when a 2xx response does not match the
// expected schema.
var ErrInvalidResponse = errors.New("invalid subgraph response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// GraphQLError is returned when the response carries an errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql error: " + strings.Join(e.Messages, "; ")
}

// SwapsQuery selects one page of swaps for a pair.
type SwapsQuery struct {
	Pair  string
	After int64 // exclusive lower bound on timestamp
	First int   // page size
}

func (q SwapsQuery) variables() map[string]any {
	return map[string]any{
		"pair":  q.Pair,
		"after": strconv.FormatInt(q.After, 10),
		"first": q.First,
	}
}

const swapsQuery = `query Swaps($pair: String!, $after: BigInt!, $first: Int!) {
  swaps(first: $first, orderBy: timestamp, orderDirection: asc, where: { pair: $pair, timestamp_gt: $after }) {
    id
    transaction { id }
    timestamp
    sender
    to
    amountUSD
    amount0In
    amount0Out
    amount1In
    amount1Out
    token0 { symbol }
    token1 { symbol }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type swapsData struct {
	Swaps []rawSwap `json:"swaps"`
}

// rawSwap mirrors the query selection. Pointers distinguish absent fields.
type rawSwap struct {
	ID          *string    `json:"id"`
	Transaction *rawEntity `json:"transaction"`
	Timestamp   *bigInt    `json:"timestamp"`
	Sender      *string    `json:"sender"`
	To          *string    `json:"to"`
	AmountUSD   *string    `json:"amountUSD"`
	Amount0In   *string    `json:"amount0In"`
	Amount0Out  *string    `json:"amount0Out"`
	Amount1In   *string    `json:"amount1In"`
	Amount1Out  *string    `json:"amount1Out"`
	Token0      *rawToken  `json:"token0"`
	Token1      *rawToken  `json:"token1"`
}

type rawEntity struct {
	ID *string `json:"id"`
}

type rawToken struct {
	Symbol *string `json:"symbol"`
}

// bigInt decodes a subgraph BigInt, which is sent as a JSON string, and
// tolerates a bare number.
type bigInt int64

func (b *bigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse BigInt %s: %w", data, err)
	}
	*b = bigInt(v)
	return nil
}

// toEvent validates required fields. Token symbols are optional.
func (r rawSwap) toEvent() (domain.SwapEvent, error) {
	var missing []string
	need := func(name string, v *string) string {
		if v == nil || *v == "" {
			missing = append(missing, name)
			return ""
		}
		return *v
	}

	ev := domain.SwapEvent{
		ID:         need("id", r.ID),
		Sender:     need("sender", r.Sender),
		To:         need("to", r.To),
		AmountUSD:  need("amountUSD", r.AmountUSD),
		Amount0In:  need("amount0In", r.Amount0In),
		Amount0Out: need("amount0Out", r.Amount0Out),
		Amount1In:  need("amount1In", r.Amount1In),
		Amount1Out: need("amount1Out", r.Amount1Out),
	}
	if r.Transaction == nil {
		missing = append(missing, "transaction")
	} else {
		ev.TxHash = need("transaction.id", r.Transaction.ID)
	}
	if r.Timestamp == nil {
		missing = append(missing, "timestamp")
	} else {
		ev.Timestamp = int64(*r.Timestamp)
	}
	if len(missing) > 0 {
		return domain.SwapEvent{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	for name, v := range map[string]string{
		"amountUSD":  ev.AmountUSD,
		"amount0In":  ev.Amount0In,
		"amount0Out": ev.Amount0Out,
		"amount1In":  ev.Amount1In,
		"amount1Out": ev.Amount1Out,
	} {
		if !domain.ValidDecimal(v) {
			return domain.SwapEvent{}, fmt.Errorf("%s: not a decimal: %q", name, v)
		}
	}

	if r.Token0 != nil {
		ev.Token0Symbol = r.Token0.Symbol
	}
	if r.Token1 != nil {
		ev.Token1Symbol = r.Token1.Symbol
	}
	return ev, nil
}
