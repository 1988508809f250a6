package api

// Request/response payloads for the gateway. Amounts cross the boundary as
// decimal strings in the asset's smallest unit; parsing happens server-side
// with arbitrary precision.

// BalancesResponse carries the exchange-ledger balances of one account.
type BalancesResponse struct {
	Address      string `json:"address"`
	EthBalance   string `json:"ethBalance"`   // wei
	TokenBalance string `json:"tokenBalance"` // smallest token unit
}

// AllowanceResponse carries the token allowance granted to the exchange.
type AllowanceResponse struct {
	Address   string `json:"address"`
	Allowance string `json:"allowance"`
}

// AmountRequest is the body of approve/deposit/withdraw operations.
type AmountRequest struct {
	Amount string `json:"amount"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	Type       string `json:"type"`       // "buy" or "sell"
	Amount     string `json:"amount"`     // token leg
	TotalPrice string `json:"totalPrice"` // ether leg, wei
}

// StatusResponse acknowledges a submitted operation.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries a failure to the UI.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WSSubscribeRequest is an inbound channel (un)subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSUpdate is an outbound channel payload.
type WSUpdate struct {
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}
