package exchange

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TradeType is the direction of an order or trade relative to the base asset
// (ether). A Sell means the maker gives up tokens and receives ether.
type TradeType int

const (
	Sell TradeType = iota
	Buy
)

func (t TradeType) String() string {
	if t == Buy {
		return "buy"
	}
	return "sell"
}

// Order is a resting, unfilled intent to trade. Amounts are string-encoded
// integers in the asset's smallest unit so they survive the JSON boundary
// without precision loss.
type Order struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       TradeType `json:"type"`
	Account    string    `json:"account"`
	Amount     string    `json:"amount"`     // token leg, smallest unit
	UnitPrice  string    `json:"unitPrice"`  // wei per token unit, scaled by 10^Decimals
	TotalPrice string    `json:"totalPrice"` // ether leg, wei
}

// Trade is a completed fill. Immutable once observed.
type Trade struct {
	OrderID     string    `json:"orderId"`
	Timestamp   time.Time `json:"timestamp"`
	Type        TradeType `json:"type"`
	SellAccount string    `json:"sellAccount"`
	BuyAccount  string    `json:"buyAccount"`
	Amount      string    `json:"amount"`
	UnitPrice   string    `json:"unitPrice"`
	TotalPrice  string    `json:"totalPrice"`
}

// CreateOrderEvent is the raw CreateOrder log emitted by the exchange
// contract, before projection.
type CreateOrderEvent struct {
	ID         *big.Int
	Account    common.Address
	SellAsset  common.Address
	SellAmount *big.Int
	BuyAsset   common.Address
	BuyAmount  *big.Int
	Timestamp  *big.Int
}

// CancelOrderEvent is the raw CancelOrder log.
type CancelOrderEvent struct {
	ID        *big.Int
	Account   common.Address
	Timestamp *big.Int
}

// TradeEvent is the raw Trade log. Both legs carry their own account: the
// sell side is the maker whose order got filled.
type TradeEvent struct {
	OrderID     *big.Int
	SellAccount common.Address
	SellAsset   common.Address
	SellAmount  *big.Int
	BuyAccount  common.Address
	BuyAsset    common.Address
	BuyAmount   *big.Int
	Timestamp   *big.Int
}
