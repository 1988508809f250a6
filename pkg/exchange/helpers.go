package exchange

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EtherAddress is the sentinel the exchange contract uses for the base asset
// (the zero/burn address).
var EtherAddress = common.Address{}

const (
	// Decimals is the fixed-point scaling exponent for unit prices.
	Decimals = 18

	// OrdersLimit bounds the pending-orders window.
	OrdersLimit = 20

	// TradesLimit bounds the trade-history window.
	TradesLimit = 20
)

var priceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// UnitPrice returns the price of one token unit denominated in wei, scaled by
// 10^Decimals. Integer truncating division; zero when the token amount is
// zero. Inputs may exceed 64-bit range, no floats anywhere.
func UnitPrice(baseAmount, tokenAmount *big.Int) *big.Int {
	if tokenAmount == nil || tokenAmount.Sign() == 0 {
		return new(big.Int)
	}
	price := new(big.Int).Mul(baseAmount, priceScale)
	return price.Div(price, tokenAmount)
}

// tradeTypeOf classifies an event from its buy leg: when the buy leg is the
// base asset the maker is selling tokens for ether. The same rule applies to
// orders, trades and live events alike.
func tradeTypeOf(buyAsset common.Address) TradeType {
	if buyAsset == EtherAddress {
		return Sell
	}
	return Buy
}

// timeFromUnix converts a seconds-since-epoch chain timestamp to a calendar
// time.
func timeFromUnix(ts *big.Int) time.Time {
	return time.Unix(ts.Int64(), 0).UTC()
}
