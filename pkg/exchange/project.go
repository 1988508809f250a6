package exchange

import "math/big"

// legs splits an event's two amounts into the ether leg and the token leg.
// For a Buy the maker sells ether for tokens; for a Sell it is reversed.
func legs(t TradeType, sellAmount, buyAmount *big.Int) (base, token *big.Int) {
	if t == Buy {
		return sellAmount, buyAmount
	}
	return buyAmount, sellAmount
}

// OrderFromEvent projects a raw CreateOrder log into a normalized Order.
// Pure: historical backfill and live callbacks must produce identical
// results for the same event.
func OrderFromEvent(ev CreateOrderEvent) Order {
	t := tradeTypeOf(ev.BuyAsset)
	base, token := legs(t, ev.SellAmount, ev.BuyAmount)

	return Order{
		ID:         ev.ID.String(),
		Timestamp:  timeFromUnix(ev.Timestamp),
		Type:       t,
		Account:    ev.Account.Hex(),
		Amount:     token.String(),
		UnitPrice:  UnitPrice(base, token).String(),
		TotalPrice: base.String(),
	}
}

// TradeFromEvent projects a raw Trade log into a normalized Trade.
func TradeFromEvent(ev TradeEvent) Trade {
	t := tradeTypeOf(ev.BuyAsset)
	base, token := legs(t, ev.SellAmount, ev.BuyAmount)

	return Trade{
		OrderID:     ev.OrderID.String(),
		Timestamp:   timeFromUnix(ev.Timestamp),
		Type:        t,
		SellAccount: ev.SellAccount.Hex(),
		BuyAccount:  ev.BuyAccount.Hex(),
		Amount:      token.String(),
		UnitPrice:   UnitPrice(base, token).String(),
		TotalPrice:  base.String(),
	}
}
