package exchange

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// PendingOrders reconciles the full event history into the set of orders that
// are still open: creations minus anything cancelled or filled. The three
// queries are independent reads and run concurrently, but no result is
// emitted until all of them complete — an order is only "pending" relative
// to a complete view of cancellations and fills. Any query failure fails the
// whole reconciliation.
func (h *Handler) PendingOrders(ctx context.Context) ([]Order, error) {
	var (
		creates []CreateOrderEvent
		cancels []CancelOrderEvent
		fills   []TradeEvent
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		creates, err = h.backend.FilterCreateOrders(ctx)
		return err
	})
	g.Go(func() (err error) {
		cancels, err = h.backend.FilterCancelOrders(ctx)
		return err
	})
	g.Go(func() (err error) {
		fills, err = h.backend.FilterTrades(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pendingOrders(creates, cancels, fills), nil
}

// pendingOrders walks creations most-recent-first and keeps the ones whose id
// appears in neither the cancellation nor the fill set, stopping at
// OrdersLimit. Older creations beyond the limit are dropped.
func pendingOrders(creates []CreateOrderEvent, cancels []CancelOrderEvent, fills []TradeEvent) []Order {
	closed := make(map[string]struct{}, len(cancels)+len(fills))
	for _, ev := range cancels {
		closed[ev.ID.String()] = struct{}{}
	}
	for _, ev := range fills {
		closed[ev.OrderID.String()] = struct{}{}
	}

	orders := make([]Order, 0, OrdersLimit)
	for i := len(creates) - 1; i >= 0 && len(orders) < OrdersLimit; i-- {
		if _, ok := closed[creates[i].ID.String()]; ok {
			continue
		}
		orders = append(orders, OrderFromEvent(creates[i]))
	}
	return orders
}

// AllTrades returns the bounded trade history: every fill projected, newest
// first, truncated at TradesLimit.
func (h *Handler) AllTrades(ctx context.Context) ([]Trade, error) {
	events, err := h.backend.FilterTrades(ctx)
	if err != nil {
		return nil, err
	}
	return tradeHistory(events), nil
}

func tradeHistory(events []TradeEvent) []Trade {
	trades := make([]Trade, len(events))
	for i, ev := range events {
		trades[i] = TradeFromEvent(ev)
	}
	// Stable: equal timestamps keep emission order.
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	if len(trades) > TradesLimit {
		trades = trades[:TradesLimit]
	}
	return trades
}
