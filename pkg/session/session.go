// Package session owns the client-side view of the exchange: the bounded
// pending-orders and trade-history collections. One session exists per
// connected account; it is the single writer of both collections, everything
// else sees copies.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/todex/todex-client/pkg/cache"
	"github.com/todex/todex-client/pkg/exchange"
)

const noSlot = -1

// Session reconciles historical events once, then keeps the collections
// current from live subscriptions. Lifecycle: New -> Start -> Close, torn
// down and rebuilt on every wallet (re)connection.
type Session struct {
	log     *zap.SugaredLogger
	handler *exchange.Handler
	trades  *cache.Trades // optional warm-start cache, may be nil

	mu        sync.Mutex
	orders    []exchange.Order
	history   []exchange.Trade
	createSub int
	cancelSub int
	tradeSub  int
	closed    bool

	onChange func()
}

func New(handler *exchange.Handler, log *zap.SugaredLogger) *Session {
	return &Session{
		log:       log,
		handler:   handler,
		createSub: noSlot,
		cancelSub: noSlot,
		tradeSub:  noSlot,
	}
}

// SetCache attaches a local trade cache. Must be called before Start.
func (s *Session) SetCache(c *cache.Trades) { s.trades = c }

// OnChange registers a hook invoked after every mutation of the collections.
// Must be called before Start.
func (s *Session) OnChange(fn func()) { s.onChange = fn }

// Start performs the historical backfill and only then registers the live
// subscriptions. Events emitted in between are redelivered by the transport
// (at-least-once) and absorbed by the merge's idempotence. Any backfill
// query failure aborts the whole start — no partial view is ever published.
func (s *Session) Start(ctx context.Context) error {
	if s.trades != nil {
		if cached, err := s.trades.Recent(exchange.TradesLimit); err != nil {
			s.log.Warnw("trade_cache_read_failed", "err", err)
		} else if len(cached) > 0 {
			s.mu.Lock()
			s.history = cached
			s.mu.Unlock()
			s.notify()
		}
	}

	history, err := s.handler.AllTrades(ctx)
	if err != nil {
		return err
	}
	orders, err := s.handler.PendingOrders(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.orders = orders
	s.history = history
	s.mu.Unlock()
	s.persist(history)
	s.notify()

	// Each slot id is recorded as soon as its registration succeeds so a
	// failure further down can still tear down the earlier listeners —
	// otherwise they would keep feeding a session the caller has given up
	// on.
	createSub, err := s.handler.SubscribeCreateOrders(ctx, s.addOrder)
	if err != nil {
		return err
	}
	s.setSlot(&s.createSub, createSub)

	cancelSub, err := s.handler.SubscribeCancelOrders(ctx, s.removeOrder)
	if err != nil {
		s.unsubscribeAll()
		return err
	}
	s.setSlot(&s.cancelSub, cancelSub)

	tradeSub, err := s.handler.SubscribeTrades(ctx, s.applyTrade)
	if err != nil {
		s.unsubscribeAll()
		return err
	}
	s.setSlot(&s.tradeSub, tradeSub)

	s.log.Infow("session_started",
		"pending_orders", len(orders),
		"trades", len(history),
	)
	return nil
}

// Close unsubscribes every registered listener exactly once. Safe to call
// again; repeat calls are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unsubscribeAll()
}

func (s *Session) setSlot(slot *int, id int) {
	s.mu.Lock()
	*slot = id
	s.mu.Unlock()
}

// unsubscribeAll tears down whichever listeners are currently registered and
// clears their slots, so no path can unsubscribe the same slot twice.
func (s *Session) unsubscribeAll() {
	s.mu.Lock()
	createSub, cancelSub, tradeSub := s.createSub, s.cancelSub, s.tradeSub
	s.createSub, s.cancelSub, s.tradeSub = noSlot, noSlot, noSlot
	s.mu.Unlock()

	if createSub != noSlot {
		s.handler.UnsubscribeCreateOrders(createSub)
	}
	if cancelSub != noSlot {
		s.handler.UnsubscribeCancelOrders(cancelSub)
	}
	if tradeSub != noSlot {
		s.handler.UnsubscribeTrades(tradeSub)
	}
}

// Orders returns a copy of the pending-orders window, newest first.
func (s *Session) Orders() []exchange.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]exchange.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Trades returns a copy of the trade-history window, newest first.
func (s *Session) Trades() []exchange.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]exchange.Trade, len(s.history))
	copy(out, s.history)
	return out
}

// addOrder folds a live creation into the window: prepend, de-duplicate by
// id with the newest occurrence winning, truncate.
func (s *Session) addOrder(o exchange.Order) {
	s.mu.Lock()
	merged := make([]exchange.Order, 0, len(s.orders)+1)
	merged = append(merged, o)
	for _, existing := range s.orders {
		if existing.ID == o.ID {
			continue
		}
		merged = append(merged, existing)
	}
	if len(merged) > exchange.OrdersLimit {
		merged = merged[:exchange.OrdersLimit]
	}
	s.orders = merged
	s.mu.Unlock()
	s.notify()
}

// removeOrder drops the order from the pending window. Absent ids are a
// no-op: the order was already removed, or fell outside the truncated
// window.
func (s *Session) removeOrder(id string) {
	s.mu.Lock()
	s.orders = withoutOrder(s.orders, id)
	s.mu.Unlock()
	s.notify()
}

// applyTrade folds a live fill into the history window and removes the
// filled order from the pending window.
func (s *Session) applyTrade(t exchange.Trade) {
	s.mu.Lock()
	merged := make([]exchange.Trade, 0, len(s.history)+1)
	merged = append(merged, t)
	for _, existing := range s.history {
		if existing.OrderID == t.OrderID {
			continue
		}
		merged = append(merged, existing)
	}
	if len(merged) > exchange.TradesLimit {
		merged = merged[:exchange.TradesLimit]
	}
	s.history = merged
	s.orders = withoutOrder(s.orders, t.OrderID)
	s.mu.Unlock()
	s.persist([]exchange.Trade{t})
	s.notify()
}

func withoutOrder(orders []exchange.Order, id string) []exchange.Order {
	kept := orders[:0:len(orders)]
	for _, o := range orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	return kept
}

func (s *Session) persist(trades []exchange.Trade) {
	if s.trades == nil {
		return
	}
	for _, t := range trades {
		if err := s.trades.Put(t); err != nil {
			s.log.Warnw("trade_cache_write_failed", "order_id", t.OrderID, "err", err)
		}
	}
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
