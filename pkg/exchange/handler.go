package exchange

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// eventBuffer sizes the sink channel between a watch and its forwarding
// goroutine.
const eventBuffer = 128

// listener is one occupied slot in a registry: the backend subscription plus
// the quit channel of the goroutine forwarding events to the callback.
type listener struct {
	sub  event.Subscription
	done chan struct{}
}

// Handler binds one exchange contract and one token to a set of event
// listeners. Subscriptions are handed out as stable integer slot ids into
// nullable-slot registries: registries grow monotonically, unsubscribing
// clears the slot in place, so ids issued earlier stay valid after other
// listeners are removed.
type Handler struct {
	backend  Backend
	exchange common.Address // spender for token allowances
	token    common.Address

	mu              sync.Mutex
	createListeners []*listener
	cancelListeners []*listener
	tradeListeners  []*listener
}

// NewHandler wires a backend to a fresh handler with empty registries. One
// handler is built per wallet connection and torn down with it.
func NewHandler(backend Backend, exchange, token common.Address) *Handler {
	return &Handler{
		backend:  backend,
		exchange: exchange,
		token:    token,
	}
}

// Token returns the ERC20 leg this handler trades against.
func (h *Handler) Token() common.Address { return h.token }

// SubscribeCreateOrders registers callback for live CreateOrder events and
// returns the listener's slot id. A registration failure propagates and
// occupies no slot.
func (h *Handler) SubscribeCreateOrders(ctx context.Context, callback func(Order)) (int, error) {
	sink := make(chan CreateOrderEvent, eventBuffer)
	sub, err := h.backend.WatchCreateOrders(ctx, sink)
	if err != nil {
		return 0, err
	}
	return h.register(&h.createListeners, sub, func(done chan struct{}) {
		for {
			select {
			case ev := <-sink:
				callback(OrderFromEvent(ev))
			case <-sub.Err():
				return
			case <-done:
				return
			}
		}
	}), nil
}

// SubscribeCancelOrders registers callback for live CancelOrder events. The
// callback receives the cancelled order's id.
func (h *Handler) SubscribeCancelOrders(ctx context.Context, callback func(orderID string)) (int, error) {
	sink := make(chan CancelOrderEvent, eventBuffer)
	sub, err := h.backend.WatchCancelOrders(ctx, sink)
	if err != nil {
		return 0, err
	}
	return h.register(&h.cancelListeners, sub, func(done chan struct{}) {
		for {
			select {
			case ev := <-sink:
				callback(ev.ID.String())
			case <-sub.Err():
				return
			case <-done:
				return
			}
		}
	}), nil
}

// SubscribeTrades registers callback for live Trade events, projected through
// the same path as historical backfill.
func (h *Handler) SubscribeTrades(ctx context.Context, callback func(Trade)) (int, error) {
	sink := make(chan TradeEvent, eventBuffer)
	sub, err := h.backend.WatchTrades(ctx, sink)
	if err != nil {
		return 0, err
	}
	return h.register(&h.tradeListeners, sub, func(done chan struct{}) {
		for {
			select {
			case ev := <-sink:
				callback(TradeFromEvent(ev))
			case <-sub.Err():
				return
			case <-done:
				return
			}
		}
	}), nil
}

func (h *Handler) register(registry *[]*listener, sub event.Subscription, forward func(done chan struct{})) int {
	done := make(chan struct{})
	go forward(done)

	h.mu.Lock()
	defer h.mu.Unlock()
	*registry = append(*registry, &listener{sub: sub, done: done})
	return len(*registry) - 1
}

// UnsubscribeCreateOrders tears down the listener at the given slot. Unknown
// or already-cleared slots are silent no-ops, the underlying subscription is
// not touched.
func (h *Handler) UnsubscribeCreateOrders(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clearSlot(h.createListeners, id)
}

// UnsubscribeCancelOrders tears down the CancelOrder listener at the given
// slot.
func (h *Handler) UnsubscribeCancelOrders(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clearSlot(h.cancelListeners, id)
}

// UnsubscribeTrades tears down the Trade listener at the given slot.
func (h *Handler) UnsubscribeTrades(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clearSlot(h.tradeListeners, id)
}

func clearSlot(registry []*listener, id int) {
	if id < 0 || id >= len(registry) || registry[id] == nil {
		return
	}
	l := registry[id]
	registry[id] = nil
	l.sub.Unsubscribe()
	close(l.done)
}

// EthBalance reads the account's ether balance custodied by the exchange.
// Failures propagate; a failed read is never reported as a zero balance.
func (h *Handler) EthBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return h.backend.EthBalanceOf(ctx, account)
}

// TokenBalance reads the account's token balance custodied by the exchange.
func (h *Handler) TokenBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return h.backend.TokenBalanceOf(ctx, h.token, account)
}

// TokenAllowance reads how much of owner's tokens the exchange may pull.
func (h *Handler) TokenAllowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return h.backend.Allowance(ctx, owner, h.exchange)
}

// ApproveToken grants the exchange a token spending allowance.
func (h *Handler) ApproveToken(ctx context.Context, amount *big.Int) error {
	return h.backend.Approve(ctx, h.exchange, amount)
}

// DepositEther moves ether into the exchange ledger.
func (h *Handler) DepositEther(ctx context.Context, value *big.Int) error {
	return h.backend.DepositEther(ctx, value)
}

// DepositToken moves tokens into the exchange ledger. Requires a prior
// allowance.
func (h *Handler) DepositToken(ctx context.Context, amount *big.Int) error {
	return h.backend.DepositToken(ctx, h.token, amount)
}

// WithdrawEther moves ether back out of the exchange ledger.
func (h *Handler) WithdrawEther(ctx context.Context, amount *big.Int) error {
	return h.backend.WithdrawEther(ctx, amount)
}

// WithdrawToken moves tokens back out of the exchange ledger.
func (h *Handler) WithdrawToken(ctx context.Context, amount *big.Int) error {
	return h.backend.WithdrawToken(ctx, h.token, amount)
}

// CreateOrder submits a new order. The order's direction decides which leg is
// which: a Buy sells ether (TotalPrice) for tokens (Amount), a Sell the
// reverse.
func (h *Handler) CreateOrder(ctx context.Context, o Order) error {
	amount, ok := new(big.Int).SetString(o.Amount, 10)
	if !ok {
		return fmt.Errorf("invalid order amount %q", o.Amount)
	}
	totalPrice, ok := new(big.Int).SetString(o.TotalPrice, 10)
	if !ok {
		return fmt.Errorf("invalid order total price %q", o.TotalPrice)
	}

	if o.Type == Buy {
		return h.backend.CreateOrder(ctx, EtherAddress, totalPrice, h.token, amount)
	}
	return h.backend.CreateOrder(ctx, h.token, amount, EtherAddress, totalPrice)
}

// CancelOrder cancels the caller's pending order.
func (h *Handler) CancelOrder(ctx context.Context, id string) error {
	n, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return fmt.Errorf("invalid order id %q", id)
	}
	return h.backend.CancelOrder(ctx, n)
}

// FillOrder fills someone else's pending order at its quoted price.
func (h *Handler) FillOrder(ctx context.Context, id string) error {
	n, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return fmt.Errorf("invalid order id %q", id)
	}
	return h.backend.FillOrder(ctx, n)
}
