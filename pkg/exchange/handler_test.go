package exchange

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

func TestSubscribeTrades_DeliversProjectedTrade(t *testing.T) {
	var sink chan<- TradeEvent
	sub := newFakeSub()
	backend := &fakeBackend{
		watchTrades: func(_ context.Context, s chan<- TradeEvent) (event.Subscription, error) {
			sink = s
			return sub, nil
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	got := make(chan Trade, 1)
	id, err := h.SubscribeTrades(context.Background(), func(tr Trade) { got <- tr })
	if err != nil {
		t.Fatalf("SubscribeTrades() error: %v", err)
	}
	if id != 0 {
		t.Errorf("first slot id = %d, want 0", id)
	}

	ev := fillEvent(1, 1612345678)
	sink <- ev

	select {
	case tr := <-got:
		// The live path must match the backfill projection bit for bit.
		if want := TradeFromEvent(ev); tr != want {
			t.Errorf("callback trade = %+v, want %+v", tr, want)
		}
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestSubscribeCancelOrders_DeliversOrderID(t *testing.T) {
	var sink chan<- CancelOrderEvent
	backend := &fakeBackend{
		watchCancels: func(_ context.Context, s chan<- CancelOrderEvent) (event.Subscription, error) {
			sink = s
			return newFakeSub(), nil
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	got := make(chan string, 1)
	if _, err := h.SubscribeCancelOrders(context.Background(), func(id string) { got <- id }); err != nil {
		t.Fatalf("SubscribeCancelOrders() error: %v", err)
	}

	sink <- cancelEvent(42)

	select {
	case id := <-got:
		if id != "42" {
			t.Errorf("callback id = %s, want 42", id)
		}
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestSubscribe_RegistrationErrorPropagates(t *testing.T) {
	watchErr := errors.New("subscription refused")
	backend := &fakeBackend{
		watchCreates: func(context.Context, chan<- CreateOrderEvent) (event.Subscription, error) {
			return nil, watchErr
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	if _, err := h.SubscribeCreateOrders(context.Background(), func(Order) {}); !errors.Is(err, watchErr) {
		t.Errorf("SubscribeCreateOrders() err = %v, want %v", err, watchErr)
	}
	if len(h.createListeners) != 0 {
		t.Errorf("failed registration occupied a slot: %d", len(h.createListeners))
	}
}

func TestUnsubscribeTrades_SlotSemantics(t *testing.T) {
	subs := []*fakeSub{newFakeSub(), newFakeSub(), newFakeSub()}
	next := 0
	backend := &fakeBackend{
		watchTrades: func(context.Context, chan<- TradeEvent) (event.Subscription, error) {
			s := subs[next]
			next++
			return s, nil
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	var ids []int
	for range subs {
		id, err := h.SubscribeTrades(context.Background(), func(Trade) {})
		if err != nil {
			t.Fatalf("SubscribeTrades() error: %v", err)
		}
		ids = append(ids, id)
	}
	if ids[0] != 0 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("slot ids = %v, want [0 1 2]", ids)
	}

	h.UnsubscribeTrades(1)

	if h.tradeListeners[1] != nil {
		t.Error("slot 1 not cleared")
	}
	if h.tradeListeners[0] == nil || h.tradeListeners[2] == nil {
		t.Error("unrelated slots disturbed")
	}
	if n := subs[1].Unsubscribed(); n != 1 {
		t.Errorf("middle subscription torn down %d times, want 1", n)
	}
	if subs[0].Unsubscribed() != 0 || subs[2].Unsubscribed() != 0 {
		t.Error("unrelated subscriptions torn down")
	}

	// Double unsubscribe is a no-op: no second teardown call.
	h.UnsubscribeTrades(1)
	if n := subs[1].Unsubscribed(); n != 1 {
		t.Errorf("double unsubscribe reached the backend: %d teardowns", n)
	}

	// Unknown ids are no-ops too.
	h.UnsubscribeTrades(17)
	h.UnsubscribeTrades(-1)
	for i, s := range subs {
		want := int32(0)
		if i == 1 {
			want = 1
		}
		if s.Unsubscribed() != want {
			t.Errorf("sub[%d] teardowns = %d, want %d", i, s.Unsubscribed(), want)
		}
	}

	// Ids stay stable: the next registration gets a fresh slot, not the hole.
	subs = append(subs, newFakeSub())
	id, err := h.SubscribeTrades(context.Background(), func(Trade) {})
	if err != nil {
		t.Fatalf("SubscribeTrades() error: %v", err)
	}
	if id != 3 {
		t.Errorf("new slot id = %d, want 3 (registry grows, holes are not reused)", id)
	}
}

func TestUnsubscribedListenerStopsDelivering(t *testing.T) {
	var sink chan<- TradeEvent
	backend := &fakeBackend{
		watchTrades: func(_ context.Context, s chan<- TradeEvent) (event.Subscription, error) {
			sink = s
			return newFakeSub(), nil
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	got := make(chan Trade, 1)
	id, err := h.SubscribeTrades(context.Background(), func(tr Trade) { got <- tr })
	if err != nil {
		t.Fatalf("SubscribeTrades() error: %v", err)
	}

	h.UnsubscribeTrades(id)
	// Give the forwarding goroutine a moment to observe the teardown.
	time.Sleep(50 * time.Millisecond)

	// Nothing drains the sink anymore; the buffered send must not reach the
	// callback.
	select {
	case sink <- fillEvent(1, 100):
	default:
	}

	select {
	case tr := <-got:
		t.Errorf("callback invoked after unsubscribe: %+v", tr)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBalanceReads_PropagateErrors(t *testing.T) {
	readErr := errors.New("provider unavailable")
	backend := &fakeBackend{
		ethBalanceOf: func(context.Context, common.Address) (*big.Int, error) {
			return nil, readErr
		},
		tokenBalanceOf: func(context.Context, common.Address, common.Address) (*big.Int, error) {
			return nil, readErr
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	if _, err := h.EthBalance(context.Background(), alice); !errors.Is(err, readErr) {
		t.Errorf("EthBalance() err = %v, want %v", err, readErr)
	}
	if _, err := h.TokenBalance(context.Background(), alice); !errors.Is(err, readErr) {
		t.Errorf("TokenBalance() err = %v, want %v", err, readErr)
	}
}

func TestBalanceReads_DelegateArguments(t *testing.T) {
	var gotToken, gotAccount common.Address
	backend := &fakeBackend{
		tokenBalanceOf: func(_ context.Context, token, account common.Address) (*big.Int, error) {
			gotToken, gotAccount = token, account
			return wei(5), nil
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	balance, err := h.TokenBalance(context.Background(), alice)
	if err != nil {
		t.Fatalf("TokenBalance() error: %v", err)
	}
	if balance.Cmp(wei(5)) != 0 {
		t.Errorf("balance = %s, want %s", balance, wei(5))
	}
	if gotToken != testToken || gotAccount != alice {
		t.Errorf("delegated (%s, %s), want (%s, %s)", gotToken.Hex(), gotAccount.Hex(), testToken.Hex(), alice.Hex())
	}
}

func TestTokenAllowance_SpenderIsExchange(t *testing.T) {
	var gotOwner, gotSpender common.Address
	backend := &fakeBackend{
		allowance: func(_ context.Context, owner, spender common.Address) (*big.Int, error) {
			gotOwner, gotSpender = owner, spender
			return new(big.Int), nil
		},
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	if _, err := h.TokenAllowance(context.Background(), alice); err != nil {
		t.Fatalf("TokenAllowance() error: %v", err)
	}
	if gotOwner != alice || gotSpender != exchangeAddr {
		t.Errorf("allowance queried for (%s, %s), want (%s, %s)", gotOwner.Hex(), gotSpender.Hex(), alice.Hex(), exchangeAddr.Hex())
	}
}

func TestCreateOrder_LegMapping(t *testing.T) {
	type call struct {
		sellAsset  common.Address
		sellAmount *big.Int
		buyAsset   common.Address
		buyAmount  *big.Int
	}

	tests := []struct {
		name  string
		order Order
		want  call
	}{
		{
			name:  "buy sells ether for tokens",
			order: Order{Type: Buy, Amount: wei(1000).String(), TotalPrice: wei(1).String()},
			want:  call{EtherAddress, wei(1), testToken, wei(1000)},
		},
		{
			name:  "sell sells tokens for ether",
			order: Order{Type: Sell, Amount: wei(1000).String(), TotalPrice: wei(1).String()},
			want:  call{testToken, wei(1000), EtherAddress, wei(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got call
			backend := &fakeBackend{
				createOrder: func(_ context.Context, sellAsset common.Address, sellAmount *big.Int, buyAsset common.Address, buyAmount *big.Int) error {
					got = call{sellAsset, sellAmount, buyAsset, buyAmount}
					return nil
				},
			}
			h := NewHandler(backend, exchangeAddr, testToken)

			if err := h.CreateOrder(context.Background(), tt.order); err != nil {
				t.Fatalf("CreateOrder() error: %v", err)
			}
			if got.sellAsset != tt.want.sellAsset || got.buyAsset != tt.want.buyAsset {
				t.Errorf("assets = (%s, %s), want (%s, %s)", got.sellAsset.Hex(), got.buyAsset.Hex(), tt.want.sellAsset.Hex(), tt.want.buyAsset.Hex())
			}
			if got.sellAmount.Cmp(tt.want.sellAmount) != 0 || got.buyAmount.Cmp(tt.want.buyAmount) != 0 {
				t.Errorf("amounts = (%s, %s), want (%s, %s)", got.sellAmount, got.buyAmount, tt.want.sellAmount, tt.want.buyAmount)
			}
		})
	}
}

func TestCreateOrder_RejectsMalformedAmounts(t *testing.T) {
	h := NewHandler(&fakeBackend{}, exchangeAddr, testToken)

	if err := h.CreateOrder(context.Background(), Order{Type: Buy, Amount: "not-a-number", TotalPrice: "1"}); err == nil {
		t.Error("expected error for malformed amount")
	}
	if err := h.CreateOrder(context.Background(), Order{Type: Buy, Amount: "1", TotalPrice: "1.5"}); err == nil {
		t.Error("expected error for malformed total price")
	}
}

func TestCancelAndFillOrder_ParseIDs(t *testing.T) {
	var cancelled, filled *big.Int
	backend := &fakeBackend{
		cancelOrder: func(_ context.Context, id *big.Int) error { cancelled = id; return nil },
		fillOrder:   func(_ context.Context, id *big.Int) error { filled = id; return nil },
	}
	h := NewHandler(backend, exchangeAddr, testToken)

	if err := h.CancelOrder(context.Background(), "7"); err != nil {
		t.Fatalf("CancelOrder() error: %v", err)
	}
	if cancelled == nil || cancelled.Int64() != 7 {
		t.Errorf("cancelled id = %v, want 7", cancelled)
	}

	if err := h.FillOrder(context.Background(), "9"); err != nil {
		t.Fatalf("FillOrder() error: %v", err)
	}
	if filled == nil || filled.Int64() != 9 {
		t.Errorf("filled id = %v, want 9", filled)
	}

	if err := h.CancelOrder(context.Background(), "abc"); err == nil {
		t.Error("expected error for malformed id")
	}
}
