package exchange

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

var exchangeAddr = common.HexToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")

// fakeSub is an inert subscription that counts teardowns.
type fakeSub struct {
	unsubs atomic.Int32
	err    chan error
}

func newFakeSub() *fakeSub {
	return &fakeSub{err: make(chan error)}
}

func (s *fakeSub) Unsubscribe() { s.unsubs.Add(1) }

func (s *fakeSub) Err() <-chan error { return s.err }

func (s *fakeSub) Unsubscribed() int32 { return s.unsubs.Load() }

// fakeBackend implements Backend with overridable function fields. The zero
// value answers every query with empty results and every watch with an inert
// subscription.
type fakeBackend struct {
	filterCreates func(context.Context) ([]CreateOrderEvent, error)
	filterCancels func(context.Context) ([]CancelOrderEvent, error)
	filterTrades  func(context.Context) ([]TradeEvent, error)

	watchCreates func(context.Context, chan<- CreateOrderEvent) (event.Subscription, error)
	watchCancels func(context.Context, chan<- CancelOrderEvent) (event.Subscription, error)
	watchTrades  func(context.Context, chan<- TradeEvent) (event.Subscription, error)

	ethBalanceOf   func(context.Context, common.Address) (*big.Int, error)
	tokenBalanceOf func(context.Context, common.Address, common.Address) (*big.Int, error)
	allowance      func(context.Context, common.Address, common.Address) (*big.Int, error)

	createOrder func(context.Context, common.Address, *big.Int, common.Address, *big.Int) error
	cancelOrder func(context.Context, *big.Int) error
	fillOrder   func(context.Context, *big.Int) error

	approve       func(context.Context, common.Address, *big.Int) error
	depositEther  func(context.Context, *big.Int) error
	depositToken  func(context.Context, common.Address, *big.Int) error
	withdrawEther func(context.Context, *big.Int) error
	withdrawToken func(context.Context, common.Address, *big.Int) error
}

func (f *fakeBackend) FilterCreateOrders(ctx context.Context) ([]CreateOrderEvent, error) {
	if f.filterCreates != nil {
		return f.filterCreates(ctx)
	}
	return nil, nil
}

func (f *fakeBackend) FilterCancelOrders(ctx context.Context) ([]CancelOrderEvent, error) {
	if f.filterCancels != nil {
		return f.filterCancels(ctx)
	}
	return nil, nil
}

func (f *fakeBackend) FilterTrades(ctx context.Context) ([]TradeEvent, error) {
	if f.filterTrades != nil {
		return f.filterTrades(ctx)
	}
	return nil, nil
}

func (f *fakeBackend) WatchCreateOrders(ctx context.Context, sink chan<- CreateOrderEvent) (event.Subscription, error) {
	if f.watchCreates != nil {
		return f.watchCreates(ctx, sink)
	}
	return newFakeSub(), nil
}

func (f *fakeBackend) WatchCancelOrders(ctx context.Context, sink chan<- CancelOrderEvent) (event.Subscription, error) {
	if f.watchCancels != nil {
		return f.watchCancels(ctx, sink)
	}
	return newFakeSub(), nil
}

func (f *fakeBackend) WatchTrades(ctx context.Context, sink chan<- TradeEvent) (event.Subscription, error) {
	if f.watchTrades != nil {
		return f.watchTrades(ctx, sink)
	}
	return newFakeSub(), nil
}

func (f *fakeBackend) EthBalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	if f.ethBalanceOf != nil {
		return f.ethBalanceOf(ctx, account)
	}
	return new(big.Int), nil
}

func (f *fakeBackend) TokenBalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if f.tokenBalanceOf != nil {
		return f.tokenBalanceOf(ctx, token, account)
	}
	return new(big.Int), nil
}

func (f *fakeBackend) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if f.allowance != nil {
		return f.allowance(ctx, owner, spender)
	}
	return new(big.Int), nil
}

func (f *fakeBackend) Approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	if f.approve != nil {
		return f.approve(ctx, spender, amount)
	}
	return nil
}

func (f *fakeBackend) DepositEther(ctx context.Context, value *big.Int) error {
	if f.depositEther != nil {
		return f.depositEther(ctx, value)
	}
	return nil
}

func (f *fakeBackend) DepositToken(ctx context.Context, token common.Address, amount *big.Int) error {
	if f.depositToken != nil {
		return f.depositToken(ctx, token, amount)
	}
	return nil
}

func (f *fakeBackend) WithdrawEther(ctx context.Context, amount *big.Int) error {
	if f.withdrawEther != nil {
		return f.withdrawEther(ctx, amount)
	}
	return nil
}

func (f *fakeBackend) WithdrawToken(ctx context.Context, token common.Address, amount *big.Int) error {
	if f.withdrawToken != nil {
		return f.withdrawToken(ctx, token, amount)
	}
	return nil
}

func (f *fakeBackend) CreateOrder(ctx context.Context, sellAsset common.Address, sellAmount *big.Int, buyAsset common.Address, buyAmount *big.Int) error {
	if f.createOrder != nil {
		return f.createOrder(ctx, sellAsset, sellAmount, buyAsset, buyAmount)
	}
	return nil
}

func (f *fakeBackend) CancelOrder(ctx context.Context, id *big.Int) error {
	if f.cancelOrder != nil {
		return f.cancelOrder(ctx, id)
	}
	return nil
}

func (f *fakeBackend) FillOrder(ctx context.Context, id *big.Int) error {
	if f.fillOrder != nil {
		return f.fillOrder(ctx, id)
	}
	return nil
}

var _ Backend = (*fakeBackend)(nil)
