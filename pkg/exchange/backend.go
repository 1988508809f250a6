package exchange

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// Backend is the exchange-contract surface the client consumes: historical
// log queries, live log subscriptions, ledger reads and mutating calls.
// Contract implements it over go-ethereum; tests substitute fakes.
type Backend interface {
	// Historical queries return events in on-chain emission order.
	FilterCreateOrders(ctx context.Context) ([]CreateOrderEvent, error)
	FilterCancelOrders(ctx context.Context) ([]CancelOrderEvent, error)
	FilterTrades(ctx context.Context) ([]TradeEvent, error)

	// Watches deliver events to sink in emission order until the returned
	// subscription is torn down.
	WatchCreateOrders(ctx context.Context, sink chan<- CreateOrderEvent) (event.Subscription, error)
	WatchCancelOrders(ctx context.Context, sink chan<- CancelOrderEvent) (event.Subscription, error)
	WatchTrades(ctx context.Context, sink chan<- TradeEvent) (event.Subscription, error)

	// Reads against the exchange's internal ledger (custodied deposits, not
	// the token contract's own balances).
	EthBalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)

	// Mutating calls. Amounts pass through verbatim; failures propagate.
	Approve(ctx context.Context, spender common.Address, amount *big.Int) error
	DepositEther(ctx context.Context, value *big.Int) error
	DepositToken(ctx context.Context, token common.Address, amount *big.Int) error
	WithdrawEther(ctx context.Context, amount *big.Int) error
	WithdrawToken(ctx context.Context, token common.Address, amount *big.Int) error
	CreateOrder(ctx context.Context, sellAsset common.Address, sellAmount *big.Int, buyAsset common.Address, buyAmount *big.Int) error
	CancelOrder(ctx context.Context, id *big.Int) error
	FillOrder(ctx context.Context, id *big.Int) error
}
