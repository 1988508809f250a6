package exchange

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// ABI fragments for the exchange contract and the ERC20 approval surface.
// Kept inline: the client consumes a fixed contract, there is no codegen
// step.
const exchangeABI = `[
	{"type":"function","name":"ethBalanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenBalanceOf","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"depositEther","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"depositToken","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdrawEther","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdrawToken","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"createOrder","stateMutability":"nonpayable","inputs":[{"name":"sellToken","type":"address"},{"name":"sellAmount","type":"uint256"},{"name":"buyToken","type":"address"},{"name":"buyAmount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"cancelOrder","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"fillOrder","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"CreateOrder","inputs":[{"name":"id","type":"uint256","indexed":false},{"name":"account","type":"address","indexed":false},{"name":"sellToken","type":"address","indexed":false},{"name":"sellAmount","type":"uint256","indexed":false},{"name":"buyToken","type":"address","indexed":false},{"name":"buyAmount","type":"uint256","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false},
	{"type":"event","name":"CancelOrder","inputs":[{"name":"id","type":"uint256","indexed":false},{"name":"account","type":"address","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false},
	{"type":"event","name":"Trade","inputs":[{"name":"orderId","type":"uint256","indexed":false},{"name":"sellAccount","type":"address","indexed":false},{"name":"sellToken","type":"address","indexed":false},{"name":"sellAmount","type":"uint256","indexed":false},{"name":"buyAccount","type":"address","indexed":false},{"name":"buyToken","type":"address","indexed":false},{"name":"buyAmount","type":"uint256","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false}
]`

const tokenABI = `[
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// Log structs mirror the ABI argument names for UnpackLog.
type exchangeCreateOrder struct {
	Id         *big.Int
	Account    common.Address
	SellToken  common.Address
	SellAmount *big.Int
	BuyToken   common.Address
	BuyAmount  *big.Int
	Timestamp  *big.Int
}

type exchangeCancelOrder struct {
	Id        *big.Int
	Account   common.Address
	Timestamp *big.Int
}

type exchangeTrade struct {
	OrderId     *big.Int
	SellAccount common.Address
	SellToken   common.Address
	SellAmount  *big.Int
	BuyAccount  common.Address
	BuyToken    common.Address
	BuyAmount   *big.Int
	Timestamp   *big.Int
}

// Contract is the go-ethereum implementation of Backend: one bound exchange
// contract, one bound token contract for approvals, and the transact options
// of the connected signer.
type Contract struct {
	exchange *bind.BoundContract
	token    *bind.BoundContract
	signer   *bind.TransactOpts
}

// NewContract binds the exchange and token contracts against an RPC backend.
// A zero exchange address is a configuration error, not a transient one.
func NewContract(backend bind.ContractBackend, exchangeAddr, tokenAddr common.Address, signer *bind.TransactOpts) (*Contract, error) {
	if exchangeAddr == (common.Address{}) {
		return nil, fmt.Errorf("exchange address missing")
	}

	exABI, err := abi.JSON(strings.NewReader(exchangeABI))
	if err != nil {
		return nil, fmt.Errorf("parse exchange abi: %w", err)
	}
	tokABI, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	return &Contract{
		exchange: bind.NewBoundContract(exchangeAddr, exABI, backend, backend, backend),
		token:    bind.NewBoundContract(tokenAddr, tokABI, backend, backend, backend),
		signer:   signer,
	}, nil
}

func (c *Contract) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.signer
	opts.Context = ctx
	return &opts
}

// drainLogs consumes a FilterLogs channel the way generated bindings do: read
// until the producer reports completion, then drain whatever is still
// buffered.
func drainLogs(logs chan types.Log, sub event.Subscription, unpack func(types.Log) error) error {
	defer sub.Unsubscribe()
	done := false
	for {
		if done {
			select {
			case l := <-logs:
				if err := unpack(l); err != nil {
					return err
				}
			default:
				return nil
			}
			continue
		}
		select {
		case l := <-logs:
			if err := unpack(l); err != nil {
				return err
			}
		case err := <-sub.Err():
			if err != nil {
				return err
			}
			done = true
		}
	}
}

func (c *Contract) FilterCreateOrders(ctx context.Context) ([]CreateOrderEvent, error) {
	logs, sub, err := c.exchange.FilterLogs(&bind.FilterOpts{Context: ctx}, "CreateOrder")
	if err != nil {
		return nil, err
	}
	var out []CreateOrderEvent
	err = drainLogs(logs, sub, func(l types.Log) error {
		var raw exchangeCreateOrder
		if err := c.exchange.UnpackLog(&raw, "CreateOrder", l); err != nil {
			return err
		}
		out = append(out, createEventFromRaw(raw))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Contract) FilterCancelOrders(ctx context.Context) ([]CancelOrderEvent, error) {
	logs, sub, err := c.exchange.FilterLogs(&bind.FilterOpts{Context: ctx}, "CancelOrder")
	if err != nil {
		return nil, err
	}
	var out []CancelOrderEvent
	err = drainLogs(logs, sub, func(l types.Log) error {
		var raw exchangeCancelOrder
		if err := c.exchange.UnpackLog(&raw, "CancelOrder", l); err != nil {
			return err
		}
		out = append(out, CancelOrderEvent{ID: raw.Id, Account: raw.Account, Timestamp: raw.Timestamp})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Contract) FilterTrades(ctx context.Context) ([]TradeEvent, error) {
	logs, sub, err := c.exchange.FilterLogs(&bind.FilterOpts{Context: ctx}, "Trade")
	if err != nil {
		return nil, err
	}
	var out []TradeEvent
	err = drainLogs(logs, sub, func(l types.Log) error {
		var raw exchangeTrade
		if err := c.exchange.UnpackLog(&raw, "Trade", l); err != nil {
			return err
		}
		out = append(out, tradeEventFromRaw(raw))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Contract) WatchCreateOrders(ctx context.Context, sink chan<- CreateOrderEvent) (event.Subscription, error) {
	logs, sub, err := c.exchange.WatchLogs(&bind.WatchOpts{Context: ctx}, "CreateOrder")
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				var raw exchangeCreateOrder
				if err := c.exchange.UnpackLog(&raw, "CreateOrder", l); err != nil {
					return err
				}
				select {
				case sink <- createEventFromRaw(raw):
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (c *Contract) WatchCancelOrders(ctx context.Context, sink chan<- CancelOrderEvent) (event.Subscription, error) {
	logs, sub, err := c.exchange.WatchLogs(&bind.WatchOpts{Context: ctx}, "CancelOrder")
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				var raw exchangeCancelOrder
				if err := c.exchange.UnpackLog(&raw, "CancelOrder", l); err != nil {
					return err
				}
				select {
				case sink <- CancelOrderEvent{ID: raw.Id, Account: raw.Account, Timestamp: raw.Timestamp}:
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (c *Contract) WatchTrades(ctx context.Context, sink chan<- TradeEvent) (event.Subscription, error) {
	logs, sub, err := c.exchange.WatchLogs(&bind.WatchOpts{Context: ctx}, "Trade")
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				var raw exchangeTrade
				if err := c.exchange.UnpackLog(&raw, "Trade", l); err != nil {
					return err
				}
				select {
				case sink <- tradeEventFromRaw(raw):
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func createEventFromRaw(raw exchangeCreateOrder) CreateOrderEvent {
	return CreateOrderEvent{
		ID:         raw.Id,
		Account:    raw.Account,
		SellAsset:  raw.SellToken,
		SellAmount: raw.SellAmount,
		BuyAsset:   raw.BuyToken,
		BuyAmount:  raw.BuyAmount,
		Timestamp:  raw.Timestamp,
	}
}

func tradeEventFromRaw(raw exchangeTrade) TradeEvent {
	return TradeEvent{
		OrderID:     raw.OrderId,
		SellAccount: raw.SellAccount,
		SellAsset:   raw.SellToken,
		SellAmount:  raw.SellAmount,
		BuyAccount:  raw.BuyAccount,
		BuyAsset:    raw.BuyToken,
		BuyAmount:   raw.BuyAmount,
		Timestamp:   raw.Timestamp,
	}
}

func (c *Contract) callUint(ctx context.Context, bound *bind.BoundContract, method string, args ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Contract) EthBalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.callUint(ctx, c.exchange, "ethBalanceOf", account)
}

func (c *Contract) TokenBalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return c.callUint(ctx, c.exchange, "tokenBalanceOf", token, account)
}

func (c *Contract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return c.callUint(ctx, c.token, "allowance", owner, spender)
}

func (c *Contract) Approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	_, err := c.token.Transact(c.transactOpts(ctx), "approve", spender, amount)
	return err
}

func (c *Contract) DepositEther(ctx context.Context, value *big.Int) error {
	opts := c.transactOpts(ctx)
	opts.Value = value
	_, err := c.exchange.Transact(opts, "depositEther")
	return err
}

func (c *Contract) DepositToken(ctx context.Context, token common.Address, amount *big.Int) error {
	_, err := c.exchange.Transact(c.transactOpts(ctx), "depositToken", token, amount)
	return err
}

func (c *Contract) WithdrawEther(ctx context.Context, amount *big.Int) error {
	_, err := c.exchange.Transact(c.transactOpts(ctx), "withdrawEther", amount)
	return err
}

func (c *Contract) WithdrawToken(ctx context.Context, token common.Address, amount *big.Int) error {
	_, err := c.exchange.Transact(c.transactOpts(ctx), "withdrawToken", token, amount)
	return err
}

func (c *Contract) CreateOrder(ctx context.Context, sellAsset common.Address, sellAmount *big.Int, buyAsset common.Address, buyAmount *big.Int) error {
	_, err := c.exchange.Transact(c.transactOpts(ctx), "createOrder", sellAsset, sellAmount, buyAsset, buyAmount)
	return err
}

func (c *Contract) CancelOrder(ctx context.Context, id *big.Int) error {
	_, err := c.exchange.Transact(c.transactOpts(ctx), "cancelOrder", id)
	return err
}

func (c *Contract) FillOrder(ctx context.Context, id *big.Int) error {
	_, err := c.exchange.Transact(c.transactOpts(ctx), "fillOrder", id)
	return err
}

var _ Backend = (*Contract)(nil)
