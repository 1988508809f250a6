// Package cache keeps a small local copy of observed trades so a
// reconnecting UI has history to show before the chain backfill completes.
// The chain remains authoritative: backfill results overwrite whatever is
// cached.
package cache

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"github.com/todex/todex-client/pkg/exchange"
)

var tradePrefix = []byte("trade/")

// Trades is a Pebble-backed store of projected trades keyed by order id.
type Trades struct {
	db *pebble.DB
}

// Open opens (or creates) the cache at the given path.
func Open(path string) (*Trades, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20), // 8MB, the cache holds tens of records
		MemTableSize: 4 << 20,
		MaxOpenFiles: 100,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open trade cache at %s: %w", path, err)
	}
	return &Trades{db: db}, nil
}

// Close closes the underlying database.
func (t *Trades) Close() error {
	return t.db.Close()
}

// Put stores a trade, overwriting any previous record for the same order id.
func (t *Trades) Put(trade exchange.Trade) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade %s: %w", trade.OrderID, err)
	}
	if err := t.db.Set(tradeKey(trade.OrderID), data, pebble.Sync); err != nil {
		return fmt.Errorf("store trade %s: %w", trade.OrderID, err)
	}
	return nil
}

// Recent returns up to limit cached trades, newest first.
func (t *Trades) Recent(limit int) ([]exchange.Trade, error) {
	iter, err := t.db.NewIter(&pebble.IterOptions{
		LowerBound: tradePrefix,
		UpperBound: append(append([]byte{}, tradePrefix...), 0xff),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate trade cache: %w", err)
	}
	defer iter.Close()

	var trades []exchange.Trade
	for iter.First(); iter.Valid(); iter.Next() {
		var trade exchange.Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			return nil, fmt.Errorf("decode cached trade %s: %w", iter.Key(), err)
		}
		trades = append(trades, trade)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	if len(trades) > limit {
		trades = trades[:limit]
	}
	return trades, nil
}

func tradeKey(orderID string) []byte {
	return append(append([]byte{}, tradePrefix...), orderID...)
}
