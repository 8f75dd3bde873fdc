// Package paper keeps the simulated portfolio the trade rule mutates.
package paper

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"signalbot-go/internal/execution"
	"signalbot-go/internal/market"
	sig "signalbot-go/internal/signal"
)

// DefaultStartingCash seeds a fresh account.
const DefaultStartingCash = 10000.0

var (
	// ErrInsufficientCash rejects a BUY priced above available cash.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrInsufficientAsset rejects a SELL with no units held.
	ErrInsufficientAsset = errors.New("insufficient asset")
	// ErrInvalidPrice rejects a trade at a non-positive or non-finite price.
	ErrInvalidPrice = errors.New("invalid trade price")
	// ErrUnknownSignal rejects a signal outside BUY/HOLD/SELL.
	ErrUnknownSignal = errors.New("unknown signal")
)

// Portfolio is a read-only view of the account balances.
type Portfolio struct {
	Cash  float64 `json:"usd"`
	Units int     `json:"btc"`
}

// Equity marks the portfolio at the supplied price.
func (p Portfolio) Equity(mark float64) float64 {
	return decimal.NewFromFloat(p.Cash).Add(decimal.NewFromFloat(mark).Mul(decimal.NewFromInt(int64(p.Units)))).InexactFloat64()
}

// Account tracks virtual cash and whole asset units. Every trade moves exactly one unit.
type Account struct {
	mu    sync.Mutex
	cash  decimal.Decimal
	units int
}

// NewAccount constructs an account holding startingCash and no units.
func NewAccount(startingCash float64) *Account {
	if startingCash < 0 {
		startingCash = 0
	}
	return &Account{cash: decimal.NewFromFloat(startingCash)}
}

// Apply runs the one-unit trade rule for s at price.
func (a *Account) Apply(s sig.Signal, price float64) execution.Outcome {
	if s == sig.Hold {
		return execution.Outcome{Status: execution.NoOp, Signal: s}
	}
	if !s.Valid() {
		return rejected(s, ErrUnknownSignal)
	}
	if !market.ValidPrice(price) {
		return rejected(s, ErrInvalidPrice)
	}
	px := decimal.NewFromFloat(price)

	a.mu.Lock()
	defer a.mu.Unlock()

	switch s {
	case sig.Buy:
		if a.cash.LessThan(px) {
			return rejected(s, ErrInsufficientCash)
		}
		a.cash = a.cash.Sub(px)
		a.units++
	case sig.Sell:
		if a.units < 1 {
			return rejected(s, ErrInsufficientAsset)
		}
		a.cash = a.cash.Add(px)
		a.units--
	}
	return execution.Outcome{Status: execution.Executed, Signal: s}
}

func rejected(s sig.Signal, reason error) execution.Outcome {
	return execution.Outcome{Status: execution.Rejected, Signal: s, Reason: reason}
}

// Snapshot returns a copy of the balances.
func (a *Account) Snapshot() Portfolio {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Portfolio{Cash: a.cash.InexactFloat64(), Units: a.units}
}
