// Package market holds the append-only price history shared by feature computation.
package market

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"signalbot-go/internal/signal"
)

var (
	// ErrInvalidObservation marks a price that is non-positive or not a finite number.
	ErrInvalidObservation = errors.New("invalid observation")
	// ErrOutOfOrder marks an observation timestamped before the last recorded one.
	ErrOutOfOrder = errors.New("observation out of order")
)

// ValidPrice reports whether px can be recorded.
func ValidPrice(px float64) bool {
	return px > 0 && !math.IsNaN(px) && !math.IsInf(px, 0)
}

// Ledger stores observed prices in arrival order for the lifetime of the process.
type Ledger struct {
	mu  sync.RWMutex
	obs []signal.Observation
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{obs: make([]signal.Observation, 0, capacity)}
}

// Append records an observation. Entries are never reordered or dropped.
func (l *Ledger) Append(o signal.Observation) error {
	if !ValidPrice(o.Price) {
		return fmt.Errorf("%w: price %v", ErrInvalidObservation, o.Price)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.obs); n > 0 && o.ObservedAt.Before(l.obs[n-1].ObservedAt) {
		return fmt.Errorf("%w: %s before %s", ErrOutOfOrder, o.ObservedAt, l.obs[n-1].ObservedAt)
	}
	l.obs = append(l.obs, o)
	return nil
}

// Snapshot returns a copy of the recorded prices, oldest first.
func (l *Ledger) Snapshot() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]float64, len(l.obs))
	for i, o := range l.obs {
		out[i] = o.Price
	}
	return out
}

// Len reports the number of recorded observations.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.obs)
}

// Last returns the newest observation, if any.
func (l *Ledger) Last() (signal.Observation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.obs) == 0 {
		return signal.Observation{}, false
	}
	return l.obs[len(l.obs)-1], true
}
