// Package signal standardizes payloads shared between price ingestion, classification and execution.
package signal

import (
	"fmt"
	"time"
)

// Observation is one recorded price for the traded asset.
type Observation struct {
	Price      float64
	ObservedAt time.Time
}

// Signal is the discrete trading decision produced by a classifier.
type Signal int

const (
	// Sell closes one unit.
	Sell Signal = -1
	// Hold leaves the portfolio untouched.
	Hold Signal = 0
	// Buy opens one unit.
	Buy Signal = 1
)

// Valid reports whether s is one of the three known decisions.
func (s Signal) Valid() bool { return s >= Sell && s <= Buy }

func (s Signal) String() string {
	switch s {
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	case Buy:
		return "BUY"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// FromClass converts a classifier class label into a Signal.
func FromClass(class int) (Signal, error) {
	s := Signal(class)
	if !s.Valid() {
		return Hold, fmt.Errorf("class %d is not a trading signal", class)
	}
	return s, nil
}
