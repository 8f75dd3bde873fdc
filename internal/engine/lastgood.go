package engine

import (
	"sync"
	"time"

	sig "signalbot-go/internal/signal"
)

// LastKnownGood remembers the price and signal of the newest completed cycle so
// readers can serve a stable answer when the current tick produced nothing.
type LastKnownGood struct {
	mu     sync.RWMutex
	ok     bool
	price  float64
	signal sig.Signal
	at     time.Time
}

// Observe updates the remembered pair. Aborted cycles are ignored.
func (l *LastKnownGood) Observe(res CycleResult) {
	if res.State != Done {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ok && res.ObservedAt.Before(l.at) {
		return
	}
	l.ok = true
	l.price = res.Price
	l.signal = res.Signal
	l.at = res.ObservedAt
}

// Get returns the remembered pair; ok is false until a cycle completes.
func (l *LastKnownGood) Get() (price float64, signal sig.Signal, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.price, l.signal, l.ok
}
