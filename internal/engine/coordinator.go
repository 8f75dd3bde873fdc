// Package engine serializes the observe → extend → classify → execute pipeline
// shared by the periodic loop and on-demand triggers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signalbot-go/internal/execution"
	"signalbot-go/internal/market"
	"signalbot-go/internal/metrics"
	"signalbot-go/internal/paper"
	sig "signalbot-go/internal/signal"
	"signalbot-go/internal/strategy"
)

// ErrInsufficientHistory aborts a cycle whose ledger cannot fill a feature window yet.
var ErrInsufficientHistory = errors.New("insufficient history")

// ClassificationError wraps a classifier failure. The cycle it aborts trades nothing.
type ClassificationError struct {
	Classifier string
	Err        error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify with %s: %v", e.Classifier, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// State is a step of a cycle.
type State int

const (
	Fetching State = iota
	Extending
	Classifying
	Executing
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Extending:
		return "extending"
	case Classifying:
		return "classifying"
	case Executing:
		return "executing"
	case Done:
		return "done"
	default:
		return "aborted"
	}
}

// PriceSource supplies the latest observed price on demand.
type PriceSource interface {
	LatestPrice(ctx context.Context) (float64, error)
	Name() string
}

// CycleResult describes one processed observation.
type CycleResult struct {
	ID         uuid.UUID
	Price      float64
	ObservedAt time.Time
	HistoryLen int
	Features   *strategy.FeatureVector
	Signal     sig.Signal
	Outcome    execution.Outcome
	Portfolio  paper.Portfolio
	State      State
	AbortedIn  State // step that failed when State is Aborted
	Err        error
}

// Aborted reports whether the cycle stopped before reaching the trade rule.
func (r CycleResult) Aborted() bool { return r.State == Aborted }

// Coordinator owns the price ledger and the paper account. Each RunCycle holds
// a single lock from append to trade so cycles never interleave.
type Coordinator struct {
	mu         sync.Mutex
	ledger     *market.Ledger
	account    *paper.Account
	classifier strategy.Classifier
	executor   *execution.Executor
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures Coordinator construction parameters.
type Option func(*Coordinator)

// WithStartingCash seeds the paper account.
func WithStartingCash(cash float64) Option {
	return func(c *Coordinator) {
		c.account = paper.NewAccount(cash)
	}
}

// WithClock overrides time.Now for observation timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithExecutor routes trade reports through executor.
func WithExecutor(executor *execution.Executor) Option {
	return func(c *Coordinator) {
		if executor != nil {
			c.executor = executor
		}
	}
}

// NewCoordinator builds a coordinator with an empty ledger and a freshly seeded account.
func NewCoordinator(classifier strategy.Classifier, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger:     market.NewLedger(1024),
		account:    paper.NewAccount(paper.DefaultStartingCash),
		classifier: classifier,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = execution.NewExecutor(log, nil)
	}
	c.publishPortfolio(c.account.Snapshot())
	return c
}

// Trigger fetches a price outside the critical section and runs a cycle for it.
// A fetch failure runs no cycle.
func (c *Coordinator) Trigger(ctx context.Context, source PriceSource) (CycleResult, error) {
	price, err := source.LatestPrice(ctx)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(source.Name()).Inc()
		return CycleResult{State: Aborted, AbortedIn: Fetching, Err: err}, fmt.Errorf("fetch price from %s: %w", source.Name(), err)
	}
	metrics.ObservationsTotal.WithLabelValues(source.Name()).Inc()
	return c.RunCycle(price)
}

// RunCycle records price and, once enough history exists, classifies it and
// applies the signal to the account. An invalid price is dropped and returns
// market.ErrInvalidObservation without running a cycle; every other failure is
// reported in the result. A started cycle always runs to completion.
func (c *Coordinator) RunCycle(price float64) (CycleResult, error) {
	if !market.ValidPrice(price) {
		metrics.CyclesTotal.WithLabelValues("invalid").Inc()
		c.log.Warn().Float64("px", price).Msg("dropping invalid observation")
		return CycleResult{State: Aborted, AbortedIn: Extending, Price: price}, fmt.Errorf("%w: price %v", market.ErrInvalidObservation, price)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	started := time.Now()
	defer func() { metrics.CycleSeconds.Observe(time.Since(started).Seconds()) }()

	res := CycleResult{
		ID:      uuid.New(),
		Price:   price,
		Signal:  sig.Hold,
		Outcome: execution.Outcome{Status: execution.NoOp, Signal: sig.Hold},
		State:   Extending,
	}

	at := c.now()
	if last, ok := c.ledger.Last(); ok && at.Before(last.ObservedAt) {
		at = last.ObservedAt
	}
	res.ObservedAt = at
	if err := c.ledger.Append(sig.Observation{Price: price, ObservedAt: at}); err != nil {
		return c.abort(res, err), nil
	}
	metrics.LastPrice.Set(price)

	history := c.ledger.Snapshot()
	res.HistoryLen = len(history)
	features, ok := strategy.Compute(history)
	if !ok {
		return c.abort(res, fmt.Errorf("%w: %d of %d prices", ErrInsufficientHistory, len(history), strategy.WindowSize)), nil
	}
	res.Features = &features

	res.State = Classifying
	signal, err := c.predict(features)
	if err == nil && !signal.Valid() {
		err = fmt.Errorf("classifier returned %s", signal)
	}
	if err != nil {
		return c.abort(res, &ClassificationError{Classifier: c.classifier.Name(), Err: err}), nil
	}
	res.Signal = signal

	res.State = Executing
	res.Outcome = c.account.Apply(signal, price)
	res.Portfolio = c.account.Snapshot()
	res.State = Done

	c.executor.Report(execution.Trade{
		ID:        res.ID,
		Signal:    signal,
		Price:     price,
		Timestamp: at,
		Outcome:   res.Outcome,
	})
	c.publishPortfolio(res.Portfolio)
	metrics.CyclesTotal.WithLabelValues(Done.String()).Inc()
	c.log.Info().
		Str("cycle", res.ID.String()).
		Float64("px", price).
		Int("history", res.HistoryLen).
		Str("signal", signal.String()).
		Str("outcome", res.Outcome.Status.String()).
		Float64("usd", res.Portfolio.Cash).
		Int("btc", res.Portfolio.Units).
		Msg("cycle complete")
	return res, nil
}

// predict runs the classifier, turning a panic into an error so the cycle
// aborts like any other classification failure.
func (c *Coordinator) predict(v strategy.FeatureVector) (s sig.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = sig.Hold, fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return c.classifier.Predict(v)
}

func (c *Coordinator) abort(res CycleResult, err error) CycleResult {
	res.AbortedIn = res.State
	res.State = Aborted
	res.Err = err
	res.Portfolio = c.account.Snapshot()
	metrics.CyclesTotal.WithLabelValues(Aborted.String()).Inc()

	var event *zerolog.Event
	var classErr *ClassificationError
	switch {
	case errors.As(err, &classErr):
		event = c.log.Error()
	case errors.Is(err, ErrInsufficientHistory):
		event = c.log.Info()
	default:
		event = c.log.Warn()
	}
	event.Err(err).
		Str("cycle", res.ID.String()).
		Float64("px", res.Price).
		Str("step", res.AbortedIn.String()).
		Msg("cycle aborted")
	return res
}

func (c *Coordinator) publishPortfolio(p paper.Portfolio) {
	metrics.PortfolioCash.Set(p.Cash)
	metrics.PortfolioUnits.Set(float64(p.Units))
}

// Portfolio returns a snapshot of the paper account.
func (c *Coordinator) Portfolio() paper.Portfolio { return c.account.Snapshot() }

// HistoryLen reports how many prices have been recorded.
func (c *Coordinator) HistoryLen() int { return c.ledger.Len() }

// LastPrice returns the newest recorded price, if any.
func (c *Coordinator) LastPrice() (float64, bool) {
	last, ok := c.ledger.Last()
	return last.Price, ok
}
