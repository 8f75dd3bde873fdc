// Package execution describes trade outcomes and reports them to logs, metrics and journals.
package execution

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signalbot-go/internal/metrics"
	sig "signalbot-go/internal/signal"
)

// Status enumerates how the trade rule resolved a signal.
type Status int

const (
	// NoOp means the signal was HOLD.
	NoOp Status = iota
	// Executed means one unit moved.
	Executed
	// Rejected means the trade rule refused the signal; Reason says why.
	Rejected
)

func (s Status) String() string {
	switch s {
	case Executed:
		return "executed"
	case Rejected:
		return "rejected"
	default:
		return "noop"
	}
}

// Outcome is the result of applying one signal to the portfolio.
type Outcome struct {
	Status Status
	Signal sig.Signal
	Reason error
}

// MarshalJSON renders the outcome with string labels.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := struct {
		Status string `json:"status"`
		Signal string `json:"signal"`
		Reason string `json:"reason,omitempty"`
	}{Status: o.Status.String(), Signal: o.Signal.String()}
	if o.Reason != nil {
		out.Reason = o.Reason.Error()
	}
	return json.Marshal(out)
}

// Trade is one application of the trade rule. It exists for observability only.
type Trade struct {
	ID        uuid.UUID  `json:"id"`
	Signal    sig.Signal `json:"-"`
	Price     float64    `json:"price"`
	Timestamp time.Time  `json:"ts"`
	Outcome   Outcome    `json:"outcome"`
}

// Recorder captures trades for later inspection.
type Recorder interface {
	Record(Trade)
}

// Executor reports trades through a zerolog logger, metrics and an optional recorder.
type Executor struct {
	log      zerolog.Logger
	recorder Recorder
}

// NewExecutor wraps a logger and an optional recorder.
func NewExecutor(log zerolog.Logger, recorder Recorder) *Executor {
	return &Executor{log: log, recorder: recorder}
}

// Report logs the trade, counts it and forwards it to the recorder.
func (executor *Executor) Report(trade Trade) {
	metrics.TradesTotal.WithLabelValues(trade.Signal.String(), trade.Outcome.Status.String()).Inc()

	var event *zerolog.Event
	switch trade.Outcome.Status {
	case Executed:
		event = executor.log.Info()
	case Rejected:
		event = executor.log.Warn().AnErr("reason", trade.Outcome.Reason)
	default:
		event = executor.log.Debug()
	}
	event.Str("trade_id", trade.ID.String()).
		Str("signal", trade.Signal.String()).
		Float64("px", trade.Price).
		Str("status", trade.Outcome.Status.String()).
		Msg("trade")

	if executor.recorder != nil {
		executor.recorder.Record(trade)
	}
}
