package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the periodic trigger cadence.
const DefaultInterval = 10 * time.Second

// Runner is the unattended periodic trigger. It fetches a price every interval
// and hands it to the coordinator; no single failure stops it.
type Runner struct {
	coord    *Coordinator
	source   PriceSource
	interval time.Duration
	log      zerolog.Logger
	observe  func(CycleResult)
}

// NewRunner wires a source to a coordinator. observe, when non-nil, sees every cycle result.
func NewRunner(coord *Coordinator, source PriceSource, interval time.Duration, log zerolog.Logger, observe func(CycleResult)) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{coord: coord, source: source, interval: interval, log: log, observe: observe}
}

// Run ticks once immediately and then every interval until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info().Str("source", r.source.Name()).Dur("interval", r.interval).Msg("starting trading loop")
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	res, err := r.coord.Trigger(ctx, r.source)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return
		}
		r.log.Warn().Err(err).Msg("tick skipped")
		return
	}
	if r.observe != nil {
		r.observe(res)
	}
}
