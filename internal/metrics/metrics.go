// Package metrics registers the prometheus collectors exported by the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signalbot_observations_total", Help: "Prices fetched from a source"},
		[]string{"source"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signalbot_fetch_errors_total", Help: "Price fetches that yielded no usable price"},
		[]string{"source"},
	)
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signalbot_cycles_total", Help: "Pipeline cycles by final state"},
		[]string{"state"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signalbot_trades_total", Help: "Trade rule applications"},
		[]string{"signal", "status"},
	)
	LastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "signalbot_last_price", Help: "Most recently recorded price"},
	)
	PortfolioCash = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "signalbot_portfolio_cash", Help: "Paper portfolio cash balance"},
	)
	PortfolioUnits = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "signalbot_portfolio_units", Help: "Paper portfolio asset units"},
	)
	CycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "signalbot_cycle_seconds", Help: "Time spent inside the cycle critical section", Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8)},
	)
)

func init() {
	prometheus.MustRegister(ObservationsTotal, FetchErrorsTotal, CyclesTotal, TradesTotal, LastPrice, PortfolioCash, PortfolioUnits, CycleSeconds)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
