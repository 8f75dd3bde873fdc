// Package api serves the on-demand trigger and read-only views over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"signalbot-go/internal/engine"
	"signalbot-go/internal/metrics"
	"signalbot-go/internal/paper"
)

// Waiting is reported while no cycle has produced a signal yet.
const Waiting = "WAITING"

// PredictResponse is the flat record served by /predict.
type PredictResponse struct {
	Price      *float64        `json:"price"`
	Prediction string          `json:"prediction"`
	Portfolio  paper.Portfolio `json:"portfolio"`
}

// PortfolioResponse is served by /portfolio.
type PortfolioResponse struct {
	paper.Portfolio
	Equity     float64 `json:"equity"`
	HistoryLen int     `json:"history_len"`
}

// Handler exposes the coordinator over HTTP.
type Handler struct {
	coord  *engine.Coordinator
	source engine.PriceSource
	good   *engine.LastKnownGood
	log    zerolog.Logger
}

// NewHandler builds a handler. good is shared with the periodic runner.
func NewHandler(coord *engine.Coordinator, source engine.PriceSource, good *engine.LastKnownGood, log zerolog.Logger) *Handler {
	if good == nil {
		good = &engine.LastKnownGood{}
	}
	return &Handler{coord: coord, source: source, good: good, log: log}
}

// Router mounts every route on a fresh gin engine wrapped in an allow-all CORS policy.
func (h *Handler) Router() http.Handler {
	router := gin.New()
	router.Use(RequestLogger(h.log))
	router.Use(ErrorHandler(h.log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/predict", h.Predict)
	router.GET("/portfolio", h.Portfolio)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return cors.AllowAll().Handler(router)
}

// Predict handles GET /predict: it runs one cycle on a freshly fetched price and
// answers with the newest completed price/signal pair.
func (h *Handler) Predict(c *gin.Context) {
	var current *float64
	prediction := Waiting

	res, err := h.coord.Trigger(c.Request.Context(), h.source)
	if err != nil {
		h.log.Warn().Err(err).Msg("on-demand cycle produced no signal")
	} else {
		px := res.Price
		current = &px
		if res.State == engine.Done {
			prediction = res.Signal.String()
		}
		h.good.Observe(res)
	}

	if price, signal, ok := h.good.Get(); ok {
		current = &price
		prediction = signal.String()
	}

	c.JSON(http.StatusOK, PredictResponse{
		Price:      current,
		Prediction: prediction,
		Portfolio:  h.coord.Portfolio(),
	})
}

// Portfolio handles GET /portfolio.
func (h *Handler) Portfolio(c *gin.Context) {
	p := h.coord.Portfolio()
	resp := PortfolioResponse{Portfolio: p, Equity: p.Cash, HistoryLen: h.coord.HistoryLen()}
	if last, ok := h.coord.LastPrice(); ok {
		resp.Equity = p.Equity(last)
	}
	c.JSON(http.StatusOK, resp)
}
