// Package exchange hosts the price sources the trading loop polls.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"signalbot-go/internal/market"
)

const (
	// ProviderStub emits a deterministic drifting price (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderCoinGecko polls the CoinGecko simple price endpoint.
	ProviderCoinGecko = "coingecko"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
)

// ErrUnavailable means the source has no usable price right now.
var ErrUnavailable = errors.New("price unavailable")

// Feed is a pluggable latest-price source.
type Feed struct {
	provider     string
	asset        string
	quote        string
	log          zerolog.Logger
	timeout      time.Duration
	maxStaleness time.Duration
	coingeckoURL string
	binanceURL   string
	reconnectMin time.Duration
	reconnectMax time.Duration
	client       *fasthttp.Client

	mu     sync.RWMutex
	last   float64
	lastAt time.Time
	stubPx float64
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxStaleness = 30 * time.Second
	defaultCoinGeckoURL = "https://api.coingecko.com"
	defaultBinanceURL   = "wss://stream.binance.com:9443"
	defaultReconnectMin = time.Second
	defaultReconnectMax = 30 * time.Second
	stubStart           = 100.0
	stubStep            = 0.1
)

// WithTimeout bounds a single HTTP fetch.
func WithTimeout(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxStaleness sets how old a streamed price may be before it counts as unavailable.
func WithMaxStaleness(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.maxStaleness = d
		}
	}
}

// WithCoinGeckoURL overrides the CoinGecko API base URL.
func WithCoinGeckoURL(baseURL string) Option {
	return func(f *Feed) {
		if baseURL != "" {
			f.coingeckoURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithBinanceURL overrides the Binance websocket base URL.
func WithBinanceURL(baseURL string) Option {
	return func(f *Feed) {
		if baseURL != "" {
			f.binanceURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// NewFeed constructs a feed backed by the requested provider. asset is the
// provider-specific instrument (a CoinGecko id such as "bitcoin" or a Binance
// symbol such as "BTCUSDT"); quote is the CoinGecko vs currency.
func NewFeed(provider, asset, quote string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	if quote == "" {
		quote = "usd"
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		asset:        strings.TrimSpace(asset),
		quote:        strings.ToLower(quote),
		log:          log,
		timeout:      defaultTimeout,
		maxStaleness: defaultMaxStaleness,
		coingeckoURL: defaultCoinGeckoURL,
		binanceURL:   defaultBinanceURL,
		reconnectMin: defaultReconnectMin,
		reconnectMax: defaultReconnectMax,
		stubPx:       stubStart,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client = &fasthttp.Client{
		Name:         "signalbot-go/1.0 (paper)",
		ReadTimeout:  f.timeout,
		WriteTimeout: f.timeout,
	}
	return f
}

// Name identifies the provider in logs and metrics.
func (f *Feed) Name() string { return f.provider }

// LatestPrice returns the newest usable price or an error wrapping ErrUnavailable.
func (f *Feed) LatestPrice(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch f.provider {
	case ProviderCoinGecko:
		return f.fetchCoinGecko(ctx)
	case ProviderBinance:
		return f.streamedPrice()
	default:
		return f.nextStub(), nil
	}
}

// Run keeps streaming providers connected until ctx is canceled. Polling
// providers need no background work and simply wait for cancellation.
func (f *Feed) Run(ctx context.Context) error {
	if f.provider == ProviderBinance {
		return f.runBinance(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *Feed) nextStub() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	px := f.stubPx
	f.stubPx += stubStep
	return px
}

func (f *Feed) storePrice(px float64, at time.Time) {
	f.mu.Lock()
	f.last = px
	f.lastAt = at
	f.mu.Unlock()
}

func (f *Feed) streamedPrice() (float64, error) {
	f.mu.RLock()
	px, at := f.last, f.lastAt
	f.mu.RUnlock()
	if at.IsZero() {
		return 0, ErrUnavailable
	}
	if age := time.Since(at); age > f.maxStaleness {
		return 0, fmt.Errorf("%w: stale price (%s old)", ErrUnavailable, age.Truncate(time.Millisecond))
	}
	if !market.ValidPrice(px) {
		return 0, ErrUnavailable
	}
	return px, nil
}
