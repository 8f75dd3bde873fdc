package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestStubFeedDrifts(t *testing.T) {
	feed := NewFeed(ProviderStub, "BTCUSDT", "", zerolog.Nop())
	first, err := feed.LatestPrice(context.Background())
	if err != nil {
		t.Fatalf("LatestPrice returned error: %v", err)
	}
	second, _ := feed.LatestPrice(context.Background())
	if first != 100 || second <= first {
		t.Fatalf("expected drifting stub prices, got %v then %v", first, second)
	}
	if feed.Name() != ProviderStub {
		t.Fatalf("unexpected name %s", feed.Name())
	}
}

func TestLatestPriceHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	feed := NewFeed(ProviderStub, "", "", zerolog.Nop())
	if _, err := feed.LatestPrice(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCoinGeckoFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/simple/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("ids") != "bitcoin" || r.URL.Query().Get("vs_currencies") != "usd" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":67123.5}}`))
	}))
	defer server.Close()

	feed := NewFeed(ProviderCoinGecko, "bitcoin", "usd", zerolog.Nop(), WithCoinGeckoURL(server.URL), WithTimeout(2*time.Second))
	px, err := feed.LatestPrice(context.Background())
	if err != nil {
		t.Fatalf("LatestPrice returned error: %v", err)
	}
	if px != 67123.5 {
		t.Fatalf("unexpected price %v", px)
	}
}

func TestCoinGeckoUnavailable(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"server error":  {http.StatusInternalServerError, `{}`},
		"rate limited":  {http.StatusTooManyRequests, `{"status":{"error_code":429}}`},
		"missing asset": {http.StatusOK, `{"ethereum":{"usd":3000}}`},
		"zero price":    {http.StatusOK, `{"bitcoin":{"usd":0}}`},
		"negative":      {http.StatusOK, `{"bitcoin":{"usd":-1}}`},
		"garbage":       {http.StatusOK, `not json`},
	}
	for name, c := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}))
		feed := NewFeed(ProviderCoinGecko, "bitcoin", "usd", zerolog.Nop(), WithCoinGeckoURL(server.URL))
		_, err := feed.LatestPrice(context.Background())
		server.Close()
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s: expected ErrUnavailable, got %v", name, err)
		}
	}
}

func TestParseBinanceTrade(t *testing.T) {
	px, err := parseBinanceTrade([]byte(`{"stream":"btcusdt@trade","data":{"p":"67000.10","q":"0.01","T":1700000000000,"m":false}}`))
	if err != nil || px != 67000.10 {
		t.Fatalf("unexpected parse result %v (%v)", px, err)
	}
	if _, err := parseBinanceTrade([]byte(`{"data":{"q":"1"}}`)); err == nil {
		t.Fatalf("expected error for missing price")
	}
	if _, err := parseBinanceTrade([]byte(`{"p":"0"}`)); err == nil {
		t.Fatalf("expected error for zero price")
	}
}

func TestBinanceStreamUpdatesLatestPrice(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("streams"); got != "btcusdt@trade" {
			t.Errorf("unexpected streams %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"stream":"btcusdt@trade","data":{"p":"bad"}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"stream":"btcusdt@trade","data":{"p":"65000.5","T":1700000000000}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	feed := NewFeed(ProviderBinance, "BTCUSDT", "", zerolog.Nop(), WithBinanceURL(wsURL))
	if _, err := feed.LatestPrice(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable before first trade, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- feed.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		px, err := feed.LatestPrice(context.Background())
		if err == nil {
			if px != 65000.5 {
				t.Fatalf("unexpected price %v", px)
			}
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatalf("timed out waiting for streamed price")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("feed did not stop after cancel")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	d := time.Second
	for i := 0; i < 10; i++ {
		d = nextBackoff(d, 30*time.Second)
	}
	if d != 30*time.Second {
		t.Fatalf("expected backoff capped at 30s, got %s", d)
	}
}

func TestBinanceReconnectDelayResetsAfterSession(t *testing.T) {
	var sessions atomic.Int32
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sessions.Add(1)
		conn.Close()
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	feed := NewFeed(ProviderBinance, "BTCUSDT", "", zerolog.Nop(), WithBinanceURL(wsURL))
	feed.reconnectMin = 5 * time.Millisecond
	feed.reconnectMax = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- feed.Run(ctx) }()

	// growing delays would need about four seconds to reach twelve sessions
	deadline := time.After(3 * time.Second)
	for sessions.Load() < 12 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("reconnect delay kept growing: %d sessions", sessions.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStreamedPriceGoesStale(t *testing.T) {
	feed := NewFeed(ProviderBinance, "BTCUSDT", "", zerolog.Nop(), WithMaxStaleness(time.Second))
	feed.storePrice(100, time.Now().Add(-time.Minute))
	if _, err := feed.LatestPrice(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected stale price to be unavailable, got %v", err)
	}
	feed.storePrice(101, time.Now())
	if px, err := feed.LatestPrice(context.Background()); err != nil || px != 101 {
		t.Fatalf("expected fresh price, got %v (%v)", px, err)
	}
}
