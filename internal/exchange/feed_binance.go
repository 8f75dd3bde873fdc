package exchange

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"signalbot-go/internal/market"
)

func (f *Feed) runBinance(ctx context.Context) error {
	if f.asset == "" {
		return fmt.Errorf("binance feed requires a symbol")
	}

	url := fmt.Sprintf("%s/stream?streams=%s@trade", f.binanceURL, strings.ToLower(f.asset))
	backoff := f.reconnectMin

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		connected, err := f.consumeBinanceStream(ctx, url)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// a session that got through the handshake starts the delay over
		if connected {
			backoff = f.reconnectMin
		}
		f.log.Warn().Err(err).Dur("retry_in", backoff).Msg("binance feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, f.reconnectMax)
	}
}

func nextBackoff(d, limit time.Duration) time.Duration {
	return time.Duration(math.Min(float64(limit), float64(d)*1.8))
}

// consumeBinanceStream reads trades until the connection fails. connected
// reports whether the handshake succeeded.
func (f *Feed) consumeBinanceStream(ctx context.Context, url string) (connected bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: f.timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("symbol", f.asset).Msg("connected price stream")

	// ReadMessage blocks; closing the connection is what unblocks it on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return true, err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		px, err := parseBinanceTrade(message)
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid trade from binance")
			continue
		}
		f.storePrice(px, time.Now())
	}
}

// parseBinanceTrade reads the price from a combined-stream or raw trade message.
func parseBinanceTrade(message []byte) (float64, error) {
	data := gjson.GetBytes(message, "data")
	if !data.Exists() {
		data = gjson.ParseBytes(message)
	}
	price := data.Get("p")
	if !price.Exists() {
		return 0, fmt.Errorf("trade missing price")
	}
	px := price.Float()
	if !market.ValidPrice(px) {
		return 0, fmt.Errorf("trade price %q not usable", price.String())
	}
	return px, nil
}
