package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"signalbot-go/internal/market"
)

func (f *Feed) fetchCoinGecko(ctx context.Context) (float64, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(f.coingeckoURL + "/api/v3/simple/price")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	queryArgs := req.URI().QueryArgs()
	queryArgs.Set("ids", f.asset)
	queryArgs.Set("vs_currencies", f.quote)

	deadline := time.Now().Add(f.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, fmt.Errorf("%w: coingecko request: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("%w: coingecko status %d", ErrUnavailable, resp.StatusCode())
	}

	result := gjson.GetBytes(resp.Body(), f.asset+"."+f.quote)
	if !result.Exists() {
		return 0, fmt.Errorf("%w: coingecko response missing %s.%s", ErrUnavailable, f.asset, f.quote)
	}
	px := result.Float()
	if !market.ValidPrice(px) {
		return 0, fmt.Errorf("%w: coingecko price %v", ErrUnavailable, px)
	}
	f.storePrice(px, time.Now())
	return px, nil
}
