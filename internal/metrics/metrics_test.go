package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve(":0")
	defer srv.Close()

	CyclesTotal.WithLabelValues("done").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "signalbot_cycles_total" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("signalbot_cycles_total metric not found")
	}
}

func TestHandlerExposesGauges(t *testing.T) {
	LastPrice.Set(112)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "signalbot_last_price 112") {
		t.Fatalf("expected last price gauge in output")
	}
}
