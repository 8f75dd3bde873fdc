package strategy

import (
	"math"
	"testing"
)

func ramp(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func TestComputeNeedsFullWindow(t *testing.T) {
	for n := 0; n < WindowSize; n++ {
		if _, ok := Compute(ramp(n, 100)); ok {
			t.Fatalf("expected no vector for %d prices", n)
		}
	}
	if _, ok := Compute(ramp(WindowSize, 100)); !ok {
		t.Fatalf("expected vector for exactly %d prices", WindowSize)
	}
	if _, ok := Compute(ramp(40, 100)); !ok {
		t.Fatalf("expected vector for long history")
	}
}

func TestComputeValues(t *testing.T) {
	v, ok := Compute(ramp(WindowSize, 100))
	if !ok {
		t.Fatalf("expected vector")
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"return_1", v.Return1, 112.0/111.0 - 1},
		{"return_3", v.Return3, 112.0/109.0 - 1},
		{"return_6", v.Return6, 112.0/106.0 - 1},
		{"ma_6", v.MA6, 109.5},
		{"ma_12", v.MA12, 106.5},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-12 {
			t.Fatalf("%s: expected %.12f got %.12f", c.name, c.want, c.got)
		}
	}
	if math.Abs(v.Return1-0.009) > 0.001 {
		t.Fatalf("return_1 should be about 0.009, got %.6f", v.Return1)
	}
}

func TestComputeUsesTrailingWindow(t *testing.T) {
	history := append([]float64{0, math.NaN(), 5}, ramp(WindowSize, 100)...)
	v, ok := Compute(history)
	if !ok {
		t.Fatalf("bad prices before the window must not matter")
	}
	if v.MA12 != 106.5 {
		t.Fatalf("unexpected ma_12 %.4f", v.MA12)
	}
}

func TestComputeRejectsBadPricesInWindow(t *testing.T) {
	bad := []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, px := range bad {
		for pos := 0; pos < WindowSize; pos++ {
			history := ramp(WindowSize, 100)
			history[pos] = px
			if v, ok := Compute(history); ok {
				t.Fatalf("expected no vector with %v at %d, got %+v", px, pos, v)
			}
		}
	}
}

func TestComputeZeroAtPositionFive(t *testing.T) {
	history := ramp(WindowSize, 100)
	history[5] = 0
	// every window that still includes the zero must be rejected
	for extra := 0; extra <= 5; extra++ {
		h := append(append([]float64(nil), history...), ramp(extra, 200)...)
		if _, ok := Compute(h); ok {
			t.Fatalf("expected no vector with %d prices after the zero", extra)
		}
	}
	h := append(append([]float64(nil), history...), ramp(6, 200)...)
	if _, ok := Compute(h); !ok {
		t.Fatalf("expected vector once the zero leaves the window")
	}
}
