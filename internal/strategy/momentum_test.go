package strategy

import (
	"errors"
	"math"
	"testing"

	sig "signalbot-go/internal/signal"
)

func TestMomentumSignals(t *testing.T) {
	m := NewMomentum(0.01)
	cases := []struct {
		name string
		v    FeatureVector
		want sig.Signal
	}{
		{"up confirmed", FeatureVector{Return3: 0.02, MA6: 105, MA12: 100}, sig.Buy},
		{"up unconfirmed", FeatureVector{Return3: 0.02, MA6: 99, MA12: 100}, sig.Hold},
		{"down confirmed", FeatureVector{Return3: -0.02, MA6: 95, MA12: 100}, sig.Sell},
		{"small move", FeatureVector{Return3: 0.005, MA6: 105, MA12: 100}, sig.Hold},
	}
	for _, c := range cases {
		got, err := m.Predict(c.v)
		if err != nil {
			t.Fatalf("%s: Predict returned error: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: expected %s got %s", c.name, c.want, got)
		}
	}
}

func TestMomentumRejectsNonFinite(t *testing.T) {
	if _, err := NewMomentum(0).Predict(FeatureVector{MA6: math.Inf(1)}); !errors.Is(err, ErrNonFiniteFeature) {
		t.Fatalf("expected ErrNonFiniteFeature, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	c, err := Build("momentum", Params{MomentumThreshold: 0.01})
	if err != nil || c.Name() != "Momentum" {
		t.Fatalf("expected momentum classifier, got %v (%v)", c, err)
	}
	c, err = Build("forest", Params{ModelPath: "testdata/forest.json"})
	if err != nil || c.Name() != "btc_predictor" {
		t.Fatalf("expected forest classifier, got %v (%v)", c, err)
	}
	if _, err := Build("forest", Params{ModelPath: "testdata/nope.json"}); err == nil {
		t.Fatalf("expected error for missing artifact")
	}
	if _, err := Build("svm", Params{}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestClassifierFunc(t *testing.T) {
	var c Classifier = ClassifierFunc(func(FeatureVector) (sig.Signal, error) { return sig.Sell, nil })
	if s, _ := c.Predict(FeatureVector{}); s != sig.Sell {
		t.Fatalf("expected SELL got %s", s)
	}
}
