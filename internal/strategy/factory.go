// Package strategy turns price history into features and features into trading signals.
package strategy

import (
	"fmt"
	"strings"

	sig "signalbot-go/internal/signal"
)

// Classifier maps a FeatureVector to a trading signal. Implementations must be
// deterministic and free of side effects.
type Classifier interface {
	Predict(v FeatureVector) (sig.Signal, error)
	Name() string
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(v FeatureVector) (sig.Signal, error)

// Predict calls f(v).
func (f ClassifierFunc) Predict(v FeatureVector) (sig.Signal, error) { return f(v) }

// Name returns the identifier for the adapter.
func (f ClassifierFunc) Name() string { return "func" }

// Params expresses tunable knobs required by classifier constructors.
type Params struct {
	ModelPath         string
	MomentumThreshold float64
}

// Build returns a classifier matching the configured mode. Loading a model
// artifact can fail; callers treat that as fatal.
func Build(mode string, params Params) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "forest", "random_forest":
		forest, err := LoadForest(params.ModelPath)
		if err != nil {
			return nil, err
		}
		return forest, nil
	case "momentum", "rule":
		return NewMomentum(params.MomentumThreshold), nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", mode)
	}
}
