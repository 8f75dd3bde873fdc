package strategy

import sig "signalbot-go/internal/signal"

// Momentum is a rule-based classifier: it follows the short-term return when
// the fast moving average agrees with its direction.
type Momentum struct {
	threshold float64
}

// NewMomentum builds a Momentum classifier; threshold is the minimum absolute
// three-step return that produces a trade.
func NewMomentum(threshold float64) *Momentum {
	if threshold <= 0 {
		threshold = 0.002
	}
	return &Momentum{threshold: threshold}
}

// Name returns the identifier for logging.
func (m *Momentum) Name() string { return "Momentum" }

// Predict emits BUY on an up-move confirmed by MA6 above MA12, SELL on the mirror case.
func (m *Momentum) Predict(v FeatureVector) (sig.Signal, error) {
	if err := checkFinite(v); err != nil {
		return sig.Hold, err
	}
	switch {
	case v.Return3 >= m.threshold && v.MA6 > v.MA12:
		return sig.Buy, nil
	case v.Return3 <= -m.threshold && v.MA6 < v.MA12:
		return sig.Sell, nil
	}
	return sig.Hold, nil
}
