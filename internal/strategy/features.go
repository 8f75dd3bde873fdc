package strategy

import "math"

// WindowSize is the number of trailing prices a FeatureVector is derived from.
const WindowSize = 13

// NumFeatures is the width of a FeatureVector.
const NumFeatures = 5

// FeatureVector holds the statistics a classifier sees for the newest price.
type FeatureVector struct {
	Return1 float64 `json:"return_1"`
	Return3 float64 `json:"return_3"`
	Return6 float64 `json:"return_6"`
	MA6     float64 `json:"ma_6"`
	MA12    float64 `json:"ma_12"`
}

// Values returns the features in model column order.
func (v FeatureVector) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{v.Return1, v.Return3, v.Return6, v.MA6, v.MA12}
}

// FeatureNames lists the model columns in the order Values uses.
var FeatureNames = [NumFeatures]string{"return_1", "return_3", "return_6", "ma_6", "ma_12"}

// Compute derives a FeatureVector from the trailing WindowSize prices of history.
// It reports false while history is too short or when any price in the window is
// zero, negative or not finite.
func Compute(history []float64) (FeatureVector, bool) {
	if len(history) < WindowSize {
		return FeatureVector{}, false
	}
	p := history[len(history)-WindowSize:]
	for _, px := range p {
		if !(px > 0) || math.IsInf(px, 0) {
			return FeatureVector{}, false
		}
	}

	last := p[WindowSize-1]
	v := FeatureVector{
		Return1: last/p[11] - 1,
		Return3: last/p[9] - 1,
		Return6: last/p[6] - 1,
		MA6:     mean(p[7:]),
		MA12:    mean(p[1:]),
	}
	for _, x := range v.Values() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return FeatureVector{}, false
		}
	}
	return v, true
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
