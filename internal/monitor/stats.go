package monitor

import "math"

// Epsilon floors window variance and gates z-scores.
const Epsilon = 1e-9

// PctChange returns the percentage change from old to new.
// A zero old value yields 0 rather than a division fault.
func PctChange(newValue, oldValue float64) float64 {
	if oldValue == 0 {
		return 0
	}
	return (newValue - oldValue) / oldValue * 100
}

// RollingStats returns the mean and sample standard deviation of values.
// The divisor is max(1, n-1) and the variance is floored at Epsilon before
// the square root, so a flat or single-point window yields sqrt(Epsilon).
func RollingStats(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, Epsilon
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	variance := ss / float64(max(1, len(values)-1))
	return mean, math.Sqrt(math.Max(variance, Epsilon))
}

// ZScore is (x-mean)/std, or 0 when std is at or below Epsilon.
func ZScore(x, mean, std float64) float64 {
	if std <= Epsilon {
		return 0
	}
	return (x - mean) / std
}
