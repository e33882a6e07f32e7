package core

import "math"

const defaultEpsilon = 1e-6

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float32) float32 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps, relative to the
// larger magnitude when both are non-zero.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormal converts tiny denormal-like values to exact zero.
// Filter integrators call this so silent tails do not decay into the
// subnormal range.
func FlushDenormal(x float32) float32 {
	const epsilon = 1e-15
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DecibelsToGain converts dB to linear amplitude (20*log10 convention).
func DecibelsToGain(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

// GainToDecibels converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func GainToDecibels(gain float32) float32 {
	if gain < 0 {
		return float32(math.NaN())
	}

	if gain == 0 {
		return float32(math.Inf(-1))
	}

	return float32(20 * math.Log10(float64(gain)))
}

// Quantize rounds value to the nearest multiple of step.
// Ties round half away from zero (math.Round), so Quantize(525, 10) is 530
// and Quantize(-5, 10) is -10. A non-positive step returns value unchanged.
func Quantize(value, step float32) float32 {
	if step <= 0 {
		return value
	}

	return float32(math.Round(float64(value)/float64(step)) * float64(step))
}

// IsFinite reports whether x is neither NaN nor an infinity.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
