package scoring

import (
	"fmt"
	"math"
)

// Scale is the total-point system an essay is graded on.
type Scale int

const (
	Scale10 Scale = 10
	Scale40 Scale = 40
)

// DefaultScale is used when neither the essay nor its original score says otherwise.
const DefaultScale = Scale40

// ParseScale validates a declared score system.
func ParseScale(value int) (Scale, error) {
	switch Scale(value) {
	case Scale10, Scale40:
		return Scale(value), nil
	default:
		return 0, fmt.Errorf("unsupported score scale %d", value)
	}
}

// ScaleFromOriginal infers the scale from a historical total: totals up to 10
// were given on the 10-point scale, anything else on the 40-point scale.
func ScaleFromOriginal(total *float64) Scale {
	if total == nil {
		return DefaultScale
	}
	if *total <= 10 {
		return Scale10
	}
	return Scale40
}

// ResolveScale prefers the declared score system and falls back to the
// original total when the declared value is unusable.
func ResolveScale(declared int, originalTotal *float64) Scale {
	if scale, err := ParseScale(declared); err == nil {
		return scale
	}
	return ScaleFromOriginal(originalTotal)
}

// Normalize converts a dimension sum on the 100-point basis to an integer total
// on the target scale, truncating toward zero.
func Normalize(dimensionSum float64, scale Scale) int {
	return int(math.Trunc(dimensionSum * float64(scale) / MaxTotal))
}

// NormalizeRounded is the display variant: the scaled total rounded to one decimal.
func NormalizeRounded(dimensionSum float64, scale Scale) float64 {
	scaled := dimensionSum * float64(scale) / MaxTotal
	return math.Round(scaled*10) / 10
}
