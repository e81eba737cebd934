package core

import (
	"math"

	"github.com/shopspring/decimal"
)

var fallbackRatio = decimal.RequireFromString("0.7")

// ClampPrediction bounds a raw prediction to [0, covered] and truncates it.
func ClampPrediction(raw float64, covered int) int {
	p := math.Max(0, math.Min(raw, float64(covered)))
	return int(p)
}

// FallbackEstimate is the heuristic used when the model cannot answer:
// seventy percent of the covered households.
func FallbackEstimate(covered int) float64 {
	return decimal.NewFromInt(int64(covered)).Mul(fallbackRatio).InexactFloat64()
}

// SegregationRate is predicted/total as a percentage rounded to two places.
// A non-positive total yields 0.
func SegregationRate(predicted, total int) float64 {
	return percent(decimal.NewFromInt(int64(predicted)), decimal.NewFromInt(int64(total)))
}

func percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
