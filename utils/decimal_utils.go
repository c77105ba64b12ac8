package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds a value to 2 decimal places, half away from zero.
func RoundMoney(value float64) float64 {
	return RoundPlaces(value, 2)
}

// RoundPlaces rounds a value to the given number of decimal places.
// Going through decimal avoids the 1.005 -> 1.00 artifacts of math.Round(v*100)/100.
// NaN and ±Inf are returned unchanged.
func RoundPlaces(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}

// FloorZero returns value, or 0 when value is negative.
func FloorZero(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}

// Clamp01 keeps a ratio inside [0, 1].
func Clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
