package ticks

import (
	"math"

	"shadowTrader/internal/model"
)

// Band bounds for a liquidity position, as a fraction of the current price.
// The band is a deployment constant, not user input.
const (
	bandLower = 0.85
	bandUpper = 1.15
)

// tickStep is the granularity positions are aligned to.
const tickStep = 100

// ComputeTicks derives tick bounds from the native price reported by the
// price oracle. The oracle quotes the native token per unit of the pool
// token, so the pool price is its inverse.
func ComputeTicks(priceNative float64) (model.TickRange, error) {
	if priceNative <= 0 || math.IsNaN(priceNative) || math.IsInf(priceNative, 0) {
		return model.TickRange{}, model.Errf(model.KindPriceUnavailable, "no usable price from oracle: %v", priceNative)
	}

	currentPrice := 1 / priceNative
	lower := tickForPrice(currentPrice * bandLower)
	upper := tickForPrice(currentPrice * bandUpper)

	tickLower := roundToStep(lower)
	tickUpper := roundToStep(upper)

	if tickLower >= tickUpper {
		return model.TickRange{}, model.Errf(model.KindDegenerateTicks,
			"tick range collapsed after rounding: [%d, %d]", tickLower, tickUpper)
	}

	return model.TickRange{TickLower: tickLower, TickUpper: tickUpper}, nil
}

// tickForPrice maps a price onto the tick scale: price = 1.0001^tick.
func tickForPrice(price float64) int32 {
	return int32(math.Floor(math.Log(price) / math.Log(1.0001)))
}

// roundToStep rounds to the nearest multiple of tickStep, half away from zero.
func roundToStep(tick int32) int32 {
	return int32(math.Round(float64(tick)/tickStep)) * tickStep
}
