package strategy

import "mexc-trader/internal/models"

// closePrices extracts close prices from candles.
func closePrices(candles []models.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return prices
}

// highPrices extracts high prices from candles.
func highPrices(candles []models.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.High
	}
	return prices
}

// lowPrices extracts low prices from candles.
func lowPrices(candles []models.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Low
	}
	return prices
}

// volumes extracts volumes from candles.
func volumes(candles []models.Candle) []float64 {
	vols := make([]float64, len(candles))
	for i, c := range candles {
		vols[i] = c.Volume
	}
	return vols
}

// tail returns the trailing n elements, or the whole slice when shorter.
func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// highest returns the highest value in a slice.
func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the lowest value in a slice.
func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}
