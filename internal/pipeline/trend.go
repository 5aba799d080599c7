package pipeline

import "alphawatch/internal/models"

// Trend classifications for a series.
const (
	TrendPositive = "positive"
	TrendNegative = "negative"
	TrendMixed    = "mixed"
)

// Trend classifies a series: monotonically non-decreasing is positive,
// monotonically non-increasing is negative, anything else is mixed.
func Trend(values []float64) string {
	nonDecreasing := true
	nonIncreasing := true
	for i := 0; i+1 < len(values); i++ {
		if values[i] > values[i+1] {
			nonDecreasing = false
		}
		if values[i] < values[i+1] {
			nonIncreasing = false
		}
	}
	if nonIncreasing {
		return TrendNegative
	}
	if nonDecreasing {
		return TrendPositive
	}
	return TrendMixed
}

// SeriesTrends classifies each component of a market series.
type SeriesTrends struct {
	Prices       string `json:"prices"`
	MarketCaps   string `json:"market_caps"`
	TotalVolumes string `json:"total_volumes"`
}

func DetectTrends(series *models.MarketSeries) SeriesTrends {
	return SeriesTrends{
		Prices:       Trend(series.Prices),
		MarketCaps:   Trend(series.MarketCaps),
		TotalVolumes: Trend(series.TotalVolumes),
	}
}

// PnlPotential scores the profit/loss potential of a series: the percentage
// price move scaled down by how far average market cap and volume sit below
// their peaks. Empty series score zero.
func PnlPotential(series *models.MarketSeries) float64 {
	if len(series.Prices) == 0 || len(series.MarketCaps) == 0 || len(series.TotalVolumes) == 0 {
		return 0
	}

	initialPrice := series.Prices[0]
	finalPrice := series.Prices[len(series.Prices)-1]
	if initialPrice == 0 {
		return 0
	}
	priceChange := (finalPrice - initialPrice) / initialPrice * 100

	avgMarketCap := average(series.MarketCaps)
	avgVolume := average(series.TotalVolumes)
	maxMarketCap := maximum(series.MarketCaps)
	maxVolume := maximum(series.TotalVolumes)
	if maxMarketCap == 0 || maxVolume == 0 {
		return 0
	}

	return priceChange * (avgMarketCap / maxMarketCap) * (avgVolume / maxVolume)
}

func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maximum(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
