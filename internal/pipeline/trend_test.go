package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"alphawatch/internal/models"
)

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{"rising", []float64{1, 2, 3, 4}, TrendPositive},
		{"falling", []float64{4, 3, 2, 1}, TrendNegative},
		{"mixed", []float64{1, 3, 2, 4}, TrendMixed},
		{"flat counts as both, negative wins", []float64{2, 2, 2}, TrendNegative},
		{"single point", []float64{5}, TrendNegative},
		{"empty", nil, TrendNegative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.values))
		})
	}
}

func TestPnlPotential(t *testing.T) {
	series := &models.MarketSeries{
		Prices:       []float64{100, 120}, // +20%
		MarketCaps:   []float64{1000, 1000},
		TotalVolumes: []float64{500, 500},
	}
	// Averages equal their maxima, so the scaling factors are 1.
	assert.InDelta(t, 20.0, PnlPotential(series), 1e-9)
}

func TestPnlPotentialScalesByCapAndVolume(t *testing.T) {
	series := &models.MarketSeries{
		Prices:       []float64{100, 110}, // +10%
		MarketCaps:   []float64{500, 1500}, // avg 1000, max 1500
		TotalVolumes: []float64{100, 300},  // avg 200, max 300
	}
	want := 10.0 * (1000.0 / 1500.0) * (200.0 / 300.0)
	assert.InDelta(t, want, PnlPotential(series), 1e-9)
}

func TestPnlPotentialEmptySeries(t *testing.T) {
	assert.Zero(t, PnlPotential(&models.MarketSeries{}))
	assert.Zero(t, PnlPotential(&models.MarketSeries{Prices: []float64{1, 2}}))
}
