package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alias1177/SmartVest/internal/model"
)

func series(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestRegimeDetectorClassify(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   model.Regime
	}{
		{name: "uptrend above sma", closes: series(250, 100, 1), want: model.RegimeBull},
		{name: "downtrend below sma", closes: series(250, 400, -1), want: model.RegimeBear},
		{name: "insufficient history", closes: series(150, 100, 1), want: model.RegimeBear},
		{name: "flat equals sma", closes: series(200, 100, 0), want: model.RegimeBear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMarketRegime(tt.closes))
		})
	}
}

func TestRegimeDetectorCustomPeriod(t *testing.T) {
	d := NewRegimeDetector(3)
	assert.Equal(t, model.RegimeBull, d.Classify([]float64{1, 1, 1, 5}))
	assert.Equal(t, model.RegimeBear, d.Classify([]float64{5, 5, 5, 1}))
}
