package technical

// CalculateSMA returns the simple moving average of the last period closes.
// ok is false when there is not enough history.
func CalculateSMA(closes []float64, period int) (sma float64, ok bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}

	var sum float64
	for i := len(closes) - period; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(period), true
}

// CalculateReturn returns the simple return over the last lookback
// observations: closes[n-1]/closes[n-1-lookback] - 1.
func CalculateReturn(closes []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(closes) < lookback+1 {
		return 0, false
	}
	base := closes[len(closes)-1-lookback]
	if base <= 0 {
		return 0, false
	}
	return closes[len(closes)-1]/base - 1, true
}

// DailyReturns converts a value series into simple period-over-period returns
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns
}
