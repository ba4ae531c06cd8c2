package technical

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var variance float64
	for _, v := range values {
		variance += math.Pow(v-mean, 2)
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// Covariance returns the sample covariance of two equally long series
func Covariance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	meanA := Mean(a[:n])
	meanB := Mean(b[:n])
	var sum float64
	for i := 0; i < n; i++ {
		sum += (a[i] - meanA) * (b[i] - meanB)
	}
	return sum / float64(n-1)
}

// DownsideDeviation is the sample standard deviation of the negative values only
func DownsideDeviation(values []float64) float64 {
	var negative []float64
	for _, v := range values {
		if v < 0 {
			negative = append(negative, v)
		}
	}
	return StdDev(negative)
}

// AnnualizedVolatility scales the daily standard deviation by sqrt(252)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// TradingDaysPerYear is the annualization factor for daily series
const TradingDaysPerYear = 252
