package rebalance

import "sort"

// MaxCapIterations bounds the fixed-point loops of the cap solvers
const MaxCapIterations = 50

const capEpsilon = 1e-12

// CapWeights clips every weight above limit and redistributes the excess
// proportionally among names that have not been capped, repeating until
// nothing exceeds the limit. Excess with nowhere to go stays unallocated.
// Tickers are visited in sorted order so results are deterministic.
func CapWeights(weights map[string]float64, limit float64) map[string]float64 {
	out := copyWeights(weights)
	tickers := sortedKeys(out)
	capped := make(map[string]bool)

	for iter := 0; iter < MaxCapIterations; iter++ {
		var excess float64
		for _, t := range tickers {
			if out[t] > limit+capEpsilon {
				excess += out[t] - limit
				out[t] = limit
				capped[t] = true
			}
		}
		if excess <= capEpsilon {
			break
		}

		var room float64
		for _, t := range tickers {
			if !capped[t] {
				room += out[t]
			}
		}
		if room <= capEpsilon {
			break
		}
		for _, t := range tickers {
			if !capped[t] {
				out[t] += excess * out[t] / room
			}
		}
	}

	for _, t := range tickers {
		if out[t] > limit {
			out[t] = limit
		}
	}
	return out
}

// CapSectors limits the combined weight of each sector to sectorCap,
// scaling members of an over-weight sector down and redistributing the
// excess to names in uncapped sectors. Receivers are also held to
// stockCap, so the per-stock cap survives this pass.
func CapSectors(weights map[string]float64, sectorOf func(string) string, sectorCap, stockCap float64) map[string]float64 {
	out := copyWeights(weights)
	tickers := sortedKeys(out)
	cappedSector := make(map[string]bool)

	for iter := 0; iter < MaxCapIterations; iter++ {
		var excess float64
		totals := sectorTotals(out, tickers, sectorOf)
		for _, sector := range sortedKeys(totals) {
			total := totals[sector]
			if total <= sectorCap+capEpsilon {
				continue
			}
			scale := sectorCap / total
			for _, t := range tickers {
				if sectorOf(t) == sector {
					out[t] *= scale
				}
			}
			excess += total - sectorCap
			cappedSector[sector] = true
		}
		for _, t := range tickers {
			if out[t] > stockCap+capEpsilon {
				excess += out[t] - stockCap
				out[t] = stockCap
			}
		}
		if excess <= capEpsilon {
			break
		}

		var room float64
		var receivers []string
		for _, t := range tickers {
			if !cappedSector[sectorOf(t)] && out[t] < stockCap-capEpsilon && out[t] > 0 {
				receivers = append(receivers, t)
				room += out[t]
			}
		}
		if room <= capEpsilon {
			break
		}
		for _, t := range receivers {
			out[t] += excess * out[t] / room
		}
	}

	// hard guarantee on both caps; anything trimmed here becomes cash
	for _, t := range tickers {
		if out[t] > stockCap {
			out[t] = stockCap
		}
	}
	totals := sectorTotals(out, tickers, sectorOf)
	for _, t := range tickers {
		if total := totals[sectorOf(t)]; total > sectorCap {
			out[t] *= sectorCap / total
		}
	}
	return out
}

// Normalize scales weights to sum to 1. Non-positive weights are dropped.
func Normalize(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	var sum float64
	for _, t := range sortedKeys(weights) {
		if weights[t] > 0 {
			sum += weights[t]
		}
	}
	if sum <= 0 {
		return out
	}
	for t, w := range weights {
		if w > 0 {
			out[t] = w / sum
		}
	}
	return out
}

// Sum adds weights in ticker order
func Sum(weights map[string]float64) float64 {
	var sum float64
	for _, t := range sortedKeys(weights) {
		sum += weights[t]
	}
	return sum
}

func sectorTotals(weights map[string]float64, tickers []string, sectorOf func(string) string) map[string]float64 {
	totals := make(map[string]float64)
	for _, t := range tickers {
		totals[sectorOf(t)] += weights[t]
	}
	return totals
}

func copyWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for t, w := range weights {
		out[t] = w
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
