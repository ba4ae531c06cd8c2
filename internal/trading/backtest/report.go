package backtest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Alias1177/SmartVest/internal/model"
)

// FormatResults renders a trial as a plain-text report
func FormatResults(result *model.TrialResult) string {
	if result == nil {
		return "No backtest results available"
	}

	var b strings.Builder
	b.WriteString("\n===== BACKTEST RESULTS =====\n")
	fmt.Fprintf(&b, "Trial: %s (%s)\n", result.ID, result.Profile)
	fmt.Fprintf(&b, "Period: %s -> %s\n", result.Start.Format("2006-01-02"), result.End.Format("2006-01-02"))
	fmt.Fprintf(&b, "Status: %s\n", result.Status)
	if !result.Completed() {
		fmt.Fprintf(&b, "Error: %s\n", result.Error)
		return b.String()
	}

	m := result.Metrics
	fmt.Fprintf(&b, "Initial capital: %.2f\n", result.InitialCapital)
	fmt.Fprintf(&b, "Final value: %.2f\n", m.FinalValue)
	fmt.Fprintf(&b, "Total return: %.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(&b, "CAGR: %.2f%%\n", m.CAGR*100)
	fmt.Fprintf(&b, "Annual volatility: %.2f%%\n", m.AnnualVolatility*100)
	fmt.Fprintf(&b, "Sharpe ratio: %.2f\n", m.Sharpe)
	fmt.Fprintf(&b, "Sortino ratio: %.2f\n", m.Sortino)
	fmt.Fprintf(&b, "Maximum drawdown: %.2f%% (%d days)\n", m.MaxDrawdown*100, m.MaxDrawdownDuration)
	fmt.Fprintf(&b, "Calmar ratio: %.2f\n", m.Calmar)

	b.WriteString("\nBenchmark:\n")
	fmt.Fprintf(&b, "- Return: %.2f%%\n", m.BenchmarkReturn*100)
	fmt.Fprintf(&b, "- Outperformance: %+.2f%%\n", m.Outperformance*100)
	fmt.Fprintf(&b, "- Alpha: %.2f%%\n", m.Alpha*100)
	fmt.Fprintf(&b, "- Beta: %.2f\n", m.Beta)

	counts := make(map[model.EventKind]int)
	for _, e := range result.Events {
		counts[e.Kind]++
	}
	if len(counts) > 0 {
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		b.WriteString("\nEvents:\n")
		for _, k := range kinds {
			fmt.Fprintf(&b, "- %s: %d\n", k, counts[model.EventKind(k)])
		}
	}

	fmt.Fprintf(&b, "\nTrades: %d, rebalances: %d, trading days: %d\n",
		len(result.Trades), len(result.Snapshots), m.TradingDays)
	return b.String()
}
