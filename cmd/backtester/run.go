package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/SmartVest/internal/config"
	"github.com/Alias1177/SmartVest/internal/selection"
	"github.com/Alias1177/SmartVest/internal/trading/backtest"
)

func (a *app) runCommand() *cobra.Command {
	var (
		profile  string
		start    string
		end      string
		capital  float64
		save     bool
		showDays bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a single trial and print its report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Profile(a.profiles, profile)
			if err != nil {
				return err
			}
			from, err := time.Parse(config.DateLayout, start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			to, err := time.Parse(config.DateLayout, end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			if capital <= 0 {
				capital = a.cfg.InitialCapital
			}

			loader, err := a.loader(ctx)
			if err != nil {
				return err
			}
			store, err := loader.Load(ctx, a.cfg.Benchmark, a.cfg.Universe, from, to)
			if err != nil {
				return fmt.Errorf("load market data: %w", err)
			}

			engine, err := backtest.NewEngine(cfg, store, selection.NewMomentumSelector(store), backtest.Options{
				Start:          from,
				End:            to,
				InitialCapital: capital,
			})
			if err != nil {
				return err
			}
			result := engine.Run(ctx)

			// Display results
			fmt.Println(backtest.FormatResults(result))
			if showDays {
				for _, p := range result.NAV {
					fmt.Printf("%s  nav=%.2f  bench=%.2f  cash=%.1f%%  dd=%.2f%%  %s\n",
						p.Date.Format(config.DateLayout), p.NAV, p.Benchmark, p.CashWeight*100, p.Drawdown*100, p.Regime)
				}
			}

			if save && a.db != nil {
				if err := a.db.SaveTrial(ctx, result); err != nil {
					log.Error().Err(err).Str("trial_id", result.ID).Msg("Failed to save trial")
				}
			}
			if !result.Completed() {
				return fmt.Errorf("trial failed: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "balanced", "risk profile")
	cmd.Flags().StringVar(&start, "start", "2020-01-01", "first day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "2020-12-31", "last day of the window (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&capital, "capital", 0, "initial capital (defaults to INITIAL_CAPITAL)")
	cmd.Flags().BoolVar(&save, "save", true, "store the trial when DATABASE_ENABLED is set")
	cmd.Flags().BoolVar(&showDays, "daily", false, "print the daily NAV series")
	return cmd
}
