package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) fetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download closes and sectors for the universe into the price cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !a.cfg.DatabaseEnabled {
				return errors.New("fetch needs DATABASE_ENABLED=true")
			}
			if a.cfg.TwelveAPIKey == "" {
				return errors.New("fetch needs TWELVE_API_KEY")
			}

			loader, err := a.loader(ctx)
			if err != nil {
				return err
			}
			store, err := loader.Load(ctx, a.cfg.Benchmark, a.cfg.Universe, a.cfg.EarliestStart, a.cfg.LatestEnd)
			if err != nil {
				return err
			}

			days := store.TradingDays(a.cfg.EarliestStart, a.cfg.LatestEnd)
			fmt.Printf("Cached %d tickers plus %s, %d trading days\n", len(store.Universe()), store.Benchmark(), len(days))
			return nil
		},
	}
}
