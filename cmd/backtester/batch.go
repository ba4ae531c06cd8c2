package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/SmartVest/internal/metrics"
	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/notify"
	"github.com/Alias1177/SmartVest/internal/selection"
	"github.com/Alias1177/SmartVest/internal/trading/batch"
)

func (a *app) batchCommand() *cobra.Command {
	var (
		count          int
		seed           int64
		profile        string
		workers        int
		notifyTelegram bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run many random-window trials in parallel and summarize them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			opts := batch.DefaultGeneratorOptions()
			opts.Earliest = a.cfg.EarliestStart
			opts.Latest = a.cfg.LatestEnd
			opts.LengthDays = a.cfg.ScenarioDays
			opts.Profile = model.Profile(profile)
			if cmd.Flags().Changed("seed") {
				opts.Seed = seed
			}
			scenarios, err := batch.GenerateScenarios(count, opts)
			if err != nil {
				return err
			}

			loader, err := a.loader(ctx)
			if err != nil {
				return err
			}
			store, err := loader.Load(ctx, a.cfg.Benchmark, a.cfg.Universe, opts.Earliest, opts.Latest)
			if err != nil {
				return fmt.Errorf("load market data: %w", err)
			}

			if workers <= 0 {
				workers = a.cfg.BatchWorkers
			}
			runner := batch.NewRunner(store, a.profiles, selection.NewMomentumSelector(store), batch.RunnerOptions{
				Workers:        workers,
				InitialCapital: a.cfg.InitialCapital,
			})

			reg := metrics.NewRegistry()
			runner.SetObserver(reg)
			a.serveMetrics(ctx, reg)

			if a.db != nil {
				runner.SetRecorder(a.db)
			}

			report, runErr := runner.Run(ctx, scenarios)
			if runErr != nil && a.db != nil {
				if _, err := a.db.MarkInterrupted(context.WithoutCancel(ctx)); err != nil {
					log.Error().Err(err).Msg("Failed to mark interrupted runs")
				}
			}

			summary := notify.FormatBatchSummary(report)
			fmt.Println(summary)

			if notifyTelegram {
				n, err := notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID)
				if err != nil {
					log.Warn().Err(err).Msg("Telegram notifications disabled")
				} else if err := n.NotifyBatch(context.WithoutCancel(ctx), report); err != nil {
					log.Error().Err(err).Msg("Failed to send batch summary")
				}
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "number of random scenarios")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (defaults to the current time)")
	cmd.Flags().StringVar(&profile, "profile", "", "pin every scenario to one profile")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel trials (defaults to BATCH_WORKERS)")
	cmd.Flags().BoolVar(&notifyTelegram, "notify", false, "post the summary to Telegram")
	return cmd
}
