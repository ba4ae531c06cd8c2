package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/SmartVest/internal/api/twelvedata"
	"github.com/Alias1177/SmartVest/internal/config"
	"github.com/Alias1177/SmartVest/internal/database"
	"github.com/Alias1177/SmartVest/internal/marketdata"
	"github.com/Alias1177/SmartVest/internal/metrics"
	"github.com/Alias1177/SmartVest/internal/model"
)

// app carries what every command needs once the root has initialized
type app struct {
	cfg      *config.Config
	profiles map[model.Profile]model.RiskConfig
	db       *database.DB

	logLevel     string
	profilesFile string
	metricsAddr  string
}

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	setupSignalHandling(cancel)

	a := &app{}
	root := a.rootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "backtester",
		Short:         "Replay the SmartVest portfolio strategy over historical data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.db != nil {
				a.db.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.profilesFile, "profiles", "", "YAML risk profile overrides (overrides PROFILES_FILE)")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")

	root.AddCommand(a.runCommand(), a.batchCommand(), a.fetchCommand(), a.profilesCommand())
	return root
}

func (a *app) init() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	// 2. Configure logging
	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	setupLogging(level)

	// 3. Risk profiles
	path := cfg.ProfilesFile
	if a.profilesFile != "" {
		path = a.profilesFile
	}
	a.profiles, err = config.LoadProfiles(path)
	if err != nil {
		return err
	}
	if a.metricsAddr == "" {
		a.metricsAddr = cfg.MetricsAddr
	}
	return nil
}

// openDatabase connects when DATABASE_ENABLED is set; nil otherwise
func (a *app) openDatabase(ctx context.Context) (*database.DB, error) {
	if !a.cfg.DatabaseEnabled {
		return nil, nil
	}
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// loader combines the Twelve Data source and the Postgres cache, whichever
// are configured
func (a *app) loader(ctx context.Context) (*marketdata.Loader, error) {
	var source marketdata.Source
	if a.cfg.TwelveAPIKey != "" {
		source = twelvedata.NewClient(twelvedata.ClientOptions{
			APIKey:         a.cfg.TwelveAPIKey,
			BaseURL:        a.cfg.TwelveBaseURL,
			RequestTimeout: a.cfg.RequestTimeoutDuration(),
			RequestsPerSec: a.cfg.RequestsPerSec,
			MaxRetries:     a.cfg.MaxRetries,
		})
	}

	db, err := a.openDatabase(ctx)
	if err != nil {
		return nil, err
	}
	var cache marketdata.Cache
	if db != nil {
		cache = db
	}

	if source == nil && cache == nil {
		return nil, errors.New("no market data available: set TWELVE_API_KEY or DATABASE_ENABLED")
	}
	return marketdata.NewLoader(source, cache, marketdata.LoaderOptions{}), nil
}

// serveMetrics exposes the registry until ctx ends
func (a *app) serveMetrics(ctx context.Context, reg *metrics.Registry) {
	if a.metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: a.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", a.metricsAddr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// setupSignalHandling cancels the root context on interrupt so running
// trials stop and interrupted runs are finalized
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, stopping...")
		cancel()
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		log.Warn().Str("level", logLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}
