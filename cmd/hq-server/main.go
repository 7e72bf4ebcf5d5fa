// Command hq-server runs the hq message queue: an HTTP control and data
// plane over a durable SQLite-backed message store, with a background
// sweeper reclaiming expired leases.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"hq/internal/config"
	"hq/internal/engine"
	"hq/internal/logging"
	"hq/internal/observability"
	"hq/internal/server/httpapi"
	"hq/internal/store"
	"hq/internal/sweeper"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "hq-server",
		Short:         "hq is a durable single-node message queue with SQS-style leases",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntP(config.KeyPort, "p", 9999, "port to bind the server to")
	flags.Int(config.KeyRequestTimeout, 0, "maximum request timeout in seconds (0 disables)")
	flags.StringP(config.KeyDatabase, "d", "", "database path; pass \":memory:\" for an in-memory database")
	flags.Duration(config.KeySweepTick, sweeper.DefaultTick, "cadence of the lease sweeper")
	flags.String(config.KeyObservabilityConfig, "", "optional YAML file overriding observability defaults")

	config.SetDefaults(v)
	v.SetEnvPrefix("HQ")
	// request-timeout resolves from HQ_REQUEST_TIMEOUT, and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		config.KeyPort,
		config.KeyRequestTimeout,
		config.KeyDatabase,
		config.KeySweepTick,
		config.KeyObservabilityConfig,
	} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	obsConfig, err := observability.LoadConfig(cfg.ObservabilityConfig)
	if err != nil {
		return err
	}

	// Text logs on a terminal, JSON when piped or containerized.
	logFormat := obsConfig.Logging.Format
	if term.IsTerminal(int(os.Stdout.Fd())) {
		logFormat = "text"
	}
	obsLogger := observability.NewLogger(observability.LogConfig{
		Level:  obsConfig.Logging.Level,
		Format: logFormat,
	})
	logging.SetDefault(obsLogger)
	logger := logging.NewComponentLogger("Main")

	metrics, err := observability.NewMetricsCollector(obsConfig.Metrics)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if obsConfig.Metrics.Enabled {
		if err := metrics.StartPrometheusServer(obsConfig.Metrics.PrometheusPort, logging.NewComponentLogger("Metrics")); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	_, shutdownTracing, err := observability.InitTracing(ctx, obsConfig.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, err := store.Open(cfg.Database, logging.NewComponentLogger("Store"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	eng := engine.New(db, logging.NewComponentLogger("Engine"), metrics)
	sweep := sweeper.New(eng, cfg.SweepTick, logging.NewComponentLogger("Sweeper"), metrics)

	router := httpapi.NewRouter(eng, httpapi.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        metrics,
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router,
		ReadTimeout: cfg.RequestTimeout,
		IdleTimeout: 120 * time.Second,
	}

	banner(cfg)
	logger.Info("hq server starting: port=%d database=%s sweep_tick=%s",
		cfg.Port, cfg.Database, cfg.SweepTick)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		sweeper.Supervise(groupCtx, sweep)
		return nil
	})

	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown: %v", err)
		}
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown: %v", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown: %v", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func banner(cfg config.Config) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Printf("%s %s\n", bold("hq"), gray(fmt.Sprintf("listening on :%d, database %s", cfg.Port, cfg.Database)))
}
