package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marmos91/star-randsrv/internal/config"
	"github.com/marmos91/star-randsrv/internal/logger"
	"github.com/marmos91/star-randsrv/internal/metrics"
	"github.com/marmos91/star-randsrv/internal/oprfstate"
	"github.com/marmos91/star-randsrv/internal/rlimit"
	"github.com/marmos91/star-randsrv/internal/scheduler"
	"github.com/marmos91/star-randsrv/pkg/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the randomness oracle HTTP service",
	Long: `Serve loads configuration, starts the epoch rotation scheduler, and
runs the HTTP server until it receives SIGINT or SIGTERM.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/star-randsrv/config.yaml.

Configuration can also come from STAR_*-prefixed environment variables
(e.g. STAR_LISTEN, STAR_EPOCH_SECONDS) or command-line flags, which take
precedence over both the file and the environment.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "address:port the HTTP service binds to")
	serveCmd.Flags().Uint32("epoch-seconds", 0, "duration of one epoch, in seconds")
	serveCmd.Flags().Uint8("first-epoch", 0, "first epoch tag in the serving range")
	serveCmd.Flags().Uint8("last-epoch", 0, "last epoch tag in the serving range")
	serveCmd.Flags().Bool("increase-nofile-limit", false, "raise RLIMIT_NOFILE to its hard ceiling before binding")
	serveCmd.Flags().String("prometheus-listen", "", "address:port for the Prometheus metrics endpoint (empty disables it)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFlags(GetConfigFile(), cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	logger.Info("star-randsrv starting", "version", Version, "commit", Commit)
	logger.Info("configuration loaded", "listen", cfg.Listen, "epoch_seconds", cfg.EpochSeconds,
		"first_epoch", cfg.FirstEpoch, "last_epoch", cfg.LastEpoch)

	if cfg.IncreaseNofileLimit {
		cur, max, err := rlimit.RaiseNofile()
		if err != nil {
			logger.Warn("failed to raise file descriptor limit", logger.Err(err))
		} else {
			logger.Info("raised file descriptor limit", "current", cur, "max", max)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := oprfstate.New(oprfstate.Range{First: cfg.FirstEpoch, Last: cfg.LastEpoch})
	if err != nil {
		return fmt.Errorf("initializing oprf state: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- scheduler.Run(ctx, state, scheduler.Config{
			EpochSeconds: cfg.EpochSeconds,
			BaseTime:     cfg.EpochBaseTime,
		}, m)
	}()

	var metricsServer *http.Server
	if cfg.PrometheusListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.PrometheusListen, Handler: mux}
		go func() {
			logger.Info("metrics server listening", "listen", cfg.PrometheusListen)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.Err(err))
			}
		}()
	} else {
		logger.Info("metrics server disabled")
	}

	apiServer := api.NewServer(api.ServerConfig{Listen: cfg.Listen}, state, m)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server is running, press Ctrl+C to stop")

	var (
		runErr            error
		schedulerFinished bool
		serverFinished    bool
	)
	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
	case runErr = <-schedulerDone:
		signal.Stop(sigChan)
		schedulerFinished = true
		if runErr != nil {
			logger.Error("scheduler failed", logger.Err(runErr))
		}
	case runErr = <-serverDone:
		signal.Stop(sigChan)
		serverFinished = true
		if runErr != nil {
			logger.Error("server failed", logger.Err(runErr))
		}
	}
	cancel()

	if !serverFinished {
		if err := <-serverDone; err != nil && runErr == nil {
			runErr = err
		}
	}
	if !schedulerFinished {
		<-schedulerDone
	}

	if runErr != nil {
		return runErr
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown error", logger.Err(err))
		}
	}

	logger.Info("server stopped gracefully")
	return nil
}
