// tracker follows a roster of vessels on the AIS stream and reports their
// latest positions.
// Usage: go run ./cmd/tracker --config configs/tracker.example.yaml
//
// Environment variables referenced by the example config:
//
//	AISSTREAM_API_KEY - API key from aisstream.io
//	ARCHIVE_DB_PASSWORD - password for the optional position archive
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/vessel-tracker/internal/config"
	"github.com/rickgao/vessel-tracker/internal/logging"
	"github.com/rickgao/vessel-tracker/internal/version"
)

const shutdownTimeout = 30 * time.Second

func main() {
	flags := pflag.NewFlagSet("tracker", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config file (defaults apply when empty)")
	logLevel := flags.String("log-level", "", "override log.level (debug, info, warn, error)")
	console := flags.Bool("console", false, "render boxed vessel updates to stdout")
	showVersion := flags.Bool("version", false, "print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println("tracker", version.String())
		return
	}

	cfg, err := loadConfig(*configPath, *logLevel, flags.Changed("console"), *console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracker: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracker: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting tracker",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", "warning", w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tracker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tracker stopped")
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(path, logLevel string, consoleSet, console bool) (*config.TrackerConfig, error) {
	var (
		cfg *config.TrackerConfig
		err error
	)
	if path == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.LoadWithDefaults(path)
		if err != nil {
			return nil, err
		}
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if consoleSet {
		cfg.Status.Console = console
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// run wires the tracker and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.TrackerConfig, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-app.supervisor.Done():
		}
		return nil
	})

	if cfg.Metrics.Enabled {
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           app.metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting metrics server",
				"port", cfg.Metrics.Port,
				"metrics_path", cfg.Metrics.Path,
				"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
			)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	logger.Info("tracker running", "vessels", app.store.Len())

	err = g.Wait()

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	app.stop(shutdownCtx)

	return err
}
