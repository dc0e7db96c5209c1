package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/vessel-tracker/internal/archive"
	"github.com/rickgao/vessel-tracker/internal/backoff"
	"github.com/rickgao/vessel-tracker/internal/config"
	"github.com/rickgao/vessel-tracker/internal/connection"
	"github.com/rickgao/vessel-tracker/internal/database"
	"github.com/rickgao/vessel-tracker/internal/metrics"
	"github.com/rickgao/vessel-tracker/internal/model"
	"github.com/rickgao/vessel-tracker/internal/processor"
	"github.com/rickgao/vessel-tracker/internal/roster"
	"github.com/rickgao/vessel-tracker/internal/sink"
	"github.com/rickgao/vessel-tracker/internal/status"
	"github.com/rickgao/vessel-tracker/internal/vessel"
)

// app holds the wired tracker components.
type app struct {
	cfg    *config.TrackerConfig
	logger *slog.Logger

	refs       []model.VesselRef
	store      *vessel.Store
	sinks      sink.Multi
	processor  *processor.Processor
	supervisor *connection.Supervisor
	reporter   *status.Reporter
	metrics    *metrics.Server

	pool   *pgxpool.Pool
	writer *archive.Writer
}

func newApp(ctx context.Context, cfg *config.TrackerConfig, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.refs = roster.LoadOrEmpty(rosterProvider(cfg.Roster), logger)
	a.store = vessel.NewStore(a.refs)

	a.sinks = sink.Multi{sink.NewLog(logger.With("component", "sink"))}
	if cfg.Status.Console {
		a.sinks = append(a.sinks, sink.NewConsole(color.Output))
	}

	if cfg.Archive.Enabled {
		if err := a.openArchive(ctx); err != nil {
			return nil, err
		}
	}

	a.processor = processor.New(a.store, a.sinks, logger.With("component", "processor"))
	a.supervisor = connection.NewSupervisor(
		supervisorConfig(cfg),
		a.store.IDs(),
		a.processor,
		a.sinks,
		logger.With("component", "supervisor"),
	)
	a.reporter = status.New(
		status.Config{Interval: cfg.Status.Interval},
		a.store,
		a.sinks,
		logger.With("component", "status"),
	)

	src := metrics.Sources{
		Supervisor: a.supervisor,
		Processor:  a.processor,
		Vessels:    a.store,
	}
	if a.writer != nil {
		src.Archive = a.writer
		src.DB = a.pool
	}
	a.metrics = metrics.New(src, cfg.Metrics.Path, logger.With("component", "metrics"))

	return a, nil
}

func (a *app) openArchive(ctx context.Context) error {
	db := a.cfg.Archive.Database
	a.logger.Info("connecting to archive database",
		"host", db.Host,
		"port", db.Port,
		"database", db.Name,
	)

	pool, err := database.Connect(ctx, db)
	if err != nil {
		return fmt.Errorf("connect archive database: %w", err)
	}
	if err := archive.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return err
	}
	a.pool = pool

	buf := archive.NewBuffer[archive.Row](a.cfg.Archive.BufferSize, a.cfg.Archive.MaxBufferSize)
	a.writer = archive.NewWriter(archive.WriterConfig{
		BatchSize:     a.cfg.Archive.BatchSize,
		FlushInterval: a.cfg.Archive.FlushInterval,
	}, buf, pool, a.logger.With("component", "archive"))
	a.sinks = append(a.sinks, archive.NewTap(buf, a.logger.With("component", "archive")))

	a.logger.Info("archive database connected")
	return nil
}

func (a *app) start(ctx context.Context) error {
	a.logger.Info("tracking vessels",
		"count", len(a.refs),
		"roster", roster.String(a.refs),
		"message_types", a.cfg.Feed.MessageTypes,
		"url", a.cfg.Feed.URL,
	)

	if a.writer != nil {
		if err := a.writer.Start(ctx); err != nil {
			return fmt.Errorf("start archive writer: %w", err)
		}
	}
	if err := a.reporter.Start(ctx); err != nil {
		return fmt.Errorf("start status reporter: %w", err)
	}
	if err := a.supervisor.Start(ctx); err != nil {
		return fmt.Errorf("start supervisor: %w", err)
	}
	return nil
}

// stop tears down in reverse dependency order and prints a final status.
func (a *app) stop(ctx context.Context) {
	if err := a.supervisor.Stop(ctx); err != nil {
		a.logger.Warn("supervisor stop", "error", err)
	}
	if err := a.reporter.Stop(ctx); err != nil {
		a.logger.Warn("status reporter stop", "error", err)
	}
	a.reporter.Report()
	if a.writer != nil {
		if err := a.writer.Stop(ctx); err != nil {
			a.logger.Warn("archive writer stop", "error", err)
		}
	}

	stats := a.processor.Stats()
	a.logger.Info("final counters",
		"received", stats.Received,
		"applied", stats.Applied,
		"untracked", stats.Untracked,
		"decode_errors", stats.DecodeErrors,
	)
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// rosterProvider prefers the CSV file over inline vessels.
func rosterProvider(cfg config.RosterConfig) roster.Provider {
	if cfg.Path != "" {
		p := roster.NewCSVProvider(cfg.Path)
		p.Delimiter = cfg.DelimiterRune()
		p.IDColumn = cfg.IDColumn
		p.NameColumn = cfg.NameColumn
		return p
	}
	refs := make(roster.Static, 0, len(cfg.Vessels))
	for _, v := range cfg.Vessels {
		refs = append(refs, model.VesselRef{ID: v.MMSI, DisplayName: v.Name})
	}
	return refs
}

func clientConfig(feed config.FeedConfig) connection.ClientConfig {
	return connection.ClientConfig{
		URL:              feed.URL,
		PingInterval:     feed.PingInterval,
		PingTimeout:      feed.PingTimeout,
		CloseTimeout:     feed.CloseTimeout,
		HandshakeTimeout: feed.HandshakeTimeout,
		WriteTimeout:     feed.WriteTimeout,
		BufferSize:       feed.BufferSize,
	}
}

func supervisorConfig(cfg *config.TrackerConfig) connection.SupervisorConfig {
	return connection.SupervisorConfig{
		Client:            clientConfig(cfg.Feed),
		APIKey:            cfg.Feed.APIKey,
		MessageTypes:      cfg.Feed.MessageTypes,
		HeartbeatInterval: cfg.Feed.HeartbeatInterval,
		Backoff: backoff.Config{
			BaseDelay:   cfg.Backoff.BaseDelay,
			MaxDelay:    cfg.Backoff.MaxDelay,
			JitterMax:   cfg.Backoff.JitterMax,
			CapExponent: cfg.Backoff.CapExponent,
		},
	}
}
