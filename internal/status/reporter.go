package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/vessel-tracker/internal/model"
	"github.com/rickgao/vessel-tracker/internal/sink"
)

// SnapshotSource provides the current vessel states.
type SnapshotSource interface {
	Snapshot() []model.VesselState
}

// Config holds reporter configuration.
type Config struct {
	Interval  time.Duration // Report interval (default: 60s)
	Immediate bool          // Report once on start
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 60 * time.Second,
	}
}

// Reporter sends a snapshot to the sink on a fixed interval.
type Reporter struct {
	cfg    Config
	source SnapshotSource
	sink   sink.Sink
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Reporter.
func New(cfg Config, source SnapshotSource, s sink.Sink, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if s == nil {
		s = sink.Discard{}
	}
	return &Reporter{
		cfg:    cfg,
		source: source,
		sink:   s,
		logger: logger,
	}
}

// Start begins the reporting loop.
func (r *Reporter) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("status reporter started", "interval", r.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the reporter.
func (r *Reporter) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("status reporter stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Report sends one snapshot now.
func (r *Reporter) Report() {
	snapshot := r.source.Snapshot()
	r.sink.OnPeriodicStatus(snapshot)

	reporting := 0
	for _, st := range snapshot {
		if st.Latest != nil {
			reporting++
		}
	}
	r.logger.Debug("status reported", "vessels", len(snapshot), "reporting", reporting)
}

func (r *Reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	if r.cfg.Immediate {
		r.Report()
	}

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Report()
		}
	}
}
