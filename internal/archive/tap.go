package archive

import (
	"log/slog"
	"sync/atomic"

	"github.com/rickgao/vessel-tracker/internal/model"
)

// Tap is a sink that queues accepted updates for the Writer.
type Tap struct {
	buf    *Buffer[Row]
	logger *slog.Logger

	lastDropped atomic.Int64
}

// NewTap creates a Tap feeding buf.
func NewTap(buf *Buffer[Row], logger *slog.Logger) *Tap {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tap{buf: buf, logger: logger}
}

// OnUpdate queues the update. It never blocks.
func (t *Tap) OnUpdate(ev model.StatusEvent) {
	if !t.buf.Push(RowFromEvent(ev)) {
		return
	}

	// Warn on the first overflow only; Dropped is exported as a metric
	dropped := t.buf.Stats().Dropped
	if prev := t.lastDropped.Swap(dropped); dropped > prev && prev == 0 {
		t.logger.Warn("archive buffer full, dropping oldest rows", "dropped", dropped)
	}
}

// OnError is a no-op.
func (t *Tap) OnError(string) {}

// OnPeriodicStatus is a no-op.
func (t *Tap) OnPeriodicStatus([]model.VesselState) {}
