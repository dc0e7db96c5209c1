package sink

import (
	"log/slog"

	"github.com/rickgao/vessel-tracker/internal/model"
)

// Log writes status events as structured log records.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log sink.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) OnUpdate(event model.StatusEvent) {
	l.logger.Info("vessel update",
		"mmsi", event.VesselID,
		"name", event.Name,
		"type", event.MessageType,
		"lat", event.Update.Position.Lat,
		"lon", event.Update.Position.Lon,
		"speed", model.FormatOptional(event.Update.SpeedOverGround),
		"course", model.FormatOptional(event.Update.CourseOverGround),
		"status", event.StatusLabel,
		"messages", event.MessageCount,
		"observed_at", event.Update.ObservedAt,
	)
}

func (l *Log) OnError(message string) {
	l.logger.Warn(message)
}

func (l *Log) OnPeriodicStatus(snapshot []model.VesselState) {
	var reporting int
	for _, st := range snapshot {
		if st.Latest != nil {
			reporting++
		}
	}
	l.logger.Info("tracking status",
		"vessels", len(snapshot),
		"reporting", reporting,
	)
	for _, st := range snapshot {
		l.logger.Debug("vessel status",
			"mmsi", st.Ref.ID,
			"name", st.Ref.DisplayName,
			"messages", st.MessageCount,
			"last_update", st.LastUpdate(),
		)
	}
}
