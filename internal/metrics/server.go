package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rickgao/vessel-tracker/internal/archive"
	"github.com/rickgao/vessel-tracker/internal/connection"
	"github.com/rickgao/vessel-tracker/internal/model"
	"github.com/rickgao/vessel-tracker/internal/processor"
)

// SupervisorSource reports connection lifecycle statistics.
type SupervisorSource interface {
	Stats() connection.SupervisorStats
}

// ProcessorSource reports message outcome counters.
type ProcessorSource interface {
	Stats() processor.Stats
}

// VesselSource provides the vessel state snapshot.
type VesselSource interface {
	Snapshot() []model.VesselState
}

// ArchiveSource reports archive writer statistics.
type ArchiveSource interface {
	Stats() archive.WriterMetrics
	BufferStats() archive.BufferStats
}

// Pinger checks a database connection. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sources are the components the server reports on. Archive and DB may be nil.
type Sources struct {
	Supervisor SupervisorSource
	Processor  ProcessorSource
	Vessels    VesselSource
	Archive    ArchiveSource
	DB         Pinger
}

// Server renders metrics, health and debug endpoints.
type Server struct {
	src         Sources
	metricsPath string
	logger      *slog.Logger
	now         func() time.Time

	scrapes atomic.Uint64
}

// New creates a Server. metricsPath defaults to /metrics.
func New(src Sources, metricsPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &Server{
		src:         src,
		metricsPath: metricsPath,
		logger:      logger,
		now:         time.Now,
	}
}

// Handler returns the HTTP handler with all endpoints registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.metricsPath, s.MetricsHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/debug/vessels", s.VesselsHandler)
	mux.HandleFunc("/", s.RootHandler)
	return mux
}

// RootHandler lists the endpoints.
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "AIS vessel tracker\nMetrics: %s\nHealth: /health\nVessels: /debug/vessels\n", s.metricsPath)
}

// HealthHandler reports component status as JSON.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string                 `json:"status"`
		Components map[string]interface{} `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]interface{}),
	}

	if s.src.Supervisor != nil {
		stats := s.src.Supervisor.Stats()
		feed := map[string]interface{}{
			"state":       stats.State.String(),
			"connected":   stats.Connected,
			"retry_count": stats.RetryCount,
			"attempts":    stats.Attempts,
		}
		if !stats.LastSuccessAt.IsZero() {
			feed["last_connected"] = stats.LastSuccessAt.UTC().Format(time.RFC3339)
		}
		if !stats.LastHeartbeat.IsZero() {
			feed["last_heartbeat"] = stats.LastHeartbeat.UTC().Format(time.RFC3339)
		}
		health.Components["feed"] = feed

		switch stats.State {
		case connection.StateReading:
		case connection.StateStopped:
			health.Status = "unhealthy"
		default:
			health.Status = "degraded"
		}
	}

	if s.src.Vessels != nil {
		snapshot := s.src.Vessels.Snapshot()
		reporting := 0
		for _, st := range snapshot {
			if st.Latest != nil {
				reporting++
			}
		}
		health.Components["vessels"] = map[string]int{
			"tracked":   len(snapshot),
			"reporting": reporting,
		}
	}

	if s.src.DB != nil {
		if err := s.src.DB.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["archive_db"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["archive_db"] = "connected"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Debug("failed to write health response", "error", err)
	}
}

// vesselView is the JSON form of one vessel state.
type vesselView struct {
	MMSI         string      `json:"mmsi"`
	Name         string      `json:"name"`
	MessageCount uint64      `json:"message_count"`
	LastUpdate   string      `json:"last_update"`
	Latest       *latestView `json:"latest,omitempty"`
}

type latestView struct {
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Speed      *float64 `json:"speed_over_ground,omitempty"`
	Course     *float64 `json:"course_over_ground,omitempty"`
	NavStatus  *int     `json:"nav_status,omitempty"`
	Status     string   `json:"status"`
	ObservedAt string   `json:"observed_at"`
}

// VesselsHandler writes the vessel snapshot as JSON.
func (s *Server) VesselsHandler(w http.ResponseWriter, r *http.Request) {
	var snapshot []model.VesselState
	if s.src.Vessels != nil {
		snapshot = s.src.Vessels.Snapshot()
	}

	views := make([]vesselView, 0, len(snapshot))
	for _, st := range snapshot {
		v := vesselView{
			MMSI:         st.Ref.ID,
			Name:         st.Ref.DisplayName,
			MessageCount: st.MessageCount,
			LastUpdate:   st.LastUpdate(),
		}
		if u := st.Latest; u != nil {
			v.Latest = &latestView{
				Latitude:   u.Position.Lat,
				Longitude:  u.Position.Lon,
				Speed:      u.SpeedOverGround,
				Course:     u.CourseOverGround,
				NavStatus:  u.NavStatus,
				Status:     u.StatusLabel(),
				ObservedAt: u.ObservedAt,
			}
		}
		views = append(views, v)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   len(views),
		"vessels": views,
	}); err != nil {
		s.logger.Debug("failed to write vessels response", "error", err)
	}
}

// MetricsHandler writes the Prometheus text exposition.
func (s *Server) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	scrapes := s.scrapes.Add(1)

	var b strings.Builder
	b.Grow(4096)

	writeMetricHeader(&b, "vessel_tracker_scrapes_total", "Total number of /metrics scrapes", "counter")
	fmt.Fprintf(&b, "vessel_tracker_scrapes_total %d\n", scrapes)

	if s.src.Supervisor != nil {
		s.writeSupervisor(&b, s.src.Supervisor.Stats())
	}
	if s.src.Processor != nil {
		s.writeProcessor(&b, s.src.Processor.Stats())
	}
	if s.src.Vessels != nil {
		s.writeVessels(&b, s.src.Vessels.Snapshot())
	}
	if s.src.Archive != nil {
		s.writeArchive(&b, s.src.Archive.Stats(), s.src.Archive.BufferStats())
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

var states = []connection.State{
	connection.StateIdle,
	connection.StateConnecting,
	connection.StateSubscribed,
	connection.StateReading,
	connection.StateFaulted,
	connection.StateStopped,
}

func (s *Server) writeSupervisor(b *strings.Builder, stats connection.SupervisorStats) {
	writeMetricHeader(b, "vessel_tracker_connection_state", "Current supervisor state (1 for the active state)", "gauge")
	for _, st := range states {
		v := 0
		if st == stats.State {
			v = 1
		}
		fmt.Fprintf(b, "vessel_tracker_connection_state{state=\"%s\"} %d\n", st, v)
	}

	writeMetricHeader(b, "vessel_tracker_connected", "Whether the feed transport is open", "gauge")
	fmt.Fprintf(b, "vessel_tracker_connected %d\n", boolToInt(stats.Connected))

	writeMetricHeader(b, "vessel_tracker_connect_attempts_total", "Connection attempts since start", "counter")
	fmt.Fprintf(b, "vessel_tracker_connect_attempts_total %d\n", stats.Attempts)

	writeMetricHeader(b, "vessel_tracker_reconnects_total", "Successful reconnects after the first connection", "counter")
	fmt.Fprintf(b, "vessel_tracker_reconnects_total %d\n", stats.Reconnects)

	writeMetricHeader(b, "vessel_tracker_retry_count", "Consecutive connection failures", "gauge")
	fmt.Fprintf(b, "vessel_tracker_retry_count %d\n", stats.RetryCount)

	writeMetricHeader(b, "vessel_tracker_backoff_delay_seconds", "Most recent reconnect delay", "gauge")
	fmt.Fprintf(b, "vessel_tracker_backoff_delay_seconds %.3f\n", stats.LastDelay.Seconds())

	writeMetricHeader(b, "vessel_tracker_last_connect_timestamp_seconds", "Unix timestamp of the last successful connect", "gauge")
	fmt.Fprintf(b, "vessel_tracker_last_connect_timestamp_seconds %d\n", unixOrZero(stats.LastSuccessAt))

	writeMetricHeader(b, "vessel_tracker_last_heartbeat_timestamp_seconds", "Unix timestamp of the last heartbeat ping", "gauge")
	fmt.Fprintf(b, "vessel_tracker_last_heartbeat_timestamp_seconds %d\n", unixOrZero(stats.LastHeartbeat))
}

func (s *Server) writeProcessor(b *strings.Builder, stats processor.Stats) {
	writeMetricHeader(b, "vessel_tracker_messages_received_total", "Inbound feed messages", "counter")
	fmt.Fprintf(b, "vessel_tracker_messages_received_total %d\n", stats.Received)

	writeMetricHeader(b, "vessel_tracker_messages_total", "Inbound feed messages by processing outcome", "counter")
	outcomes := []struct {
		outcome processor.Outcome
		count   int64
	}{
		{processor.OutcomeApplied, stats.Applied},
		{processor.OutcomeIgnoredType, stats.IgnoredType},
		{processor.OutcomeMissingIdentifier, stats.MissingIdentifier},
		{processor.OutcomeUntracked, stats.Untracked},
		{processor.OutcomeMissingPosition, stats.MissingPosition},
		{processor.OutcomeDecodeError, stats.DecodeErrors},
	}
	for _, o := range outcomes {
		fmt.Fprintf(b, "vessel_tracker_messages_total{outcome=\"%s\"} %d\n", o.outcome, o.count)
	}
}

func (s *Server) writeVessels(b *strings.Builder, snapshot []model.VesselState) {
	now := s.now()

	writeMetricHeader(b, "vessel_tracker_tracked_vessels", "Number of vessels in the roster", "gauge")
	fmt.Fprintf(b, "vessel_tracker_tracked_vessels %d\n", len(snapshot))

	writeMetricHeader(b, "vessel_tracker_vessel_messages_total", "Recognized reports addressed to the vessel", "counter")
	for _, st := range snapshot {
		fmt.Fprintf(b, "vessel_tracker_vessel_messages_total{%s} %d\n", vesselLabels(st.Ref), st.MessageCount)
	}

	writeMetricHeader(b, "vessel_tracker_vessel_latitude_degrees", "Latest latitude of the vessel", "gauge")
	writeMetricHeader(b, "vessel_tracker_vessel_longitude_degrees", "Latest longitude of the vessel", "gauge")
	writeMetricHeader(b, "vessel_tracker_vessel_speed_knots", "Latest speed over ground of the vessel", "gauge")
	writeMetricHeader(b, "vessel_tracker_vessel_report_age_seconds", "Seconds since the latest report was observed", "gauge")
	for _, st := range snapshot {
		u := st.Latest
		if u == nil {
			continue
		}
		labels := vesselLabels(st.Ref)
		fmt.Fprintf(b, "vessel_tracker_vessel_latitude_degrees{%s} %.6f\n", labels, u.Position.Lat)
		fmt.Fprintf(b, "vessel_tracker_vessel_longitude_degrees{%s} %.6f\n", labels, u.Position.Lon)
		if u.SpeedOverGround != nil {
			fmt.Fprintf(b, "vessel_tracker_vessel_speed_knots{%s} %.1f\n", labels, *u.SpeedOverGround)
		}
		if observed, ok := ParseObservedAt(u.ObservedAt); ok {
			age := now.Sub(observed).Seconds()
			if age < 0 {
				age = 0
			}
			fmt.Fprintf(b, "vessel_tracker_vessel_report_age_seconds{%s} %.0f\n", labels, age)
		}
	}
}

func (s *Server) writeArchive(b *strings.Builder, stats archive.WriterMetrics, buf archive.BufferStats) {
	writeMetricHeader(b, "vessel_tracker_archive_inserts_total", "Rows inserted into the archive", "counter")
	fmt.Fprintf(b, "vessel_tracker_archive_inserts_total %d\n", stats.Inserts)

	writeMetricHeader(b, "vessel_tracker_archive_conflicts_total", "Duplicate rows skipped by the archive", "counter")
	fmt.Fprintf(b, "vessel_tracker_archive_conflicts_total %d\n", stats.Conflicts)

	writeMetricHeader(b, "vessel_tracker_archive_errors_total", "Failed archive batches", "counter")
	fmt.Fprintf(b, "vessel_tracker_archive_errors_total %d\n", stats.Errors)

	writeMetricHeader(b, "vessel_tracker_archive_flushes_total", "Successful archive batches", "counter")
	fmt.Fprintf(b, "vessel_tracker_archive_flushes_total %d\n", stats.Flushes)

	writeMetricHeader(b, "vessel_tracker_archive_buffer_rows", "Rows waiting in the archive buffer", "gauge")
	fmt.Fprintf(b, "vessel_tracker_archive_buffer_rows %d\n", buf.Count)

	writeMetricHeader(b, "vessel_tracker_archive_buffer_dropped_total", "Rows dropped because the archive buffer was full", "counter")
	fmt.Fprintf(b, "vessel_tracker_archive_buffer_dropped_total %d\n", buf.Dropped)
}

func writeMetricHeader(b *strings.Builder, metric, help, metricType string) {
	fmt.Fprintf(b, "# HELP %s %s\n", metric, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", metric, metricType)
}

func vesselLabels(ref model.VesselRef) string {
	return fmt.Sprintf(`mmsi="%s",vessel_name="%s"`, EscapeLabel(ref.ID), EscapeLabel(ref.DisplayName))
}

// EscapeLabel escapes a Prometheus label value.
func EscapeLabel(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "\n", `\n`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return value
}

// observedLayouts are the timestamp forms seen in report metadata.
var observedLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	model.TimestampLayout,
	time.RFC3339Nano,
}

// ParseObservedAt parses a report timestamp. Unknown forms return false.
func ParseObservedAt(s string) (time.Time, bool) {
	for _, layout := range observedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
