package model

import (
	"fmt"
	"time"
)

// TimestampLayout renders processing instants when a report carries no
// timestamp of its own.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// -----------------------------------------------------------------------------
// Roster Types
// -----------------------------------------------------------------------------

// VesselRef identifies a tracked vessel. Immutable once the roster is loaded.
type VesselRef struct {
	ID          string // MMSI (e.g., "319113100")
	DisplayName string // Human-readable name from the roster
}

// -----------------------------------------------------------------------------
// Telemetry Types
// -----------------------------------------------------------------------------

// Position is a latitude/longitude pair in decimal degrees.
type Position struct {
	Lat float64
	Lon float64
}

// Valid reports whether the position lies inside the WGS84 range.
// AIS encodes "not available" as lat=91 / lon=181, which fails this check.
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// String formats the position the way status output shows it.
func (p Position) String() string {
	return fmt.Sprintf("%.4f°N, %.4f°E", p.Lat, p.Lon)
}

// TelemetryUpdate is one accepted position report for a vessel.
type TelemetryUpdate struct {
	Position         Position
	SpeedOverGround  *float64 // Knots
	CourseOverGround *float64 // Degrees
	NavStatus        *int     // AIS navigational status code
	ObservedAt       string   // Feed timestamp, or processing time in TimestampLayout
}

// StatusLabel resolves the navigational status code to its label.
func (u TelemetryUpdate) StatusLabel() string {
	return NavStatusLabel(u.NavStatus)
}

// VesselState is the latest known state of one tracked vessel.
type VesselState struct {
	Ref          VesselRef
	Latest       *TelemetryUpdate // nil until the first accepted report
	MessageCount uint64
}

// LastUpdate returns the observed-at text of the latest report, or
// "No updates" if none has been accepted yet.
func (s VesselState) LastUpdate() string {
	if s.Latest == nil {
		return "No updates"
	}
	return s.Latest.ObservedAt
}

// StatusEvent is emitted to status sinks for every accepted report.
type StatusEvent struct {
	VesselID     string
	Name         string
	MessageType  string
	Update       TelemetryUpdate
	StatusLabel  string
	MessageCount uint64
	ReceivedAt   time.Time
}

// -----------------------------------------------------------------------------
// Navigational Status
// -----------------------------------------------------------------------------

var navStatusLabels = map[int]string{
	0:  "Under way using engine",
	1:  "At anchor",
	2:  "Not under command",
	3:  "Restricted maneuverability",
	4:  "Constrained by draught",
	5:  "Moored",
	6:  "Aground",
	7:  "Engaged in fishing",
	8:  "Under way sailing",
	15: "Undefined",
}

// NavStatusLabel maps an AIS navigational status code to a label.
// Absent and unlisted codes map to "Unknown".
func NavStatusLabel(code *int) string {
	if code == nil {
		return "Unknown"
	}
	if label, ok := navStatusLabels[*code]; ok {
		return label
	}
	return "Unknown"
}

// FormatOptional renders an optional measurement, "N/A" when absent.
func FormatOptional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *v)
}
