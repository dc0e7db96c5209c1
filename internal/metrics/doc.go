// Package metrics serves the tracker's monitoring endpoints.
//
// Endpoints:
//   - /metrics: Prometheus text exposition (connection lifecycle, message
//     outcomes, per-vessel counters and positions, archive writer)
//   - /health: JSON component status, 503 once the supervisor has stopped
//   - /debug/vessels: JSON snapshot of the vessel state store
package metrics
