// Package processor turns raw feed messages into vessel state updates.
//
// Each message is handled in isolation and in arrival order:
//   - Non-position message types are ignored
//   - Messages without an MMSI or for untracked vessels are dropped
//   - Tracked vessels are counted before the payload is validated, so a
//     report without usable coordinates still bumps the vessel's counter
//   - Valid reports replace the vessel's latest telemetry and are emitted
//     to the status sink
//
// Decode faults are returned in the Result and surfaced through the sink;
// they never stop the caller's read loop.
package processor
