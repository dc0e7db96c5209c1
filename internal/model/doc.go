// Package model defines shared data types used across the vessel tracker.
//
// Conventions:
//   - Vessel identifiers are MMSI numbers carried as strings
//   - Coordinates: float64 decimal degrees (WGS84)
//   - Optional kinematic fields are pointers; nil means "not reported"
//   - ObservedAt keeps the feed's own timestamp text verbatim
package model
