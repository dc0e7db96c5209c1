// Package archive implements the optional append-only position archive.
//
// The Tap sink converts accepted updates into rows and queues them in a
// bounded buffer without blocking the read loop. The Writer drains the
// buffer in batches into the vessel_positions table using
// INSERT ... ON CONFLICT DO NOTHING, so duplicate reports from the feed
// collapse on their deterministic position id.
//
// Rows are never read back by the tracker.
package archive
