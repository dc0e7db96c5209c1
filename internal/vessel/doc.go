// Package vessel holds the in-memory state table for tracked vessels.
//
// The key set is fixed at construction from the roster and never changes.
// Only the message processor writes to the store; the status reporter and
// HTTP handlers read from it concurrently.
package vessel
