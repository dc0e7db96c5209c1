// Package connection implements the feed transport and the Connection
// Supervisor.
//
// The Supervisor:
//   - Opens one WebSocket connection to the feed at a time
//   - Sends a single subscription request per connection
//   - Runs a heartbeat alongside the read loop
//   - Reconnects with exponential backoff and jitter, without limit, until stopped
//   - Hands every inbound message to a Handler in arrival order
package connection
