// Package sink defines where the tracker reports what it sees.
//
// A Sink receives three kinds of calls: one per accepted vessel update,
// one per fault worth surfacing, and one per periodic status tick. Sinks
// must return promptly and must not mutate the snapshots they are handed.
//
// Implementations:
//   - Log: structured slog records
//   - Console: boxed, coloured terminal output
//   - Multi: fan-out to several sinks
package sink
