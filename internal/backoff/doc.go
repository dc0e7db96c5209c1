// Package backoff computes reconnect delays for the feed connection.
//
// Delays grow exponentially from BaseDelay, the exponent saturates at
// CapExponent, MaxDelay caps the deterministic part, and a uniform jitter
// in [0, JitterMax] is added on top.
package backoff
