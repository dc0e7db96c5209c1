// Package roster loads the fixed set of vessels to track.
//
// A roster is read once at startup. Load failures are typed so the caller
// can degrade to an empty roster with a warning rather than exit.
package roster
