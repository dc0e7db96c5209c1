// Package status periodically reports the tracked fleet to a sink.
package status
