// Package database provides connection pool management for the optional
// PostgreSQL/TimescaleDB position archive.
package database
