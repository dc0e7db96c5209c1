package config

import (
	"time"

	"github.com/rickgao/vessel-tracker/internal/feed"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "vessel-tracker"
	DefaultFeedURL           = "wss://stream.aisstream.io/v0/stream"
	DefaultPingInterval      = 20 * time.Second
	DefaultPingTimeout       = 20 * time.Second
	DefaultCloseTimeout      = 20 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultFeedBufferSize    = 1000
	DefaultBaseDelay         = 1 * time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultJitterMax         = 100 * time.Millisecond
	DefaultCapExponent       = 4
	DefaultRosterDelimiter   = ";"
	DefaultIDColumn          = "MMSI"
	DefaultNameColumn        = "Name"
	DefaultStatusInterval    = 60 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "auto"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultBatchSize         = 500
	DefaultFlushInterval     = 5 * time.Second
	DefaultBufferSize        = 1024
	DefaultMaxBufferSize     = 65536
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
)

func (c *TrackerConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if len(c.Feed.MessageTypes) == 0 {
		c.Feed.MessageTypes = feed.DefaultMessageTypes()
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.CloseTimeout == 0 {
		c.Feed.CloseTimeout = DefaultCloseTimeout
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.HeartbeatInterval == 0 {
		c.Feed.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Backoff defaults
	if c.Backoff.BaseDelay == 0 {
		c.Backoff.BaseDelay = DefaultBaseDelay
	}
	if c.Backoff.MaxDelay == 0 {
		c.Backoff.MaxDelay = DefaultMaxDelay
	}
	if c.Backoff.JitterMax == 0 {
		c.Backoff.JitterMax = DefaultJitterMax
	}
	if c.Backoff.CapExponent == 0 {
		c.Backoff.CapExponent = DefaultCapExponent
	}

	// Roster defaults
	if c.Roster.Delimiter == "" {
		c.Roster.Delimiter = DefaultRosterDelimiter
	}
	if c.Roster.IDColumn == "" {
		c.Roster.IDColumn = DefaultIDColumn
	}
	if c.Roster.NameColumn == "" {
		c.Roster.NameColumn = DefaultNameColumn
	}

	if c.Status.Interval == 0 {
		c.Status.Interval = DefaultStatusInterval
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Archive defaults
	applyDBDefaults(&c.Archive.Database)
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}
	if c.Archive.MaxBufferSize == 0 {
		c.Archive.MaxBufferSize = DefaultMaxBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
