package config

import "time"

// TrackerConfig is the root configuration for a tracker instance.
type TrackerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Feed     FeedConfig     `yaml:"feed"`
	Backoff  BackoffConfig  `yaml:"backoff"`
	Roster   RosterConfig   `yaml:"roster"`
	Status   StatusConfig   `yaml:"status"`
	Log      LogConfig      `yaml:"log"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this tracker.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds streaming feed settings.
type FeedConfig struct {
	URL               string        `yaml:"url"`
	APIKey            string        `yaml:"api_key"`
	MessageTypes      []string      `yaml:"message_types"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	CloseTimeout      time.Duration `yaml:"close_timeout"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	BufferSize        int           `yaml:"buffer_size"`
}

// BackoffConfig holds reconnect delay settings.
type BackoffConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	JitterMax   time.Duration `yaml:"jitter_max"`
	CapExponent uint          `yaml:"cap_exponent"`
}

// RosterConfig selects the tracked vessels. Path takes precedence over Vessels.
type RosterConfig struct {
	Path       string        `yaml:"path"`
	Delimiter  string        `yaml:"delimiter"`
	IDColumn   string        `yaml:"id_column"`
	NameColumn string        `yaml:"name_column"`
	Vessels    []VesselEntry `yaml:"vessels"`
}

// VesselEntry is an inline roster row.
type VesselEntry struct {
	MMSI string `yaml:"mmsi"`
	Name string `yaml:"name"`
}

// StatusConfig holds periodic status settings.
type StatusConfig struct {
	Interval time.Duration `yaml:"interval"`
	Console  bool          `yaml:"console"` // Render boxed output to stdout
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // auto, text, json
}

// ArchiveConfig holds the optional position archive settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	MaxBufferSize int           `yaml:"max_buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds the metrics and health server settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}
