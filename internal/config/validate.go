package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}

// Validate checks that all required fields are set and values are valid.
// Degradable problems such as a missing API key are reported by Warnings instead.
func (c *TrackerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	u, err := url.Parse(c.Feed.URL)
	if err != nil {
		return fmt.Errorf("feed.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("feed.url must use ws or wss, got %q", c.Feed.URL)
	}
	if c.Feed.PingInterval < 0 || c.Feed.PingTimeout < 0 || c.Feed.CloseTimeout < 0 {
		return errors.New("feed ping and close timeouts must be >= 0")
	}
	if c.Feed.HeartbeatInterval < 0 {
		return errors.New("feed.heartbeat_interval must be >= 0")
	}
	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}

	if c.Backoff.BaseDelay <= 0 {
		return errors.New("backoff.base_delay must be > 0")
	}
	if c.Backoff.MaxDelay < c.Backoff.BaseDelay {
		return fmt.Errorf("backoff.max_delay (%s) cannot be less than base_delay (%s)", c.Backoff.MaxDelay, c.Backoff.BaseDelay)
	}
	if c.Backoff.JitterMax < 0 {
		return errors.New("backoff.jitter_max must be >= 0")
	}
	if c.Backoff.CapExponent > 30 {
		return fmt.Errorf("backoff.cap_exponent must be <= 30, got %d", c.Backoff.CapExponent)
	}

	if utf8.RuneCountInString(c.Roster.Delimiter) != 1 {
		return fmt.Errorf("roster.delimiter must be a single character, got %q", c.Roster.Delimiter)
	}

	if c.Status.Interval <= 0 {
		return errors.New("status.interval must be > 0")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("log.format must be one of auto, text, json, got %q", c.Log.Format)
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
		if c.Archive.MaxBufferSize < c.Archive.BufferSize {
			return fmt.Errorf("archive.max_buffer_size (%d) cannot be less than buffer_size (%d)", c.Archive.MaxBufferSize, c.Archive.BufferSize)
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
		}
	}

	return nil
}

// Warnings lists configuration faults the tracker degrades around.
func (c *TrackerConfig) Warnings() []string {
	var warnings []string
	if c.Feed.APIKey == "" {
		warnings = append(warnings, "feed.api_key is empty; the feed will likely reject the subscription")
	}
	if c.Roster.Path == "" && len(c.Roster.Vessels) == 0 {
		warnings = append(warnings, "no roster configured; subscription will carry no vessel filter")
	}
	return warnings
}

// DelimiterRune returns the roster delimiter as a rune.
func (r RosterConfig) DelimiterRune() rune {
	d, _ := utf8.DecodeRuneInString(r.Delimiter)
	return d
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
