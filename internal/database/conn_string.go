package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/vessel-tracker/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	port := cfg.Port
	if port == 0 {
		port = config.DefaultDBPort
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		escapedPassword,
		cfg.Host,
		port,
		cfg.Name,
		sslMode,
	)
}
