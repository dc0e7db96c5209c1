// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so the feed API key can be kept out of the file (api_key: ${AISSTREAM_API_KEY}).
package config
