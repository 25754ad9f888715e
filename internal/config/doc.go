// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and the CLI. Source definitions are not part of this
// package; they live in a separate YAML document loaded by internal/sources.
package config
