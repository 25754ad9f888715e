// Package logging wraps log/slog with the handlers and attribute helpers
// shared by the daemon, the harvest loops, and the CLI. Console output is
// intended for interactive use; JSON output is intended for ingestion.
package logging
