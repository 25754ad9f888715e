// Package daemon runs the long-lived harvest service: one loop per enabled
// source on a poll interval, a single-instance file lock, and the operator
// HTTP API used by the CLI.
package daemon
