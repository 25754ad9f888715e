// Package api exposes the operator-facing operations shared by the CLI and
// the daemon's HTTP server: record listing and inspection, manual publish,
// state resets, statistics, and problem management. Functions here are thin
// compositions over the record store and publish policy; they own no state.
package api
