// Package daemon coordinates the long-running Veil process.
//
// It wires configuration, the score store, the playback monitor, and the
// maintenance scheduler into a single lifecycle with flock-based locking to
// prevent multiple instances, and exposes the HTTP API used by analysis
// pipelines to push score records and by the CLI for status and
// administration.
//
// Keep orchestration logic here: segment evaluation lives in the monitor and
// scores packages while the daemon focuses on startup, shutdown, and the API
// surface.
package daemon
