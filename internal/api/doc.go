// Package api defines the JSON payloads served by the daemon's HTTP API and
// a small client used by the CLI. Score records travel in their storage
// shape; everything else is a transport-friendly view assembled by the
// daemon.
package api
