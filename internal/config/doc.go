// Package config loads and validates veil's TOML configuration and exposes
// the live filter policy provider.
//
// Application settings (paths, Plex connection, poll cadence, notifications,
// logging) are read once at startup. The filter policy is different: it is
// owned externally, may change at any time, and is re-read from its own file
// on every snapshot so the engine never evaluates against stale thresholds.
package config
