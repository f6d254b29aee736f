// Package notifications delivers filtering events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Event kinds cover filter actions, score library changes, and
// runtime errors so callers can emit consistent messages without duplicating
// HTTP glue.
//
// Extend this package if you need alternative transports; all monitoring code
// depends only on the simple Service interface.
package notifications
