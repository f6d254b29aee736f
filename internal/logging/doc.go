// Package logging assembles the structured slog loggers used across veil.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers plus a no-op logger so wiring code
// and tests never need hand-rolled slog setup.
package logging
