package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if strings.TrimSpace(c.Paths.PolicyPath) == "" {
		problems = append(problems, "paths.policy_path is required")
	}
	if strings.TrimSpace(c.Plex.URL) == "" {
		problems = append(problems, "plex.url is required")
	}
	if c.Plex.RequestTimeout < 0 {
		problems = append(problems, "plex.request_timeout must not be negative")
	}
	if c.Monitor.PollIntervalMS <= 0 {
		problems = append(problems, "monitor.poll_interval_ms must be positive")
	}
	if c.Monitor.DispatchTimeout < 0 {
		problems = append(problems, "monitor.dispatch_timeout must not be negative")
	}
	if c.Monitor.SessionTimeout < 0 {
		problems = append(problems, "monitor.session_timeout must not be negative")
	}
	if c.Monitor.SessionIdleSweeps < 0 {
		problems = append(problems, "monitor.session_idle_sweeps must not be negative")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}
	if c.Logging.RetentionDays < 0 {
		problems = append(problems, "logging.retention_days must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
