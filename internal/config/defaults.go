package config

const (
	defaultDataDir              = "~/.local/share/veil"
	defaultLogDir               = "~/.local/share/veil/logs"
	defaultPolicyPath           = "~/.config/veil/filter.toml"
	defaultAPIBind              = "127.0.0.1:7414"
	defaultPlexURL              = "http://127.0.0.1:32400"
	defaultPlexRequestTimeout   = 10
	defaultPollIntervalMS       = 500
	defaultDispatchTimeout      = 5
	defaultSessionTimeout       = 10
	defaultSessionIdleSweeps    = 2
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
	defaultLogRetentionCron     = "0 3 * * *"
	defaultIntegrityCron        = "30 3 * * *"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			PolicyPath: defaultPolicyPath,
			APIBind:    defaultAPIBind,
		},
		Plex: Plex{
			URL:            defaultPlexURL,
			RequestTimeout: defaultPlexRequestTimeout,
		},
		Monitor: Monitor{
			PollIntervalMS:    defaultPollIntervalMS,
			DispatchTimeout:   defaultDispatchTimeout,
			SessionTimeout:    defaultSessionTimeout,
			SessionIdleSweeps: defaultSessionIdleSweeps,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			FilterEvents:   true,
			ScoreUpdates:   false,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Maintenance: Maintenance{
			LogRetentionSchedule: defaultLogRetentionCron,
			IntegritySchedule:    defaultIntegrityCron,
		},
	}
}
