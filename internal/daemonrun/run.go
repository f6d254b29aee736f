package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"veil/internal/config"
	"veil/internal/daemon"
	"veil/internal/dispatch"
	"veil/internal/logging"
	"veil/internal/monitor"
	"veil/internal/notifications"
	"veil/internal/playback"
	"veil/internal/scorestore"
	"veil/internal/services/plex"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the veil daemon runtime loop and blocks until the process is
// signalled to stop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("veil-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.LogFilePath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update veil.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "veil-*.log", logPath)

	pidPath := filepath.Join(cfg.Paths.LogDir, "veil.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := scorestore.Open(cfg, logger)
	if err != nil {
		logger.Error("open score store", logging.Error(err))
		return err
	}
	defer store.Close()

	if count, err := store.LoadAll(signalCtx); err != nil {
		logger.Warn("score cache hydration failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the score database; playback will be evaluated lazily"))
	} else {
		logger.Info("score records loaded", logging.Int("records", count))
	}

	notifier := notifications.NewService(cfg)
	tracker := playback.NewTracker()
	player := plex.NewClient(cfg)
	policies := config.NewPolicyProvider(cfg.Paths.PolicyPath, logger)
	dispatcher := dispatch.NewDispatcher(cfg, player, notifier, logger)
	poller := monitor.New(cfg, player, store, policies, dispatcher, tracker, logger)

	d, err := daemon.New(cfg, store, tracker, poller, notifier, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	apiServer := daemon.NewAPIServer(cfg, d, logger)
	if apiServer != nil {
		if err := apiServer.Start(signalCtx); err != nil {
			return fmt.Errorf("start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and score database access"))
		return err
	}

	<-signalCtx.Done()
	logger.Info("veil daemon shutting down")
	return nil
}

// ensureCurrentLogPointer keeps a stable veil.log symlink aimed at the
// current run's log file.
func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(target, current)
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
