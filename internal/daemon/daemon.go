package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/monitor"
	"veil/internal/notifications"
	"veil/internal/playback"
	"veil/internal/scores"
	"veil/internal/scorestore"
)

// Daemon coordinates the monitor, score store, and API server, and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *scorestore.Store
	tracker  *playback.Tracker
	poller   *monitor.Poller
	notifier notifications.Service

	lockPath    string
	lock        *flock.Flock
	maintenance *maintenance

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running           bool
	PID               int
	StorePath         string
	LockFilePath      string
	PolicyPath        string
	ScoreRecords      int
	TrackedSessions   int
	FilteringSessions int
	StartedAt         time.Time
}

// New constructs a daemon with initialized dependencies. activeLogPath names
// the current run's log file so maintenance never prunes it; it may be empty
// when the caller logs elsewhere.
func New(cfg *config.Config, store *scorestore.Store, tracker *playback.Tracker, poller *monitor.Poller, notifier notifications.Service, logger *slog.Logger, activeLogPath string) (*Daemon, error) {
	if cfg == nil || store == nil || tracker == nil || poller == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, tracker, poller, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "veild.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		tracker:  tracker,
		poller:   poller,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.maintenance = newMaintenance(cfg, store, logger, activeLogPath)
	return d, nil
}

// Start acquires the daemon lock and launches the monitor and maintenance
// schedules.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another veil daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.poller.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start monitor: %w", err)
	}
	d.maintenance.start()

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("veil daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.maintenance.stop()
	d.poller.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("veil daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	var filtering int
	states := d.tracker.Snapshot()
	for _, state := range states {
		if state.Filtering() {
			filtering++
		}
	}
	return Status{
		Running:           d.running.Load(),
		PID:               os.Getpid(),
		StorePath:         d.store.Path(),
		LockFilePath:      d.lockPath,
		PolicyPath:        d.cfg.Paths.PolicyPath,
		ScoreRecords:      d.store.Count(),
		TrackedSessions:   len(states),
		FilteringSessions: filtering,
		StartedAt:         d.startedAt,
	}
}

// Sessions returns a snapshot of tracked playback sessions.
func (d *Daemon) Sessions() []playback.State {
	return d.tracker.Snapshot()
}

// ScoreRecords returns summaries of every cached score record.
func (d *Daemon) ScoreRecords() []*scores.Record {
	return d.store.Records()
}

// GetScores returns the stored record for a media item, or nil when absent.
func (d *Daemon) GetScores(ctx context.Context, mediaID string) (*scores.Record, error) {
	return d.store.Get(ctx, mediaID)
}

// PutScores replaces the stored record for its media item.
func (d *Daemon) PutScores(ctx context.Context, record *scores.Record) error {
	if err := d.store.Put(ctx, record); err != nil {
		return err
	}
	if err := d.notifier.NotifyScoresUpdated(ctx, record.MediaID, len(record.Segments)); err != nil {
		d.logger.Debug("score update notification failed", logging.Error(err))
	}
	return nil
}

// DeleteScores removes the stored record for a media item.
func (d *Daemon) DeleteScores(ctx context.Context, mediaID string) error {
	if err := d.store.Delete(ctx, mediaID); err != nil {
		return err
	}
	if err := d.notifier.NotifyScoresRemoved(ctx, mediaID); err != nil {
		d.logger.Debug("score removal notification failed", logging.Error(err))
	}
	return nil
}

// ReloadScores drops the cache and rehydrates it from storage.
func (d *Daemon) ReloadScores(ctx context.Context) (int, error) {
	return d.store.ReloadAll(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LockFilePath returns the daemon lock file location.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}
