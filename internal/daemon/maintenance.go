package daemon

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"github.com/robfig/cron/v3"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/scorestore"
)

// maintenance runs scheduled housekeeping: log retention and a periodic
// integrity check of the score database.
type maintenance struct {
	cfg           *config.Config
	store         *scorestore.Store
	logger        *slog.Logger
	cron          *cron.Cron
	activeLogPath string
}

func newMaintenance(cfg *config.Config, store *scorestore.Store, logger *slog.Logger, activeLogPath string) *maintenance {
	m := &maintenance{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "maintenance"),
		cron:          cron.New(),
		activeLogPath: activeLogPath,
	}

	if schedule := strings.TrimSpace(cfg.Maintenance.LogRetentionSchedule); schedule != "" {
		if _, err := m.cron.AddFunc(schedule, m.pruneLogs); err != nil {
			m.logger.Warn("invalid log retention schedule",
				logging.Error(err),
				logging.String("schedule", schedule))
		}
	}
	if schedule := strings.TrimSpace(cfg.Maintenance.IntegritySchedule); schedule != "" {
		if _, err := m.cron.AddFunc(schedule, m.checkIntegrity); err != nil {
			m.logger.Warn("invalid integrity schedule",
				logging.Error(err),
				logging.String("schedule", schedule))
		}
	}
	return m
}

func (m *maintenance) start() {
	if m == nil {
		return
	}
	m.cron.Start()
}

func (m *maintenance) stop() {
	if m == nil {
		return
	}
	ctx := m.cron.Stop()
	<-ctx.Done()
}

// pruneLogs sweeps retired run logs. The current run's log file is excluded
// so a daemon running longer than the retention window cannot prune its own
// live log.
func (m *maintenance) pruneLogs() {
	logging.CleanupOldLogs(m.logger, m.cfg.Logging.RetentionDays, m.cfg.Paths.LogDir, "veil-*.log", m.activeLogPath)
}

func (m *maintenance) checkIntegrity() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := m.store.CheckIntegrity(ctx); err != nil {
		m.logger.Error("score database integrity check failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "restore the score database from backup or re-run analysis"))
		return
	}
	m.logger.Debug("score database integrity check passed")
}
