package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"veil/internal/logging"
	"veil/internal/testsupport"
)

func TestPruneLogsSparesActiveLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.RetentionDays = 1
	store := testsupport.MustOpenStore(t, cfg)

	stale := time.Now().AddDate(0, 0, -10)
	oldLog := filepath.Join(cfg.Paths.LogDir, "veil-20260101T000000.000Z.log")
	activeLog := filepath.Join(cfg.Paths.LogDir, "veil-20260815T000000.000Z.log")
	for _, path := range []string{oldLog, activeLog} {
		if err := os.WriteFile(path, []byte("log line\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("age %s: %v", path, err)
		}
	}

	m := newMaintenance(cfg, store, logging.NewNop(), activeLog)
	m.pruneLogs()

	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Fatalf("expected retired log to be pruned, stat err: %v", err)
	}
	if _, err := os.Stat(activeLog); err != nil {
		t.Fatalf("active log must survive pruning: %v", err)
	}
}
