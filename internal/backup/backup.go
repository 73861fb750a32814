// Package backup takes periodic snapshots of the sqlite store so a bad
// disk or a bad migration never loses the chat directory.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/logger"
)

const (
	defaultSchedule = "0 0 3 * * *" // daily at 03:00
	keepSnapshots   = 7
)

type Manager struct {
	db      *database.DB
	dataDir string

	cron    *cron.Cron
	mu      sync.Mutex
	started bool
}

func New(db *database.DB, dataDir string) *Manager {
	return &Manager{
		db:      db,
		dataDir: dataDir,
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Start schedules the nightly snapshot. Safe to call once.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	if _, err := m.cron.AddFunc(defaultSchedule, func() {
		if err := m.Snapshot(); err != nil {
			logger.Error("Backup failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}

	m.cron.Start()
	m.started = true
	logger.Success("Backup schedule started")
	return nil
}

func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.cron.Stop()
	m.started = false
}

// Snapshot writes a consistent copy of the live database using sqlite's
// VACUUM INTO, then prunes snapshots beyond the retention window.
func (m *Manager) Snapshot() error {
	dir := filepath.Join(m.dataDir, "backups")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("parley-%s.db", time.Now().UTC().Format("20060102-150405"))
	dest := filepath.Join(dir, name)

	if _, err := m.db.Exec("VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}

	logger.Success("Backup written: %s", name)
	return m.prune(dir)
}

func (m *Manager) prune(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var snapshots []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "parley-") && strings.HasSuffix(e.Name(), ".db") {
			snapshots = append(snapshots, e.Name())
		}
	}
	if len(snapshots) <= keepSnapshots {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(snapshots)
	for _, name := range snapshots[:len(snapshots)-keepSnapshots] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			logger.Warn("Failed to prune backup %s: %v", name, err)
		}
	}
	return nil
}
