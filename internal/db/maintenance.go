package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goran-ethernal/ReputationIndexor/internal/logger"
	"github.com/goran-ethernal/ReputationIndexor/pkg/config"
)

// Maintenance coordinates periodic SQLite housekeeping (WAL checkpoints,
// vacuum) with normal store operations.
type Maintenance interface {
	// Start begins background maintenance if enabled.
	Start(ctx context.Context) error
	// Stop stops background maintenance and waits for completion.
	Stop() error
	// AcquireOperationLock acquires a shared lock for database operations.
	// Returns an unlock function that must be called when the operation completes.
	AcquireOperationLock() func()
	// RunMaintenance performs database maintenance operations (for manual invocation).
	RunMaintenance(ctx context.Context) error
}

// NoOpMaintenance is a no-operation implementation of the Maintenance interface.
type NoOpMaintenance struct{}

func (m *NoOpMaintenance) Start(ctx context.Context) error { return nil }

func (m *NoOpMaintenance) Stop() error { return nil }

func (m *NoOpMaintenance) RunMaintenance(ctx context.Context) error { return nil }

func (m *NoOpMaintenance) AcquireOperationLock() func() { return func() {} }

// MaintenanceCoordinator runs background maintenance over the entity store
// database. Normal operations take the read side of the lock; maintenance
// takes the write side so it has exclusive access while checkpointing.
type MaintenanceCoordinator struct {
	db     *sql.DB
	config config.MaintenanceConfig
	dbPath string
	log    *logger.Logger

	opLock sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMaintenanceCoordinator creates a new maintenance coordinator.
// A nil configuration yields a no-op coordinator.
func NewMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
) Maintenance {
	if cfg == nil {
		return &NoOpMaintenance{}
	}

	return &MaintenanceCoordinator{
		db:     db,
		config: *cfg,
		dbPath: dbPath,
		log:    log.WithComponent("db-maintenance"),
	}
}

// Start begins background maintenance if enabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.log.Info("background maintenance is disabled")
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)

	if m.config.VacuumOnStartup {
		m.log.Info("running startup maintenance")
		if err := m.RunMaintenance(ctx); err != nil {
			m.log.Warnf("startup maintenance failed: %v", err)
		}
	}

	m.wg.Add(1)
	go m.worker(ctx, m.config.CheckInterval.Duration)

	m.log.Infof("background maintenance started - interval: %v, checkpoint mode: %s",
		m.config.CheckInterval.Duration, m.config.WALCheckpointMode)

	return nil
}

// Stop stops background maintenance and waits for completion.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return nil
}

// AcquireOperationLock acquires a shared lock for database operations.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// RunMaintenance performs a WAL checkpoint and vacuum with exclusive access.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	start := time.Now()
	MaintenanceRunsInc()

	if err := m.checkpointWAL(ctx); err != nil {
		MaintenanceErrorInc()
		return err
	}

	if _, err := m.db.ExecContext(ctx, "VACUUM"); err != nil {
		MaintenanceErrorInc()
		return fmt.Errorf("vacuum failed: %w", err)
	}
	VacuumRunsInc()

	if info, err := os.Stat(m.dbPath); err == nil {
		DBSizeLog(info.Size())
	}

	MaintenanceSuccessInc()
	MaintenanceDurationLog(time.Since(start))

	m.log.Debugf("maintenance completed in %v", time.Since(start))

	return nil
}

func (m *MaintenanceCoordinator) checkpointWAL(ctx context.Context) error {
	query := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.config.WALCheckpointMode)

	var busy, logPages, checkpointed int
	if err := m.db.QueryRowContext(ctx, query).Scan(&busy, &logPages, &checkpointed); err != nil {
		return fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	WALCheckpointInc(m.config.WALCheckpointMode)

	m.log.Debugf("WAL checkpoint: busy=%d, log_pages=%d, checkpointed=%d",
		busy, logPages, checkpointed)

	return nil
}

func (m *MaintenanceCoordinator) worker(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil {
				m.log.Warnf("maintenance run failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
