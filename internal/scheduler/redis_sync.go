package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/metrics"
)

// LicenseStatusReader returns the persisted license status
type LicenseStatusReader interface {
	Status(ctx context.Context) (domain.LicenseStatus, error)
}

// StateSyncer restores gauges from the persisted state on startup, so a
// restart does not report an unknown license or an empty last check
type StateSyncer struct {
	states   StateStore
	licenses LicenseStatusReader
	metrics  *metrics.Registry
	basename string
	version  string
	logger   logger.Logger
}

// NewStateSyncer creates a new state syncer
func NewStateSyncer(
	states StateStore,
	licenses LicenseStatusReader,
	m *metrics.Registry,
	product domain.Product,
	log logger.Logger,
) *StateSyncer {
	return &StateSyncer{
		states:   states,
		licenses: licenses,
		metrics:  m,
		basename: product.UniqueBasename(),
		version:  product.Version,
		logger:   log,
	}
}

// Sync loads the persisted license status and cycle state into metrics
func (rs *StateSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing persisted state")

	status, err := rs.licenses.Status(ctx)
	if err != nil {
		return err
	}
	rs.metrics.SetLicenseStatus(status)

	state, err := rs.states.Load(ctx)
	if err != nil {
		return err
	}

	if state.LastChecked.IsZero() {
		rs.logger.Info("no previous update check found")
		return nil
	}

	var remote *string
	if v := state.Response[rs.basename]; v != nil {
		remote = v.NewVersion
	}
	available := domain.UpdateAvailable(rs.version, remote)
	rs.metrics.RecordCheck("restored", available, state.LastChecked)

	rs.logger.Info("synced persisted state",
		logger.String("license_status", status.String()),
		logger.Time("last_checked", state.LastChecked),
		logger.Bool("update_available", available))

	return nil
}
