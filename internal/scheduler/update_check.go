package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/updates"
)

// Checker runs one update check against a cycle state.
type Checker interface {
	Check(ctx context.Context, state *updates.CycleState) (*updates.CycleState, updates.Result, error)
}

// StateStore persists the cycle state between checks.
type StateStore interface {
	Load(ctx context.Context) (*updates.CycleState, error)
	Save(ctx context.Context, state *updates.CycleState) error
}

// UpdateCheckScheduler runs an update check cycle periodically and on demand
type UpdateCheckScheduler struct {
	checker       Checker
	states        StateStore
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewUpdateCheckScheduler creates a new update check scheduler
func NewUpdateCheckScheduler(
	checker Checker,
	states StateStore,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *UpdateCheckScheduler {
	return &UpdateCheckScheduler{
		checker:       checker,
		states:        states,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs a first cycle and then one per interval or manual trigger
func (s *UpdateCheckScheduler) Start(ctx context.Context) error {
	// Check immediately on start
	if err := s.RunCycle(ctx); err != nil {
		return fmt.Errorf("initial update check failed: %w", err)
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.RunCycle(ctx); err != nil {
					s.logger.Error("update check failed",
						logger.Error(err))
				}
			case <-s.manualTrigger:
				s.logger.Info("manual update check triggered")
				if err := s.RunCycle(ctx); err != nil {
					s.logger.Error("update check failed",
						logger.Error(err))
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the scheduler
func (s *UpdateCheckScheduler) Stop() {
	close(s.stopCh)
}

// RunCycle starts a new cycle: a fresh state is checked and persisted.
// Answers younger than the cache ttl are served from the version cache.
func (s *UpdateCheckScheduler) RunCycle(ctx context.Context) error {
	state, res, err := s.checker.Check(ctx, updates.NewCycleState())
	if err != nil {
		return err
	}

	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save update state: %w", err)
	}

	fields := []logger.Field{
		logger.Bool("update_available", res.UpdateAvailable),
		logger.Bool("from_cache", res.FromCache),
	}
	if res.UpdateAvailable && res.Version.NewVersion != nil {
		fields = append(fields, logger.String("new_version", *res.Version.NewVersion))
	}
	if res.Error != "" {
		fields = append(fields, logger.String("error", res.Error))
	}
	s.logger.Info("update check cycle completed", fields...)

	return nil
}
