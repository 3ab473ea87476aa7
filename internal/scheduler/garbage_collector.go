package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/updater/internal/logger"
)

const (
	// DefaultSweepInterval is the interval between two sweeps of the memory store
	DefaultSweepInterval = 10 * time.Minute
)

// Sweeper drops expired entries and reports how many were removed
type Sweeper interface {
	Sweep() int
	Count() int
}

// GarbageCollector periodically removes expired transients from stores
// that do not expire keys on their own
type GarbageCollector struct {
	store    Sweeper
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	store Sweeper,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &GarbageCollector{
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect()
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect removes expired transients and returns how many were removed
func (gc *GarbageCollector) Collect() int {
	removed := gc.store.Sweep()
	if removed > 0 {
		gc.logger.Info("garbage collected expired transients",
			logger.Int("removed", removed),
			logger.Int("remaining", gc.store.Count()))
	} else {
		gc.logger.Debug("no transients to garbage collect")
	}
	return removed
}
