package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

// DefaultGCInterval is how often expired sessions are swept.
const DefaultGCInterval = time.Hour

// SessionPruner drops index entries of sessions Redis already expired.
// *redisstore.Store implements it.
type SessionPruner interface {
	PruneSessions(ctx context.Context) (int, error)
}

// GarbageCollector periodically sweeps the session indexes.
type GarbageCollector struct {
	store         SessionPruner
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

// NewGarbageCollector creates a new garbage collector. manualTrigger may be
// nil.
func NewGarbageCollector(
	store SessionPruner,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		store:         store,
		logger:        log.With(logger.Component("gc")),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	// Run immediately on start
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.manualTrigger:
				gc.logger.Info("manual garbage collection triggered")
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector. Safe to call more than once.
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
}

// Collect removes stale session index entries and returns how many went.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	gc.logger.Debug("running session garbage collection")

	n, err := gc.store.PruneSessions(ctx)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("sessions_pruned", n))
	} else {
		gc.logger.Debug("no sessions to garbage collect")
	}
	return n, nil
}
