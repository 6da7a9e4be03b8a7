package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/calbridge/calbridge/internal/logging"
)

// Scheduler drives periodic sync passes. Start while running is a no-op
// and Stop waits for a mid-flight pass to finish before returning, so a
// tick is never cut off half-committed.
type Scheduler struct {
	mu      stdsync.Mutex
	ctx     context.Context
	engine  *Engine
	logger  *slog.Logger
	cron    *cron.Cron
	running bool

	// immediate tracks the first pass, which runs outside cron and so
	// is not covered by cron's Stop context.
	immediate stdsync.WaitGroup
}

// NewScheduler creates a scheduler bound to the given base context.
// Scheduled passes inherit this context, so cancelling it stops any
// in-flight pass cooperatively.
func NewScheduler(ctx context.Context, engine *Engine, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		ctx:    ctx,
		engine: engine,
		logger: logger,
	}
}

// Start begins periodic syncing at the given interval. The first pass
// runs immediately in the background; subsequent passes follow the
// interval. Starting an already running scheduler is a no-op.
func (s *Scheduler) Start(intervalHours int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info("Sync scheduler already running")
		return nil
	}
	if intervalHours < 1 {
		return fmt.Errorf("sync interval must be at least 1 hour, got %d", intervalHours)
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %dh", intervalHours)
	if _, err := c.AddFunc(spec, s.runPass); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	s.cron = c
	s.running = true
	c.Start()

	// cron's @every waits a full interval before the first tick; users
	// starting sync expect a pass now
	s.immediate.Add(1)
	go func() {
		defer s.immediate.Done()
		s.runPass()
	}()

	s.logger.Info("Sync scheduler started", "interval_hours", intervalHours)
	return nil
}

// Stop halts scheduling and waits for a running pass to complete.
// Stopping an already stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	wasRunning := s.running
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	if !wasRunning {
		s.logger.Info("Sync scheduler not running")
		return
	}

	// Stop returns a context that is done once in-flight jobs finish.
	// The immediate first pass runs outside cron and is waited on
	// separately.
	<-c.Stop().Done()
	s.immediate.Wait()
	s.logger.Info("Sync scheduler stopped")
}

// Running reports whether the scheduler is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runPass executes one scheduled sync pass, logging rather than
// propagating failures; the next tick simply tries again.
func (s *Scheduler) runPass() {
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	result, err := s.engine.RunSync(s.ctx, false)
	if err != nil {
		s.logger.Error("Scheduled sync failed to persist state", logging.Err(err))
		return
	}
	if !result.Success {
		s.logger.Warn("Scheduled sync did not run",
			"message", result.Message,
			logging.Duration(time.Since(start)))
		return
	}

	s.logger.Info("Scheduled sync complete",
		logging.Count(result.EventsProcessed),
		logging.Duration(time.Since(start)))
}
