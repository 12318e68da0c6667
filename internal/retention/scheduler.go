package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepRetryDelay is how soon a sweep is retried after the registry was
// unreachable, instead of waiting a full check interval.
const sweepRetryDelay = time.Minute

// Scheduler drives the periodic background sweep. It wraps robfig/cron with
// a single @every entry invoking the manager's gated trigger; a tick that
// lands while a pass is still running is dropped by the gate, never queued.
type Scheduler struct {
	cron       *cron.Cron
	mgr        *Manager
	interval   time.Duration
	retryDelay time.Duration

	mu      sync.Mutex
	retry   *time.Timer
	stopped bool
}

// NewScheduler registers the sweep entry at the given interval. The
// interval comes from STORAGE_CHECK_INTERVAL_MINUTES and is validated
// positive at startup.
func NewScheduler(mgr *Manager, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	s := &Scheduler{
		cron:       cron.New(),
		mgr:        mgr,
		interval:   interval,
		retryDelay: sweepRetryDelay,
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return nil, fmt.Errorf("register sweep entry: %w", err)
	}
	return s, nil
}

// Start begins the periodic sweep in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	logJSON(map[string]any{
		"component": "retention",
		"event":     "scheduler_started",
		"status":    "success",
		"interval":  s.interval.String(),
	})
}

// Stop halts the timer, cancels a pending retry, and waits for an in-flight
// sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	logJSON(map[string]any{
		"component": "retention",
		"event":     "scheduler_stopped",
		"status":    "success",
	})
}

func (s *Scheduler) runSweep() {
	report, err := s.mgr.TriggerCleanup(context.Background())
	if err != nil {
		// Logged inside TriggerCleanup; retry sooner than the next tick.
		s.scheduleRetry()
		return
	}
	if report.Skipped {
		logJSON(map[string]any{
			"component": "retention",
			"event":     "sweep_skipped",
			"status":    "success",
		})
	}
}

func (s *Scheduler) scheduleRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.retry != nil {
		return
	}
	s.retry = time.AfterFunc(s.retryDelay, func() {
		s.mu.Lock()
		s.retry = nil
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		s.runSweep()
	})
}
