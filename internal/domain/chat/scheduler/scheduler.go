package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IndexRepairer replays queued per-user index writes.
type IndexRepairer interface {
	Repair(ctx context.Context) (applied, remaining int)
	Pending() int
}

// Scheduler periodically drains the index-repair queue. Repairs are
// idempotent and keyed per (chat, owner), so running a pass twice is
// safe.
type Scheduler struct {
	repairer IndexRepairer
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// Config holds scheduler configuration.
type Config struct {
	Interval time.Duration
}

// New creates an index-repair scheduler.
func New(repairer IndexRepairer, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}

	return &Scheduler{
		repairer: repairer,
		interval: cfg.Interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("index repair scheduler started", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("index repair scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) process(ctx context.Context) {
	if s.repairer.Pending() == 0 {
		return
	}

	applied, remaining := s.repairer.Repair(ctx)
	s.logger.Info("index repair pass", "applied", applied, "remaining", remaining)
}
