package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rally-backend/internal/logging"
	"rally-backend/internal/studytime"
)

const staleSweepInterval = time.Minute

// Scheduler runs the reconciliation sweeps in-process for deployments without
// an external cron caller.
type Scheduler struct {
	reconciler *Reconciler
	logger     *slog.Logger
	interval   time.Duration
	now        func() time.Time
	stopChan   chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	started    bool
	lastDay    time.Time
}

func NewScheduler(reconciler *Reconciler, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		logger:     logger,
		interval:   staleSweepInterval,
		now:        time.Now,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	if s.reconciler == nil {
		return
	}
	s.started = true
	s.lastDay = studytime.Day(s.now(), 0)
	go s.loop()
	s.logger.Info("reconciliation scheduler started", slog.Duration("interval", s.interval))
}

// Stop ends the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started {
		<-s.done
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)

	// Run on startup as well as by interval.
	s.tick(s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick runs the midnight sweep once per New York day rollover, then the
// stale sweep.
func (s *Scheduler) tick(now time.Time) {
	ctx := logging.WithLogger(context.Background(), s.logger)

	today := studytime.Day(now, 0)
	if today.After(s.lastDay) {
		if _, err := s.reconciler.SweepMidnight(ctx, now); err != nil {
			s.logger.Error("midnight sweep failed", slog.Any("error", err))
		} else {
			s.lastDay = today
		}
	}

	if _, err := s.reconciler.SweepStale(ctx, now); err != nil {
		s.logger.Error("stale sweep failed", slog.Any("error", err))
	}
}
