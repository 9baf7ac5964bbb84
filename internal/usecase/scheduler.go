package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

// Scheduler wires the recurring driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	last    *domain.PipelineBatchResult
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: log}
}

// Start registers the pipeline with the provided scheduler. Drivers may fire jobs
// concurrently; a trigger that arrives while a run is still in progress is skipped.
// TickerScheduler runs jobs one after another and never overlaps.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if !s.begin() {
			s.logger.Warn("previous run still in progress, skipping trigger", "trigger", trigger)
			return
		}
		result := s.pipeline.Run(ctx, trigger)
		s.end(result)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// LastResult returns the most recent completed run, if any.
func (s *Scheduler) LastResult() (domain.PipelineBatchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.PipelineBatchResult{}, false
	}
	return *s.last, true
}

func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) end(result domain.PipelineBatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.last = &result
}
