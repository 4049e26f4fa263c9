package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/deliverycal/internal/model"
)

// DefaultInterval is the time between two scheduled runs.
const DefaultInterval = 24 * time.Hour

// Runner executes one pass. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context) *model.RunSummary
}

// Scheduler runs a Runner immediately and then at a fixed interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger

	// onSummary receives every completed summary.
	onSummary func(*model.RunSummary)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the time between runs. Non-positive values keep the
// default.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSchedulerLogger sets a custom logger for the scheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithSummaryHandler sets a callback invoked after every run.
func WithSummaryHandler(fn func(*model.RunSummary)) SchedulerOption {
	return func(s *Scheduler) {
		s.onSummary = fn
	}
}

// NewScheduler creates a Scheduler for runner.
func NewScheduler(runner Runner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Interval returns the time between runs.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start runs until ctx is cancelled and returns the number of completed
// runs. The first run starts immediately. A run in flight when ctx is
// cancelled finishes its cleanup before Start returns. A run that panics is
// logged and the schedule continues.
func (s *Scheduler) Start(ctx context.Context) int {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	runs := 0
	for {
		s.runOnce(ctx)
		runs++

		if ctx.Err() != nil {
			return runs
		}
		s.logger.Info("next run scheduled", "at", time.Now().Add(s.interval).Format(time.RFC3339))

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "runs", runs)
			return runs
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("run panicked", "error", fmt.Sprint(r))
		}
	}()

	summary := s.runner.Run(ctx)
	if s.onSummary != nil && summary != nil {
		s.onSummary(summary)
	}
}
