package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of scheduled work.
type Task func(ctx context.Context) error

// Scheduler runs named tasks on cron expressions evaluated in a fixed zone.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a scheduler bound to loc; overlapping runs of the same task are skipped.
func New(loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	adapter := cronLogger{sugar: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	return &Scheduler{cron: c, loc: loc, timeout: timeout, logger: logger}
}

// Register adds task under spec (standard five-field cron syntax).
func (s *Scheduler) Register(name, spec string, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		if err := task(ctx); err != nil {
			s.logger.Sugar().Errorw("scheduled task failed", "task", name, "duration", time.Since(start), "error", err)
			return
		}
		s.logger.Sugar().Infow("scheduled task finished", "task", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("register task %s: %w", name, err)
	}
	s.logger.Sugar().Infow("task scheduled", "task", name, "spec", spec, "tz", s.loc.String())
	return nil
}

// Next reports the next activation of the first registered task.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}

// Start begins dispatching in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatching and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
