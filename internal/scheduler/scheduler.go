package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/movierec/movierec-backend/internal/logger"
)

// JobFunc is one recompute job. Errors are logged and abort only the current
// firing; the previous cache contents keep serving until the next success.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
	running  atomic.Bool
}

// Scheduler fires each registered job immediately on Start and then on its
// fixed interval. A job never overlaps itself: a firing that lands while the
// previous invocation still runs is skipped, not queued. Distinct jobs run
// concurrently with each other.
type Scheduler struct {
	log  *logger.Logger
	jobs []*job
}

func New(baseLog *logger.Logger) *Scheduler {
	return &Scheduler{log: baseLog.With("component", "Scheduler")}
}

func (s *Scheduler) AddJob(name string, interval time.Duration, fn JobFunc) {
	s.jobs = append(s.jobs, &job{name: name, interval: interval, run: fn})
}

func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.log.Info("Starting scheduled job", "job", j.name, "interval", j.interval)
		go s.loop(ctx, j)
	}
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	s.runOnce(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduled job stopped", "job", j.name)
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

// Trigger fires the named job out of band, detached from the caller's
// request lifetime. It is idempotent: while an invocation is in progress the
// trigger is a no-op and Trigger returns false.
func (s *Scheduler) Trigger(ctx context.Context, name string) (bool, error) {
	for _, j := range s.jobs {
		if j.name != name {
			continue
		}
		if !j.running.CompareAndSwap(false, true) {
			s.log.Info("Trigger ignored, job already running", "job", j.name)
			return false, nil
		}
		go s.runLocked(context.WithoutCancel(ctx), j)
		return true, nil
	}
	return false, fmt.Errorf("unknown job %q", name)
}

// runOnce runs the job unless an invocation is already in flight; overlapping
// firings are skipped, not queued.
func (s *Scheduler) runOnce(ctx context.Context, j *job) bool {
	if !j.running.CompareAndSwap(false, true) {
		s.log.Info("Previous invocation still running, skipping", "job", j.name)
		return false
	}
	s.runLocked(ctx, j)
	return true
}

// runLocked executes the job body. The caller must hold j.running.
func (s *Scheduler) runLocked(ctx context.Context, j *job) {
	defer j.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Scheduled job panicked", "job", j.name, "panic", r)
		}
	}()

	start := time.Now()
	s.log.Info("Running scheduled job", "job", j.name)
	if err := j.run(ctx); err != nil {
		s.log.Error("Scheduled job failed", "job", j.name, "error", err, "elapsed", time.Since(start))
		return
	}
	s.log.Info("Scheduled job finished", "job", j.name, "elapsed", time.Since(start))
}
