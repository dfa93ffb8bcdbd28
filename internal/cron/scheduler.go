// Package cron runs periodic maintenance jobs (dedupe sweeps, webhook
// keepalive) on cron schedules.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hyperlinkspace/telegate/internal/core"
	"github.com/robfig/cron/v3"
)

func init() {
	core.RegisterModule(&Scheduler{})
}

// Compile-time interface guards.
var (
	_ core.Provisioner = (*Scheduler)(nil)
	_ core.Starter     = (*Scheduler)(nil)
	_ core.Stopper     = (*Scheduler)(nil)
)

// Job is a named unit of periodic work.
type Job interface {
	// Name identifies the job in logs. Must be unique per scheduler.
	Name() string

	// Schedule is a cron expression (standard five-field syntax, plus the
	// @every shorthand).
	Schedule() string

	// Run executes the job. The context is cancelled on shutdown.
	Run(ctx context.Context) error
}

// Scheduler manages periodic job execution. Jobs are registered between
// Provision and Start; a tick is skipped when the previous run of the same
// job is still in flight.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	names  map[string]*atomic.Bool // job name → running flag
	logger *slog.Logger
	cancel context.CancelFunc
}

// ModuleInfo implements core.Module.
func (s *Scheduler) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron.scheduler",
		New: func() core.Module { return &Scheduler{} },
	}
}

// Provision implements core.Provisioner. It registers the scheduler as a
// service so other modules can add jobs during their Start().
func (s *Scheduler) Provision(ctx *core.AppContext) error {
	s.logger = ctx.Logger
	s.names = make(map[string]*atomic.Bool)
	ctx.RegisterService("cron.scheduler", s)
	return nil
}

// RegisterJob adds a job. Must be called before Start().
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.names[name] = &atomic.Bool{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start implements core.Starter. Returns an error if any job has an invalid
// schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New()

	for _, j := range s.jobs {
		job := j
		running := s.names[job.Name()]

		_, err := s.cron.AddFunc(job.Schedule(), func() {
			if !running.CompareAndSwap(false, true) {
				s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
				return
			}
			defer running.Store(false)

			if err := job.Run(ctx); err != nil {
				s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop implements core.Stopper, waiting for in-flight jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
