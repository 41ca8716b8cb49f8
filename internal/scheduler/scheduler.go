// Package scheduler generates the periodic ticks spec.md §4.8 requires:
// ingest, fusion, retention, and dossier-stats-refresh. It keeps the
// teacher's internal/scheduler.Service shape (Start/Stop/IsRunning guarded
// by a mutex, a stop channel) but replaces the teacher's per-dossier
// date-math evaluation with github.com/robfig/cron/v3 schedule
// expressions, since the fixed set of interval-driven jobs here is exactly
// what a cron-style scheduler is for.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one named, schedulable unit of work. Overlapping runs of the same
// job are suppressed by a per-job mutex: a tick that finds the previous run
// still holding it is skipped (spec.md §4.8: "overlapping ticks
// suppressed").
type Job struct {
	Name string
	Spec string // cron expression
	Run  func(ctx context.Context) error
}

// Service runs a fixed set of Jobs on their own cron schedules.
type Service struct {
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	log     zerolog.Logger
	jobRunning map[string]*sync.Mutex
}

func NewService(log zerolog.Logger) *Service {
	return &Service{
		cron:       cron.New(),
		log:        log,
		jobRunning: make(map[string]*sync.Mutex),
	}
}

// AddJob registers a job. Call before Start.
func (s *Service) AddJob(j Job) error {
	s.jobRunning[j.Name] = &sync.Mutex{}
	_, err := s.cron.AddFunc(j.Spec, func() {
		lock := s.jobRunning[j.Name]
		if !lock.TryLock() {
			s.log.Debug().Str("job", j.Name).Msg("scheduler: previous run still in progress, skipping tick")
			return
		}
		defer lock.Unlock()
		if err := j.Run(s.ctx); err != nil {
			s.log.Warn().Err(err).Str("job", j.Name).Msg("scheduler: job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: add job %s: %w", j.Name, err)
	}
	return nil
}

// Start begins running registered jobs on their schedules.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true
}

// Stop halts the scheduler and waits for in-flight job runs to settle.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
