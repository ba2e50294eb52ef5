// Package scheduler fires the periodic tasks on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner. Jobs receive the context given to Start so
// they stop enqueueing once the process shuts down.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
	ctx  context.Context
	jobs []job
}

type job struct {
	nombre string
	spec   string
	fn     func(ctx context.Context) error
}

func New(log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log.With("component", "scheduler"),
		ctx:  context.Background(),
	}
}

// Add registers fn under spec. An empty spec leaves the job disabled.
func (s *Scheduler) Add(nombre, spec string, fn func(ctx context.Context) error) error {
	if spec == "" {
		s.log.Info("job disabled", "job", nombre)
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debug("job fired", "job", nombre)
		if err := fn(s.ctx); err != nil {
			s.log.Error("job failed", "job", nombre, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", nombre, spec, err)
	}
	s.jobs = append(s.jobs, job{nombre: nombre, spec: spec, fn: fn})
	s.log.Info("job scheduled", "job", nombre, "spec", spec)
	return nil
}

// Jobs returns the names of the enabled jobs.
func (s *Scheduler) Jobs() []string {
	nombres := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		nombres = append(nombres, j.nombre)
	}
	return nombres
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop prevents new runs and waits for the running ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}
