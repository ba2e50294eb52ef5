package health

import (
	"context"
	"time"

	corehealth "pjecz/carina/internal/core/health"
)

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Checker pings one collaborator (database, queue).
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	Nombre string
	Fn     func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.Nombre }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// Service exposes health-check use cases to adapters.
type Service struct {
	meta      Metadata
	startedAt time.Time
	checkers  []Checker
	timeout   time.Duration
}

func NewService(meta Metadata, checkers ...Checker) *Service {
	return &Service{
		meta:      meta,
		startedAt: time.Now().UTC(),
		checkers:  checkers,
		timeout:   2 * time.Second,
	}
}

// Status returns the current availability snapshot. Any failing dependency
// makes the service DEGRADED.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	st := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StatusUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}

	for _, c := range s.checkers {
		dep := corehealth.Dependency{Name: c.Name(), Status: corehealth.StatusUp}
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := c.Check(checkCtx); err != nil {
			dep.Status = corehealth.StatusDown
			dep.Error = err.Error()
			st.Status = corehealth.StatusDegraded
		}
		cancel()
		st.Dependencies = append(st.Dependencies, dep)
	}
	return st
}
