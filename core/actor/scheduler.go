package actor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

type Scheduler interface {
	Schedule(f func())
	// Wait blocks until all in-flight tasks complete.
	Wait()
}

type scheduler struct {
	ctx      context.Context
	log      *slog.Logger
	inflight atomic.Int32
	sem      chan struct{}

	wg sync.WaitGroup

	actorID string
	metrics Metrics
}

// NewScheduler creates a scheduler that runs at most max tasks at a time.
// If max <= 0, concurrency is unlimited. Tasks not yet started when ctx is
// cancelled are dropped.
func NewScheduler(max int, ctx context.Context) Scheduler {
	return NewSchedulerWithMetrics(max, ctx, "", NopMetrics(), slog.Default())
}

// NewSchedulerWithMetrics creates a scheduler reporting to m.
func NewSchedulerWithMetrics(max int, ctx context.Context, actorID string, m Metrics, log *slog.Logger) Scheduler {
	var sem chan struct{}
	if max > 0 {
		sem = make(chan struct{}, max)
	}
	if m == nil {
		m = NopMetrics()
	}
	if log == nil {
		log = slog.Default()
	}
	return &scheduler{
		ctx:     ctx,
		sem:     sem,
		log:     log,
		actorID: actorID,
		metrics: m,
	}
}

func (s *scheduler) Schedule(f func()) {
	if s.ctx.Err() != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.sem != nil {
			select {
			case <-s.ctx.Done():
				return
			case s.sem <- struct{}{}:
			}
			defer func() { <-s.sem }()
		}

		s.metrics.SchedulerInflight(s.actorID, int(s.inflight.Add(1)))
		defer func() {
			s.metrics.SchedulerInflight(s.actorID, int(s.inflight.Add(-1)))
		}()

		s.run(f)
	}()
}

func (s *scheduler) run(f func()) {
	defer s.metrics.SchedulerTaskDuration().ObserveDuration()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.SchedulerTaskCompleted(false)
			s.log.Error("scheduled task panicked", slog.Any("recovered", r))
		}
	}()

	f()
	s.metrics.SchedulerTaskCompleted(true)
}

func (s *scheduler) Wait() { s.wg.Wait() }
