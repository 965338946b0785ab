package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/watson9049/billygold-website/internal/domain"
	"github.com/watson9049/billygold-website/pkg/logging"
)

const (
	DefaultInterval    = 15 * time.Minute
	DefaultMinInterval = 15 * time.Minute
	DefaultMaxInterval = 24 * time.Hour
)

// TickFunc is the work run on every scheduler tick.
type TickFunc func(ctx context.Context)

// Scheduler runs a refresh on a fixed interval that can be changed while
// running. A tick that fires while the previous one is still in progress
// is skipped.
type Scheduler struct {
	tracer trace.Tracer
	log    *logrus.Entry

	mu       sync.Mutex
	cfg      domain.ScheduleConfig
	parent   context.Context
	onTick   TickFunc
	stopLoop context.CancelFunc
	loopDone chan struct{}
	running  bool

	busy    atomic.Bool
	skipped atomic.Int64
}

func NewScheduler(tracer trace.Tracer, interval, min, max time.Duration) (*Scheduler, error) {
	if min <= 0 {
		min = DefaultMinInterval
	}
	if max <= 0 {
		max = DefaultMaxInterval
	}
	if min > max {
		return nil, fmt.Errorf("%w: schedule min %s above max %s", domain.ErrInvalidConfig, min, max)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	cfg := domain.ScheduleConfig{Interval: interval, Min: min, Max: max}
	if !cfg.Contains(interval) {
		return nil, fmt.Errorf("%w: interval %s outside [%s, %s]", domain.ErrInvalidConfig, interval, min, max)
	}
	return &Scheduler{
		tracer: tracer,
		log:    logging.For("scheduler"),
		cfg:    cfg,
	}, nil
}

// Start runs onTick once immediately and then on every interval until ctx
// is cancelled or Stop is called. Starting a running scheduler is an error.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, onTick TickFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if interval > 0 {
		if !s.cfg.Contains(interval) {
			return fmt.Errorf("%w: interval %s outside [%s, %s]", domain.ErrInvalidConfig, interval, s.cfg.Min, s.cfg.Max)
		}
		s.cfg.Interval = interval
	}

	s.parent = ctx
	s.onTick = onTick
	s.running = true
	s.dispatch("initial")
	s.startLoopLocked()

	s.log.WithField("interval", s.cfg.Interval.String()).Info("scheduler started")
	return nil
}

// Reconfigure replaces the interval. Out-of-bounds values return
// domain.ErrInvalidConfig and leave the current schedule untouched.
func (s *Scheduler) Reconfigure(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Contains(interval) {
		return fmt.Errorf("%w: interval %s outside [%s, %s]", domain.ErrInvalidConfig, interval, s.cfg.Min, s.cfg.Max)
	}

	prev := s.cfg.Interval
	s.cfg.Interval = interval
	if s.running {
		s.stopLoopLocked()
		s.startLoopLocked()
	}

	s.log.WithFields(logrus.Fields{
		"previous": prev.String(),
		"interval": interval.String(),
	}).Info("schedule reconfigured")
	return nil
}

// Stop halts future ticks. A tick already in progress runs to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.stopLoopLocked()
	s.running = false
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) Config() domain.ScheduleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Skipped reports how many ticks were dropped because a previous tick was
// still in progress.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) startLoopLocked() {
	loopCtx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.stopLoop = cancel
	s.loopDone = done

	go s.loop(loopCtx, s.cfg.Interval, done)
}

func (s *Scheduler) stopLoopLocked() {
	if s.stopLoop == nil {
		return
	}
	s.stopLoop()
	<-s.loopDone
	s.stopLoop = nil
	s.loopDone = nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch("tick")
		}
	}
}

// dispatch runs onTick in its own goroutine so the loop never blocks on it.
func (s *Scheduler) dispatch(reason string) {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.WithField("reason", reason).Warn("previous refresh still running, skipping tick")
		return
	}

	ctx := s.parent
	onTick := s.onTick
	go func() {
		defer s.busy.Store(false)
		ctx, span := s.tracer.Start(ctx, "scheduler.tick")
		defer span.End()
		onTick(ctx)
	}()
}
