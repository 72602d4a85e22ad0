// Package scheduler runs the recurring agent, report and maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"sponte/internal/observability"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job is already running")
)

// DefaultJobTimeout bounds a single run.
const DefaultJobTimeout = 30 * time.Minute

// JobFunc is the body of a job.
type JobFunc func(ctx context.Context) error

type job struct {
	name  string
	spec  string
	run   JobFunc
	guard func(time.Time) bool
	entry cron.EntryID

	running atomic.Bool
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name    string
	Spec    string
	Next    time.Time
	Running bool
}

// Scheduler wraps a cron runner with named jobs.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// New returns a scheduler evaluating specs in loc. A zero timeout uses DefaultJobTimeout.
func New(loc *time.Location, timeout time.Duration, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	cl := cronLogger{log: log.With("component", "cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		location: loc,
		timeout:  timeout,
		logger:   log,
		tracer:   otel.Tracer("sponte/scheduler"),
		now:      time.Now,
		jobs:     map[string]*job{},
	}
}

// Register adds a job under a five-field cron spec.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	return s.register(name, spec, fn, nil)
}

// RegisterGuarded is Register with a predicate checked, in the scheduler's
// timezone, before each cron-triggered run. RunNow ignores the guard.
func (s *Scheduler) RegisterGuarded(name, spec string, guard func(time.Time) bool, fn JobFunc) error {
	return s.register(name, spec, fn, guard)
}

func (s *Scheduler) register(name, spec string, fn JobFunc, guard func(time.Time) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}

	j := &job{name: name, spec: spec, run: fn, guard: guard}
	id, err := s.cron.AddFunc(spec, func() { s.fire(j) })
	if err != nil {
		return fmt.Errorf("job %q: invalid spec %q: %w", name, spec, err)
	}
	j.entry = id
	s.jobs[name] = j
	return nil
}

func (s *Scheduler) fire(j *job) {
	if j.guard != nil && !j.guard(s.now().In(s.location)) {
		s.logger.Debug("job skipped by guard", "job", j.name)
		return
	}
	if err := s.execute(context.Background(), j); errors.Is(err, ErrJobRunning) {
		s.logger.Warn("previous run still in progress, skipping", "job", j.name)
	}
}

// RunNow runs a job synchronously. The run keeps ctx's values but not its
// cancellation, so a disconnecting caller does not abort the job.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	j, err := s.lookup(name)
	if err != nil {
		return err
	}
	return s.execute(ctx, j)
}

// Trigger starts a job in the background and returns immediately.
func (s *Scheduler) Trigger(name string) error {
	j, err := s.lookup(name)
	if err != nil {
		return err
	}
	if j.running.Load() {
		return ErrJobRunning
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.execute(context.Background(), j)
	}()
	return nil
}

func (s *Scheduler) lookup(name string) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return j, nil
}

func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	if !j.running.CompareAndSwap(false, true) {
		return ErrJobRunning
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "scheduler."+j.name, trace.WithAttributes(attribute.String("job", j.name)))
	defer span.End()

	log := s.logger.With("job", j.name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("job failed", "duration", time.Since(start), "error", err)
		} else {
			log.Info("job finished", "duration", time.Since(start))
		}
		observability.RecordSchedulerRun(ctx, j.name, err)
	}()

	log.Info("job started")
	return j.run(ctx)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobInfo{
			Name:    j.name,
			Spec:    j.spec,
			Next:    s.cron.Entry(j.entry).Next,
			Running: j.running.Load(),
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Start begins firing jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs), "timezone", s.location.String())
}

// Stop halts the schedule and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
