// Package scheduler runs shell commands once a day at a fixed time.
//
// Jobs live in memory for the life of the process. A background poller checks
// them every interval and fires each job whose hour and minute equal the
// current wall-clock time, at most once per minute. Jobs fire one after
// another on the poller goroutine, never on the caller's.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"termpal/model"

	"go.uber.org/zap"
)

// ErrMalformedTime is returned for time strings that are not 24-hour HH:MM.
var ErrMalformedTime = errors.New("time must be in HH:MM format")

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	m := timeOfDayRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrMalformedTime)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// Dispatcher runs a command. The shell implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd model.Command) error
}

// Job is a command registered to run daily.
type Job struct {
	ID      int64
	Hour    int
	Minute  int
	Command model.Command
}

// TimeOfDay formats the trigger as HH:MM.
func (j Job) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", j.Hour, j.Minute)
}

func (j Job) matches(now time.Time) bool {
	return j.Hour == now.Hour() && j.Minute == now.Minute()
}

type entry struct {
	job Job
	// lastFired is the wall-clock minute of the last firing, as minuteKey.
	lastFired string
}

func minuteKey(t time.Time) string {
	return t.Format("2006-01-02T15:04")
}

// Registry is the thread-safe set of jobs.
type Registry struct {
	mu     sync.Mutex
	nextID int64
	jobs   []*entry
}

// Add registers a job and assigns it the next id.
func (r *Registry) Add(hour, minute int, cmd model.Command) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	job := Job{
		ID:     r.nextID,
		Hour:   hour,
		Minute: minute,
		Command: model.Command{
			Verb: cmd.Verb,
			Args: append([]string(nil), cmd.Args...),
		},
	}
	r.jobs = append(r.jobs, &entry{job: job})
	return job
}

// Len is the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Jobs returns a snapshot of the registered jobs in id order.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Job, len(r.jobs))
	for i, e := range r.jobs {
		out[i] = e.job
	}
	return out
}

// claimDue marks every job due at now as fired for this minute and returns
// them. A job already fired in this minute is skipped.
func (r *Registry) claimDue(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := minuteKey(now)
	var due []Job
	for _, e := range r.jobs {
		if e.job.matches(now) && e.lastFired != key {
			e.lastFired = key
			due = append(due, e.job)
		}
	}
	return due
}

// Scheduler owns the registry and the poller.
type Scheduler struct {
	registry *Registry
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu         sync.RWMutex
	dispatcher Dispatcher
	onFire     func(Job)
	onError    func(Job, error)

	// fireMu keeps firings sequential even if Tick is called concurrently.
	fireMu sync.Mutex
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: &Registry{},
		interval: time.Second,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDispatcher sets where fired commands go.
func (s *Scheduler) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// SetFireHandler sets a callback run just before each job is dispatched.
func (s *Scheduler) SetFireHandler(fn func(Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFire = fn
}

// SetErrorHandler sets a callback for errors returned by a fired command.
func (s *Scheduler) SetErrorHandler(fn func(Job, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Schedule parses timeOfDay and registers cmd to run daily at that time. A
// malformed time leaves the registry unchanged.
func (s *Scheduler) Schedule(timeOfDay string, cmd model.Command) (Job, error) {
	if cmd.Verb == "" {
		return Job{}, fmt.Errorf("empty command")
	}
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return Job{}, err
	}

	job := s.registry.Add(hour, minute, cmd)
	s.logger.Info("job scheduled",
		zap.Int64("job_id", job.ID),
		zap.String("at", job.TimeOfDay()),
		zap.String("command", job.Command.String()))
	return job, nil
}

// Jobs returns a snapshot of registered jobs.
func (s *Scheduler) Jobs() []Job {
	return s.registry.Jobs()
}

// Tick fires every job due at now, sequentially, and reports how many fired.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	due := s.registry.claimDue(now)
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		s.fire(ctx, job)
	}
	return len(due)
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	s.mu.RLock()
	d, onFire, onError := s.dispatcher, s.onFire, s.onError
	s.mu.RUnlock()

	if d == nil {
		s.logger.Warn("job due but no dispatcher set", zap.Int64("job_id", job.ID))
		return
	}

	s.logger.Info("firing job",
		zap.Int64("job_id", job.ID),
		zap.String("command", job.Command.String()))

	if onFire != nil {
		onFire(job)
	}

	err := dispatchSafely(ctx, d, job.Command)
	if err == nil {
		return
	}
	s.logger.Warn("scheduled command failed", zap.Int64("job_id", job.ID), zap.Error(err))
	if onError != nil {
		onError(job, err)
	}
}

func dispatchSafely(ctx context.Context, d Dispatcher, cmd model.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic dispatching %q: %v", cmd.String(), r)
		}
	}()
	return d.Dispatch(ctx, cmd)
}

// Run polls until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}
