package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	applogger "MarketPulse/pkg/logger"
)

type scheduleKind int

const (
	kindInterval scheduleKind = iota
	kindDaily
	kindOnce
)

// Schedule describes when a job fires: on a fixed interval, daily at a
// UTC wall-clock time, or once after a startup delay.
type Schedule struct {
	kind     scheduleKind
	hour     int
	minute   int
	interval time.Duration
}

// Every fires the job each time d elapses.
func Every(d time.Duration) Schedule {
	return Schedule{kind: kindInterval, interval: d}
}

// DailyAt fires the job once per day at HH:MM UTC.
func DailyAt(hour, minute int) Schedule {
	return Schedule{kind: kindDaily, hour: hour, minute: minute}
}

// After fires the job exactly once, d after registration.
func After(d time.Duration) Schedule {
	return Schedule{kind: kindOnce, interval: d}
}

func (s Schedule) nextRun(now time.Time) time.Time {
	switch s.kind {
	case kindDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		return next
	default:
		return now.Add(s.interval)
	}
}

// Job is one periodic task. Jobs never overlap with themselves: a tick
// that finds the previous run still going is skipped.
type Job struct {
	Name     string
	Schedule Schedule
	Timeout  time.Duration
	Handler  func(ctx context.Context) error

	mu      sync.Mutex
	nextRun time.Time
	lastRun time.Time
	lastErr error
	runs    int
	running bool
	done    bool
}

// JobStatus is a point-in-time snapshot of a job's state.
type JobStatus struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
	LastErr string    `json:"last_error,omitempty"`
	Runs    int       `json:"runs"`
	Running bool      `json:"running"`
}

// Status returns the job's current state.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := JobStatus{
		Name:    j.Name,
		NextRun: j.nextRun,
		LastRun: j.lastRun,
		Runs:    j.runs,
		Running: j.running,
	}
	if j.lastErr != nil {
		st.LastErr = j.lastErr.Error()
	}
	return st
}

// Scheduler drives all periodic tasks on independent cadences. Each
// job runs in its own goroutine; a slow or failing job never stalls
// the others.
type Scheduler struct {
	l    *applogger.Logger
	poll time.Duration

	mu       sync.RWMutex
	jobs     []*Job
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithPollInterval overrides how often due jobs are checked.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.poll = d }
}

// New creates a scheduler.
func New(l *applogger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		l:        l,
		poll:     time.Second,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.nextRun = job.Schedule.nextRun(time.Now().UTC())
	s.jobs = append(s.jobs, job)

	s.l.Info("job registered",
		applogger.String("job", job.Name),
		applogger.String("first_run", job.nextRun.Format(time.RFC3339)),
	)
}

// Start launches the scheduling loop in a background goroutine.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	s.l.Info("scheduler started", applogger.Int("jobs", len(s.jobs)))
}

// Stop halts the loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	s.l.Info("scheduler stopped")
}

// Jobs returns a status snapshot of every registered job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	statuses := make([]JobStatus, len(jobs))
	for i, j := range jobs {
		statuses[i] = j.Status()
	}
	return statuses
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()

	s.mu.RLock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	for _, job := range jobs {
		job.mu.Lock()
		due := !job.done && !job.running && !now.Before(job.nextRun)
		if due {
			job.running = true
		}
		job.mu.Unlock()

		if due {
			s.wg.Add(1)
			go s.run(job)
		}
	}
}

func (s *Scheduler) run(job *Job) {
	defer s.wg.Done()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := s.invoke(ctx, job)
	elapsed := time.Since(start)

	job.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	job.runs++
	job.running = false
	if job.Schedule.kind == kindOnce {
		job.done = true
	} else {
		job.nextRun = job.Schedule.nextRun(time.Now().UTC())
	}
	job.mu.Unlock()

	if err != nil {
		s.l.Error("job failed",
			applogger.String("job", job.Name),
			applogger.Duration("elapsed_ms", elapsed),
			applogger.Error(err),
		)
		return
	}
	s.l.Debug("job done",
		applogger.String("job", job.Name),
		applogger.Duration("elapsed_ms", elapsed),
	)
}

// invoke runs the handler with panic containment so one bad task never
// takes down the process.
func (s *Scheduler) invoke(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Handler(ctx)
}
