package workers

import (
	"context"
	"sync"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// drainTimeout bounds how long Stop waits for in-flight iterations. A
// scoring pass over a large branch network can take a minute or more, so
// the bound is generous.
const drainTimeout = 2 * time.Minute

// JobStatus is a point-in-time view of one job's run history, surfaced
// through the health endpoint.
type JobStatus struct {
	Enabled     bool          `json:"enabled"`
	Busy        bool          `json:"busy"`
	Runs        uint64        `json:"runs"`
	Errors      uint64        `json:"errors"`
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	AvgDuration time.Duration `json:"avg_duration_ns"`
}

// entry pairs a job with its run accounting. Stats are written by the
// job's own goroutine and read by Snapshot, hence the per-entry lock.
type entry struct {
	worker Worker

	mu       sync.Mutex
	busy     bool
	runs     uint64
	errs     uint64
	lastRun  time.Time
	lastErr  error
	totalDur time.Duration
}

func (e *entry) begin() {
	e.mu.Lock()
	e.busy = true
	e.mu.Unlock()
}

func (e *entry) finish(d time.Duration, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	e.runs++
	e.totalDur += d
	e.lastRun = time.Now()
	e.lastErr = err
	if err != nil {
		e.errs++
	}
}

func (e *entry) status() JobStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := JobStatus{
		Enabled: e.worker.Enabled(),
		Busy:    e.busy,
		Runs:    e.runs,
		Errors:  e.errs,
		LastRun: e.lastRun,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	if e.runs > 0 {
		st.AvgDuration = e.totalDur / time.Duration(e.runs)
	}
	return st
}

// Scheduler drives the registered pipeline jobs, each on its own ticker.
// Jobs run an immediate first iteration on Start so a fresh deploy does
// not wait a full interval before producing predictions.
type Scheduler struct {
	mu      sync.RWMutex
	entries []*entry
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *logger.Logger
}

func NewScheduler() *Scheduler {
	return &Scheduler{log: logger.Get()}
}

// Register adds a job. Registration is only honored before Start.
func (s *Scheduler) Register(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warnf("Ignoring registration of %q, scheduler already running", w.Name())
		return
	}
	s.entries = append(s.entries, &entry{worker: w})
	s.log.Infof("Registered worker %q, interval %s, enabled=%v", w.Name(), w.Interval(), w.Enabled())
}

// Start launches one goroutine per enabled job. Disabled jobs stay
// registered so Snapshot still reports them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler already started")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	entries := s.entries
	s.mu.Unlock()

	launched := 0
	for _, e := range entries {
		if !e.worker.Enabled() {
			s.log.Infof("Worker %q disabled, not scheduling", e.worker.Name())
			continue
		}
		s.wg.Add(1)
		go s.tend(ctx, e)
		launched++
	}

	s.log.Infof("Scheduler started, %d of %d workers running", launched, len(entries))
	return nil
}

// Stop cancels all jobs and waits up to drainTimeout for in-flight
// iterations to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Info("Draining workers...")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		s.log.Info("All workers drained")
	case <-time.After(drainTimeout):
		err = errors.Wrapf(errors.ErrInternal, "worker drain exceeded %s", drainTimeout)
		s.log.Warnf("Worker drain exceeded %s, abandoning wait", drainTimeout)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return err
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Workers lists the registered jobs in registration order.
func (s *Scheduler) Workers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Worker, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.worker
	}
	return out
}

// Snapshot returns run accounting for every registered job, keyed by name.
func (s *Scheduler) Snapshot() map[string]JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]JobStatus, len(s.entries))
	for _, e := range s.entries {
		out[e.worker.Name()] = e.status()
	}
	return out
}

// tend owns one job's lifecycle: immediate first run, then ticker-paced
// iterations until the context is cancelled.
func (s *Scheduler) tend(ctx context.Context, e *entry) {
	defer s.wg.Done()

	name := e.worker.Name()
	s.log.Infof("Worker %q running", name)

	tick := time.NewTicker(e.worker.Interval())
	defer tick.Stop()

	s.iterate(ctx, e)
	for {
		select {
		case <-ctx.Done():
			s.log.Infof("Worker %q stopped", name)
			return
		case <-tick.C:
			s.iterate(ctx, e)
		}
	}
}

// iterate runs a single iteration, converting panics into recorded errors
// so one bad pass cannot take down the scheduler goroutine.
func (s *Scheduler) iterate(ctx context.Context, e *entry) {
	name := e.worker.Name()
	start := time.Now()

	e.begin()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrInternal, "worker %s panicked: %v", name, r)
			s.log.Errorf("Worker %q panicked: %v", name, r)
		}
		elapsed := time.Since(start)
		e.finish(elapsed, err)
		metrics.RecordWorkerExecution(name, elapsed, err)
	}()

	err = e.worker.Run(ctx)
	if err != nil {
		s.log.Errorf("Worker %q iteration failed after %s: %v", name, time.Since(start), err)
	} else {
		s.log.Debugf("Worker %q iteration done in %s", name, time.Since(start))
	}
}
