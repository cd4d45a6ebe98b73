package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

var (
	// ErrQueueFull is returned when the submission queue has no room left.
	ErrQueueFull = errors.New("job queue is full")

	// ErrAlreadyRunning is returned when a job with the same name is
	// queued or running; long-running maintenance jobs must not overlap
	// themselves.
	ErrAlreadyRunning = errors.New("job is already running")

	// ErrStopped is returned when the executor is not accepting work.
	ErrStopped = errors.New("job executor is stopped")
)

// Status is the lifecycle state of a submitted job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is the public record of a submitted unit of work.
type Job struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

type task struct {
	id   int64
	name string
	fn   func(ctx context.Context) error
}

// Service is a bounded single-worker executor for background maintenance
// work. Submissions beyond the queue capacity are rejected rather than
// spawning unbounded goroutines.
type Service struct {
	queue chan task

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	jobsMu  sync.RWMutex
	nextID  int64
	jobs    map[int64]*Job
	active  map[string]bool
	history []int64
}

const historyLimit = 50

// NewService creates an executor with the given queue capacity. capacity <= 0
// defaults to 8.
func NewService(capacity int) *Service {
	if capacity <= 0 {
		capacity = 8
	}
	return &Service{
		queue:  make(chan task, capacity),
		jobs:   make(map[int64]*Job),
		active: make(map[string]bool),
	}
}

// Start launches the worker goroutine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.workerLoop()

	log.Println("[jobs] executor started")
	return nil
}

// Stop drains no further work and waits for the in-flight job to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[jobs] executor stopped")
}

// Submit queues fn under the given name. A job with the same name that is
// still queued or running rejects the submission with ErrAlreadyRunning; a
// full queue rejects it with ErrQueueFull.
func (s *Service) Submit(name string, fn func(ctx context.Context) error) (*Job, error) {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return nil, ErrStopped
	}

	s.jobsMu.Lock()
	if s.active[name] {
		s.jobsMu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.nextID++
	job := &Job{
		ID:          s.nextID,
		Name:        name,
		Status:      StatusQueued,
		SubmittedAt: time.Now().UTC(),
	}
	s.jobs[job.ID] = job
	s.active[name] = true
	s.recordLocked(job.ID)
	s.jobsMu.Unlock()

	select {
	case s.queue <- task{id: job.ID, name: name, fn: fn}:
	default:
		s.jobsMu.Lock()
		delete(s.jobs, job.ID)
		delete(s.active, name)
		s.dropLocked(job.ID)
		s.jobsMu.Unlock()
		return nil, ErrQueueFull
	}

	log.Printf("[jobs] queued %q (id %d)", name, job.ID)
	return s.snapshot(job.ID), nil
}

// Get returns a copy of the job record, or nil if unknown.
func (s *Service) Get(id int64) *Job {
	return s.snapshot(id)
}

// List returns recent jobs, newest first.
func (s *Service) List() []*Job {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	out := make([]*Job, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		if job, ok := s.jobs[s.history[i]]; ok {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out
}

func (s *Service) workerLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-s.queue:
			s.runTask(t)
		}
	}
}

func (s *Service) runTask(t task) {
	started := time.Now().UTC()
	s.update(t.id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &started
	})
	log.Printf("[jobs] running %q (id %d)", t.name, t.id)

	var err error
	recovered := panics.Try(func() {
		err = t.fn(s.ctx)
	})
	if recovered != nil {
		err = recovered.AsError()
	}

	finished := time.Now().UTC()
	s.update(t.id, func(j *Job) {
		j.FinishedAt = &finished
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
		} else {
			j.Status = StatusDone
		}
	})

	s.jobsMu.Lock()
	delete(s.active, t.name)
	s.jobsMu.Unlock()

	if err != nil {
		log.Printf("[jobs] %q (id %d) failed after %s: %v", t.name, t.id, finished.Sub(started).Round(time.Millisecond), err)
	} else {
		log.Printf("[jobs] %q (id %d) finished in %s", t.name, t.id, finished.Sub(started).Round(time.Millisecond))
	}
}

func (s *Service) update(id int64, fn func(*Job)) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

func (s *Service) snapshot(id int64) *Job {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

// recordLocked appends id to the history ring; caller holds jobsMu.
func (s *Service) recordLocked(id int64) {
	s.history = append(s.history, id)
	if len(s.history) > historyLimit {
		evicted := s.history[0]
		s.history = s.history[1:]
		if job, ok := s.jobs[evicted]; ok && job.Status != StatusQueued && job.Status != StatusRunning {
			delete(s.jobs, evicted)
		}
	}
}

// dropLocked removes id from history after a rejected submission.
func (s *Service) dropLocked(id int64) {
	for i, h := range s.history {
		if h == id {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return
		}
	}
}
