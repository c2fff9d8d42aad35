package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/letterfit/internal/fit"
	"github.com/cwbudde/letterfit/internal/opt"
	"github.com/google/uuid"
)

// JobState represents the current state of a job.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the job has finished.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Job is one optimization run managed by the server.
type Job struct {
	ID           string          `json:"id"`
	State        JobState        `json:"state"`
	Config       opt.Config      `json:"config"`
	Generation   int             `json:"generation"`
	BestFitness  float64         `json:"bestFitness"`
	SolvedCount  int             `json:"solvedCount"`
	TotalCount   int             `json:"totalCount"`
	MaxError     float64         `json:"maxError"`
	MutationRate float64         `json:"mutationRate"`
	Stale        int             `json:"staleGenerations"`
	Best         *fit.Assignment `json:"best,omitempty"`
	Result       *opt.Result     `json:"-"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      *time.Time      `json:"endTime,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Elapsed returns the run time so far, or the total once finished.
func (j *Job) Elapsed() time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

// NotFoundError is returned when a job ID is unknown.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.ID)
}

// Is allows errors.Is(err, &NotFoundError{}) to match any job ID.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// NotRunningError is returned when cancelling a job that already finished.
type NotRunningError struct {
	ID    string
	State JobState
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("job %s is %s", e.ID, e.State)
}

// JobManager manages the lifecycle of jobs.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	wg          sync.WaitGroup
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job with the given configuration.
func (jm *JobManager) CreateJob(config opt.Config) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	cp := *job
	return &cp
}

// Start runs the job in the background. The job stops when ctx is cancelled
// or CancelJob is called.
func (jm *JobManager) Start(ctx context.Context, id string) {
	jobCtx, cancel := context.WithCancel(ctx)

	jm.mu.Lock()
	jm.cancels[id] = cancel
	jm.mu.Unlock()

	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		defer func() {
			jm.mu.Lock()
			delete(jm.cancels, id)
			jm.mu.Unlock()
			cancel()
		}()
		_ = runJob(jobCtx, jm, id)
	}()
}

// Wait blocks until every started job has returned.
func (jm *JobManager) Wait() {
	jm.wg.Wait()
}

// CancelJob requests cancellation of a pending or running job.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return &NotFoundError{ID: id}
	}
	if job.State.Terminal() {
		return &NotRunningError{ID: id, State: job.State}
	}
	if cancel, ok := jm.cancels[id]; ok {
		cancel()
		return nil
	}
	// Never started: finish it here so runJob skips it.
	now := time.Now()
	job.State = StateCancelled
	job.EndTime = &now
	return nil
}

// GetJob returns a snapshot of a job by ID.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function.
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return &NotFoundError{ID: id}
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state.
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			cp := *job
			runningJobs = append(runningJobs, &cp)
		}
	}
	return runningJobs
}
