package application

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andratr/bmtool1/domain"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of a background job.
type JobState string

const (
	JobRunning JobState = "RUNNING"
	JobDone    JobState = "DONE"
	JobFailed  JobState = "FAILED"
)

// Job is a snapshot of a background job.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	State      JobState   `json:"state"`
	Message    string     `json:"message,omitempty"`
	Processed  int        `json:"processed"`
	Total      int        `json:"total"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// JobRegistry is an in-memory, mutex-guarded store of job statuses.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewJobRegistry creates an empty JobRegistry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*Job), now: time.Now}
}

// Start registers a new RUNNING job of jobType and returns its snapshot.
func (r *JobRegistry) Start(jobType string) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	j := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		State:     JobRunning,
		StartedAt: r.now(),
	}
	r.jobs[j.ID] = j
	return *j
}

// Update records progress for a running job. Unknown ids are ignored.
func (r *JobRegistry) Update(id string, processed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.jobs[id]; ok && j.State == JobRunning {
		j.Processed = processed
		j.Total = total
	}
}

// Done marks a job as finished successfully.
func (r *JobRegistry) Done(id, message string) {
	r.finish(id, JobDone, message)
}

// Fail marks a job as failed with err's message.
func (r *JobRegistry) Fail(id string, err error) {
	msg := "failed"
	if err != nil {
		msg = err.Error()
	}
	r.finish(id, JobFailed, msg)
}

func (r *JobRegistry) finish(id string, state JobState, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return
	}
	now := r.now()
	j.State = state
	j.Message = message
	j.FinishedAt = &now
	jobsByState.WithLabelValues(j.Type, string(state)).Inc()
}

// Get returns the job with id, or an error wrapping domain.ErrNotFound.
func (r *JobRegistry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
	}
	return *j, nil
}

// List returns every job, oldest first.
func (r *JobRegistry) List() []Job {
	r.mu.RLock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].StartedAt.Equal(out[b].StartedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].StartedAt.Before(out[b].StartedAt)
	})
	return out
}
