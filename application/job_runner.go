package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andratr/bmtool1/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ErrRunnerClosed is returned by Submit after Close.
var ErrRunnerClosed = errors.New("job runner closed")

// JobFunc is the body of a background job. It reports progress through
// progress and returns a short completion message.
type JobFunc func(ctx context.Context, progress ProgressFunc) (string, error)

// JobRunner runs jobs on a bounded pool of workers. At most one job may be
// active per key.
type JobRunner struct {
	registry *JobRegistry
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]string // key -> job id
	closed bool
}

// NewJobRunner creates a runner with the given number of workers. A
// non-positive count means one worker.
func NewJobRunner(registry *JobRegistry, workers int) *JobRunner {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRunner{
		registry: registry,
		sem:      semaphore.NewWeighted(int64(workers)),
		ctx:      ctx,
		cancel:   cancel,
		active:   make(map[string]string),
	}
}

// Submit registers a job of jobType under key and runs fn in the
// background. It returns the job id, or an error wrapping
// domain.ErrJobActive when a job for key is still running.
func (r *JobRunner) Submit(key, jobType string, fn JobFunc) (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRunnerClosed
	}
	if id, ok := r.active[key]; ok {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s is already being processed by job %s", domain.ErrJobActive, key, id)
	}
	job := r.registry.Start(jobType)
	r.active[key] = job.ID
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(key, job, fn)
	return job.ID, nil
}

func (r *JobRunner) run(key string, job Job, fn JobFunc) {
	defer r.wg.Done()

	logger := log.With().Str("job", job.ID).Str("type", job.Type).Str("key", key).Logger()

	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		r.release(key)
		r.registry.Fail(job.ID, err)
		logger.Warn().Err(err).Msg("job cancelled before start")
		return
	}
	defer r.sem.Release(1)

	jobsRunning.Inc()
	defer jobsRunning.Dec()

	logger.Info().Msg("job started")
	msg, err := fn(r.ctx, func(processed, total int) {
		r.registry.Update(job.ID, processed, total)
	})
	r.release(key)
	if err != nil {
		r.registry.Fail(job.ID, err)
		logger.Error().Err(err).Msg("job failed")
		return
	}
	r.registry.Done(job.ID, msg)
	logger.Info().Str("result", msg).Msg("job finished")
}

// release frees key for new submissions. It runs before the final state is
// recorded so a caller that sees the job finished can resubmit at once.
func (r *JobRunner) release(key string) {
	r.mu.Lock()
	delete(r.active, key)
	r.mu.Unlock()
}

// Close stops accepting jobs and waits for running ones. If ctx ends first,
// running jobs are cancelled and ctx's error is returned.
func (r *JobRunner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
