package service

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"echocore/constant"
	"echocore/dto"
	"echocore/entities"
)

// JobNotifier receives job state transitions. Implemented by the
// optional RabbitMQ event publisher.
type JobNotifier interface {
	JobTransition(ctx context.Context, msg dto.JobEventMessage) error
}

// JobRegistry owns every offline job and its cancellation token. State
// lives in process memory only; a restart loses all jobs.
type JobRegistry struct {
	mu       sync.RWMutex
	jobs     map[string]*entities.OfflineJob
	cancels  map[string]context.CancelFunc
	notifier JobNotifier
}

// NewJobRegistry creates an empty registry. notifier may be nil.
func NewJobRegistry(notifier JobNotifier) *JobRegistry {
	return &JobRegistry{
		jobs:     make(map[string]*entities.OfflineJob),
		cancels:  make(map[string]context.CancelFunc),
		notifier: notifier,
	}
}

// Create registers the job and returns the context its background
// pipeline must run under; canceling the job cancels this context.
func (r *JobRegistry) Create(parent context.Context, job *entities.OfflineJob) context.Context {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.jobs[job.ID] = job
	r.cancels[job.ID] = cancel
	snapshot := *job
	r.mu.Unlock()

	r.notify(parent, snapshot)
	return ctx
}

// Get returns a snapshot of the job.
func (r *JobRegistry) Get(jobID string) (entities.OfflineJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return entities.OfflineJob{}, ErrJobNotFound
	}
	return *job, nil
}

// Status is the cheap checkpoint read used by the pipeline.
func (r *JobRegistry) Status(jobID string) (constant.JobStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return "", false
	}
	return job.Status, true
}

// SetStatus moves the job to status unless it is already terminal.
func (r *JobRegistry) SetStatus(ctx context.Context, jobID string, status constant.JobStatus, text string) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	job.Status = status
	job.StatusText = text
	job.UpdatedAt = time.Now()
	snapshot := *job
	r.mu.Unlock()

	r.notify(ctx, snapshot)
}

// Fail records err verbatim and marks the job failed.
func (r *JobRegistry) Fail(ctx context.Context, jobID string, err error) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	job.Status = constant.JobStatusFailed
	job.StatusText = "recognition failed"
	job.Error = err.Error()
	job.UpdatedAt = time.Now()
	snapshot := *job
	r.mu.Unlock()

	zerolog.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("offline job failed")
	r.notify(ctx, snapshot)
}

// Complete attaches the result atomically and marks the job completed.
func (r *JobRegistry) Complete(ctx context.Context, jobID string, result *entities.RecognitionResult) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	job.Status = constant.JobStatusCompleted
	job.StatusText = "recognition completed"
	job.RecognitionPercent = 100
	job.Result = result
	job.UpdatedAt = time.Now()
	snapshot := *job
	r.mu.Unlock()

	r.notify(ctx, snapshot)
}

// Cancel is cooperative: it flips the state, fires the job's context
// cancel and removes the source audio file, but cannot preempt an
// engine call already in flight.
func (r *JobRegistry) Cancel(ctx context.Context, jobID string) (entities.OfflineJob, error) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok {
		r.mu.Unlock()
		return entities.OfflineJob{}, ErrJobNotFound
	}
	if job.Status.Terminal() {
		status := job.Status
		r.mu.Unlock()
		return entities.OfflineJob{}, &InvalidTransitionError{Status: status}
	}
	job.Status = constant.JobStatusCanceled
	job.StatusText = "canceled"
	job.UpdatedAt = time.Now()
	cancel := r.cancels[jobID]
	delete(r.cancels, jobID)
	snapshot := *job
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if snapshot.FilePath != "" {
		if err := os.Remove(snapshot.FilePath); err != nil && !os.IsNotExist(err) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("failed to remove source audio file")
		}
	}

	r.notify(ctx, snapshot)
	return snapshot, nil
}

func (r *JobRegistry) notify(ctx context.Context, job entities.OfflineJob) {
	if r.notifier == nil {
		return
	}
	msg := dto.JobEventMessage{
		JobID:     job.ID,
		MeetingID: job.MeetingID,
		Status:    job.Status.String(),
		Error:     job.Error,
		At:        job.UpdatedAt,
	}
	if err := r.notifier.JobTransition(ctx, msg); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", job.ID).Msg("failed to publish job event")
	}
}
