package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidgrab/types"
)

// jobIDLength is the number of UUID characters kept for a job id
const jobIDLength = 8

// Notifier receives a snapshot every time a job changes
type Notifier interface {
	JobUpdated(job types.DownloadJob)
}

// ProgressUpdate is the message a worker sends to the registry for one
// engine progress event. Percent is already numeric.
type ProgressUpdate struct {
	Percent  float64
	Speed    string
	ETA      string
	Filename string
	// Finished marks the end of a transfer; FilePath is then the provisional artifact
	Finished bool
	FilePath string
}

// Registry is the single source of truth for job state. Workers mutate a job
// only through its methods; readers get copies.
type Registry struct {
	mu       sync.RWMutex
	jobs     map[string]*types.DownloadJob
	notifier Notifier
	now      func() time.Time
	newID    func() string
}

// NewRegistry creates an empty registry. notifier may be nil.
func NewRegistry(notifier Notifier) *Registry {
	return &Registry{
		jobs:     make(map[string]*types.DownloadJob),
		notifier: notifier,
		now:      time.Now,
		newID: func() string {
			return uuid.New().String()[:jobIDLength]
		},
	}
}

// Create inserts a pending job for sourceURL and returns its id
func (r *Registry) Create(sourceURL string) string {
	r.mu.Lock()

	id := r.newID()
	for {
		if _, taken := r.jobs[id]; !taken {
			break
		}
		id = r.newID()
	}

	job := &types.DownloadJob{
		ID:        id,
		SourceURL: sourceURL,
		Status:    types.JobStatusPending,
		CreatedAt: r.now(),
	}
	r.jobs[id] = job
	snapshot := *job
	r.mu.Unlock()

	r.notify(snapshot)
	return id
}

// Get returns a copy of the job's current state
func (r *Registry) Get(id string) (types.DownloadJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[id]
	if !exists {
		return types.DownloadJob{}, false
	}
	return copyJob(job), true
}

// List returns copies of all jobs, newest first
func (r *Registry) List() []types.DownloadJob {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]types.DownloadJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, copyJob(job))
	}
	sortJobsNewestFirst(jobs)
	return jobs
}

// Len returns the number of tracked jobs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Discard removes a job that was never handed to a worker
func (r *Registry) Discard(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, exists := r.jobs[id]; exists && job.Status == types.JobStatusPending {
		delete(r.jobs, id)
	}
}

// SetDownloading moves a pending job into the downloading state
func (r *Registry) SetDownloading(id string) bool {
	return r.mutate(id, func(job *types.DownloadJob) bool {
		if job.Status != types.JobStatusPending {
			return false
		}
		now := r.now()
		job.Status = types.JobStatusDownloading
		job.StartedAt = &now
		return true
	})
}

// ApplyProgress records one progress update for a downloading job.
// Percent never moves backwards.
func (r *Registry) ApplyProgress(id string, update ProgressUpdate) bool {
	return r.mutate(id, func(job *types.DownloadJob) bool {
		if job.Status != types.JobStatusDownloading {
			return false
		}

		if update.Finished {
			job.Progress = 100
			if update.FilePath != "" {
				job.FilePath = update.FilePath
			}
			return true
		}

		if update.Percent > job.Progress {
			job.Progress = clampPercent(update.Percent)
		}
		if update.Speed != "" {
			job.Speed = update.Speed
		}
		if update.ETA != "" {
			job.ETA = update.ETA
		}
		if update.Filename != "" {
			job.Filename = update.Filename
		}
		return true
	})
}

// SetCompleted marks a downloading job as done with its final artifact
func (r *Registry) SetCompleted(id, filePath, filename string) bool {
	return r.mutate(id, func(job *types.DownloadJob) bool {
		if job.Status != types.JobStatusDownloading {
			return false
		}
		now := r.now()
		job.Status = types.JobStatusCompleted
		job.Progress = 100
		job.FilePath = filePath
		job.Filename = filename
		job.CompletedAt = &now
		return true
	})
}

// SetFailed marks a non-terminal job as failed. Progress is left as is.
func (r *Registry) SetFailed(id, errorMsg string) bool {
	return r.mutate(id, func(job *types.DownloadJob) bool {
		if job.Status.IsTerminal() {
			return false
		}
		now := r.now()
		job.Status = types.JobStatusFailed
		job.Error = errorMsg
		job.CompletedAt = &now
		return true
	})
}

// mutate applies fn under the write lock and publishes the result when fn
// reports a change. Terminal jobs are never touched.
func (r *Registry) mutate(id string, fn func(job *types.DownloadJob) bool) bool {
	r.mu.Lock()
	job, exists := r.jobs[id]
	if !exists || job.Status.IsTerminal() {
		r.mu.Unlock()
		return false
	}
	changed := fn(job)
	snapshot := copyJob(job)
	r.mu.Unlock()

	if changed {
		r.notify(snapshot)
	}
	return changed
}

func (r *Registry) notify(job types.DownloadJob) {
	if r.notifier != nil {
		r.notifier.JobUpdated(job)
	}
}

func copyJob(job *types.DownloadJob) types.DownloadJob {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func sortJobsNewestFirst(jobs []types.DownloadJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
