package types

import "time"

// JobStatus represents the current status of a download job
type JobStatus string

// Job statuses. A job moves forward only: pending, downloading, then
// completed or failed.
const (
	JobStatusPending     JobStatus = "pending"
	JobStatusDownloading JobStatus = "downloading"
	// JobStatusProcessing is reserved for a post-processing phase; the
	// dispatcher never sets it.
	JobStatusProcessing  JobStatus = "processing"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DownloadJob represents one requested fetch. Values handed out by the
// registry are snapshots; mutating them has no effect on the job itself.
type DownloadJob struct {
	ID          string     `json:"jobId"`
	SourceURL   string     `json:"url"`
	Status      JobStatus  `json:"status"`
	Progress    float64    `json:"progress"` // 0-100
	Speed       string     `json:"speed,omitempty"`
	ETA         string     `json:"eta,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	FilePath    string     `json:"-"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
