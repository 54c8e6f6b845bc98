package models

import "time"

// Job statuses. A job moves queued -> running -> done | failed; there is no
// cancelled state and a failed job is terminal.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is the persisted record for one extraction request. It is the only
// channel between the worker that processes a document and the API that
// answers status queries.
type Job struct {
	ID        string    `json:"job_id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Error     *string   `json:"error"`
	Thumbnail *string   `json:"thumbnail,omitempty"` // first page preview, data URI
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// QueueEntry is the unit of work handed to the dispatcher. It is consumed
// exactly once by the worker.
type QueueEntry struct {
	DocumentPath string
	JobID        string
	Filename     string
}
