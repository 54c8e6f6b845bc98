package models

type ProgressUpdate struct {
	JobID    string  `json:"job_id"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"` // e.g. "running", "done", "failed"
	// Optional fields for more detailed updates
	Done bool `json:"done"`
}
