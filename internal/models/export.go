package models

import "time"

// ExportJobStatus tracks a queued plan export through its lifecycle.
type ExportJobStatus string

const (
	ExportJobPending   ExportJobStatus = "PENDING"
	ExportJobRunning   ExportJobStatus = "RUNNING"
	ExportJobCompleted ExportJobStatus = "COMPLETED"
	ExportJobFailed    ExportJobStatus = "FAILED"
)

// ExportJob is one queued export of a stored plan to a file artifact.
type ExportJob struct {
	ID            string          `json:"id"`
	PlanID        string          `json:"plan_id"`
	Format        string          `json:"format"`
	Status        ExportJobStatus `json:"status"`
	FileName      string          `json:"file_name,omitempty"`
	DownloadToken string          `json:"download_token,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Error         string          `json:"error,omitempty"`
	RequestedAt   time.Time       `json:"requested_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
