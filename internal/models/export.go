package models

import "time"

// ExportFormat selects the rendered artifact type.
type ExportFormat string

const (
	ExportFormatPDF ExportFormat = "pdf"
	ExportFormatCSV ExportFormat = "csv"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatPDF || f == ExportFormatCSV
}

// ExportJobStatus tracks an asynchronous export through its lifecycle.
type ExportJobStatus string

const (
	ExportJobPending    ExportJobStatus = "pending"
	ExportJobProcessing ExportJobStatus = "processing"
	ExportJobCompleted  ExportJobStatus = "completed"
	ExportJobFailed     ExportJobStatus = "failed"
)

// ExportJob is a queued transcript export request.
type ExportJob struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"-"`
	Username    string          `json:"username"`
	Format      ExportFormat    `json:"format"`
	Query       string          `json:"query,omitempty"`
	Status      ExportJobStatus `json:"status"`
	Filename    string          `json:"filename,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
