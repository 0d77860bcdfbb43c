package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecordStatus represents the current stage of a fetch
type RecordStatus string

const (
	StatusResolving   RecordStatus = "resolving"
	StatusResolved    RecordStatus = "resolved"
	StatusDownloading RecordStatus = "downloading"
	StatusCompleted   RecordStatus = "completed"
	StatusFailed      RecordStatus = "failed"
	StatusCancelled   RecordStatus = "cancelled"
)

// Record is the history entry of one user-initiated fetch
type Record struct {
	ID            string        `json:"id" gorm:"primaryKey"`
	Input         string        `json:"input" gorm:"type:text"`
	ShareURL      string        `json:"share_url" gorm:"index"`
	VideoID       string        `json:"video_id,omitempty" gorm:"index"`
	DirectLink    string        `json:"direct_link,omitempty"`
	Size          int64         `json:"size"`
	FileName      string        `json:"file_name,omitempty"`
	FilePath      string        `json:"file_path,omitempty"`
	ContentType   string        `json:"content_type,omitempty"`
	Status        RecordStatus  `json:"status" gorm:"not null;index"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	Attempts      int           `json:"attempts" gorm:"default:0"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// NewRecord creates a record for share input
func NewRecord(input, shareURL string) *Record {
	now := time.Now()
	return &Record{
		ID:        uuid.New().String(),
		Input:     input,
		ShareURL:  shareURL,
		Status:    StatusResolving,
		CreatedAt: now,
		UpdatedAt: now,
		StartedAt: &now,
	}
}

// IncrementAttempt counts one resolution attempt
func (r *Record) IncrementAttempt() {
	r.Attempts++
	r.UpdatedAt = time.Now()
}

// MarkResolved stores the verified video
func (r *Record) MarkResolved(info *VideoInfo) {
	r.Status = StatusResolved
	r.VideoID = info.ID
	r.DirectLink = info.DirectLink
	r.Size = info.Size
	r.UpdatedAt = time.Now()
}

// MarkDownloading marks the transfer as started
func (r *Record) MarkDownloading(fileName string) {
	r.Status = StatusDownloading
	r.FileName = fileName
	r.UpdatedAt = time.Now()
}

// MarkCompleted marks the record as completed
func (r *Record) MarkCompleted(result *DownloadResult) {
	r.Status = StatusCompleted
	r.FilePath = result.Location
	r.ContentType = result.ContentType
	if result.BytesWritten > 0 {
		r.Size = result.BytesWritten
	}
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed marks the record as failed
func (r *Record) MarkFailed(err error) {
	r.Status = StatusFailed
	r.FailureReason = ReasonOf(err)
	r.ErrorMessage = err.Error()
	r.UpdatedAt = time.Now()
}

// MarkCancelled marks the record as cancelled
func (r *Record) MarkCancelled() {
	r.Status = StatusCancelled
	r.FailureReason = ReasonCancelled
	r.UpdatedAt = time.Now()
}

// IsTerminal checks if the record is in a terminal state
func (r *Record) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed || r.Status == StatusCancelled
}

// ValidateStatus checks if a status filter is valid
func ValidateStatus(status RecordStatus) bool {
	switch status {
	case StatusResolving, StatusResolved, StatusDownloading, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
