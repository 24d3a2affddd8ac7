package domain

import "time"

// QueueStatus represents the lifecycle of a queued unit of work.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// Queue item origins.
const (
	QueueOriginJob     = "job"
	QueueOriginGapFill = "gap-fill"
	QueueOriginManual  = "manual"
)

// QueueItem is one unit of fetch-and-upsert work belonging to a job.
// An item is owned exclusively by the worker that claimed it; retries go
// back to pending with a raised attempt count so they drain behind
// currently-pending items of the same priority.
type QueueItem struct {
	ID            string      `gorm:"type:text;primaryKey" json:"id"`
	JobID         string      `gorm:"type:text;not null;index;index:idx_queue_job_source,unique" json:"job_id"`
	SourceID      int64       `gorm:"not null;index:idx_queue_job_source,unique" json:"source_id"`
	ContentType   ContentType `gorm:"type:text;not null;index:idx_queue_job_source,unique" json:"content_type"`
	Priority      int         `gorm:"index" json:"priority"`
	Origin        string      `gorm:"type:text" json:"origin"`
	Status        QueueStatus `gorm:"type:text;index;default:pending" json:"status"`
	Position      int         `gorm:"not null" json:"position"`
	Attempts      int         `gorm:"default:0" json:"attempts"`
	LastError     string      `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt *time.Time  `json:"next_attempt_at,omitempty"`
	GapID         string      `gorm:"type:text;index" json:"gap_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName returns the database table name for QueueItem.
func (QueueItem) TableName() string {
	return "import_queue"
}
