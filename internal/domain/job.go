package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus represents the status of an import job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether s is a terminal status. Terminal jobs are
// immutable apart from error log appends explaining the terminal cause.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobEvent is a requested transition of the job state machine.
type JobEvent string

const (
	JobEventStart    JobEvent = "start"
	JobEventPause    JobEvent = "pause"
	JobEventResume   JobEvent = "resume"
	JobEventCancel   JobEvent = "cancel"
	JobEventComplete JobEvent = "complete"
	JobEventFail     JobEvent = "fail"
)

// jobTransitions is the single source of truth for the job state machine.
// Adding a state or guard is a one-line table change.
var jobTransitions = map[JobStatus]map[JobEvent]JobStatus{
	JobStatusPending: {
		JobEventStart:  JobStatusRunning,
		JobEventCancel: JobStatusCancelled,
	},
	JobStatusRunning: {
		JobEventPause:    JobStatusPaused,
		JobEventCancel:   JobStatusCancelled,
		JobEventComplete: JobStatusCompleted,
		JobEventFail:     JobStatusFailed,
	},
	JobStatusPaused: {
		JobEventResume: JobStatusRunning,
		JobEventCancel: JobStatusCancelled,
	},
}

// Apply returns the status reached by ev from s, or ErrInvalidTransition
// if the edge is not in the transition table.
func (s JobStatus) Apply(ev JobEvent) (JobStatus, error) {
	if next, ok := jobTransitions[s][ev]; ok {
		return next, nil
	}
	return s, ErrInvalidTransition
}

// JobConfig holds the target-set configuration of an import job.
// Stored as a JSON text column.
type JobConfig struct {
	ContentType     ContentType `json:"content_type"`
	OriginCountries []string    `json:"origin_countries,omitempty"`
	MinPopularity   float64     `json:"min_popularity,omitempty"`
	MaxItems        int         `json:"max_items,omitempty"`
	ReleasedAfter   string      `json:"released_after,omitempty"`
	ReleasedBefore  string      `json:"released_before,omitempty"`
	Genres          []int       `json:"genres,omitempty"`
	CheckDuplicates bool        `json:"check_duplicates"`
	UpdateExisting  bool        `json:"update_existing"`
	MirrorImages    bool        `json:"mirror_images"`

	// Gap-fill mode. When GapFill is set the target set is drawn from the
	// gap registry instead of the discover API and origin countries are
	// not required.
	GapFill  bool     `json:"gap_fill,omitempty"`
	GapIDs   []string `json:"gap_ids,omitempty"`
	GapLimit int      `json:"gap_limit,omitempty"`
}

// Validate rejects configurations before any state change.
func (c *JobConfig) Validate() error {
	switch c.ContentType {
	case ContentTypeMovie, ContentTypeTV, ContentTypeBoth:
	default:
		return &ValidationError{Field: "content_type", Reason: "must be movie, tv, or both"}
	}
	if !c.GapFill && len(c.OriginCountries) == 0 {
		return &ValidationError{Field: "origin_countries", Reason: "must not be empty"}
	}
	if c.MaxItems < 0 {
		return &ValidationError{Field: "max_items", Reason: "must not be negative"}
	}
	if c.GapLimit < 0 {
		return &ValidationError{Field: "gap_limit", Reason: "must not be negative"}
	}
	return nil
}

// Value implements driver.Valuer.
func (c JobConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *JobConfig) Scan(value interface{}) error {
	if value == nil {
		*c = JobConfig{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JobConfig")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, c)
}

// ImportJob represents one bounded unit of bulk ingestion work.
// Status moves only along the edges in jobTransitions; Processed never
// exceeds Total once Total is known.
type ImportJob struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Name        string      `gorm:"type:text;not null" json:"name"`
	Config      JobConfig   `gorm:"type:text" json:"config"`
	Status      JobStatus   `gorm:"type:text;index;default:pending" json:"status"`
	Priority    int         `gorm:"index" json:"priority"`
	Total       int         `gorm:"default:0" json:"total"`
	Processed   int         `gorm:"default:0" json:"processed"`
	Skipped     int         `gorm:"default:0" json:"skipped"`
	Failed      int         `gorm:"default:0" json:"failed"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	ErrorLog    StringArray `gorm:"type:text" json:"error_log"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for ImportJob.
func (ImportJob) TableName() string {
	return "import_jobs"
}

// Percentage derives the progress percentage; 0 while Total is unknown.
func (j *ImportJob) Percentage() float64 {
	if j.Total <= 0 {
		return 0
	}
	return float64(j.Processed) * 100 / float64(j.Total)
}
