package domain

import "time"

// GapType classifies how a missing record was detected.
type GapType string

const (
	// GapTypeSequential comes from scanning the provider's id space.
	GapTypeSequential GapType = "sequential"
	// GapTypePopularity comes from discover sweeps the store is missing.
	GapTypePopularity GapType = "popularity"
	// GapTypeTemporal comes from the provider's changes feed.
	GapTypeTemporal GapType = "temporal"
	// GapTypeMetadata marks stored records with incomplete fields.
	GapTypeMetadata GapType = "metadata"
)

// Valid reports whether t is a known gap type.
func (t GapType) Valid() bool {
	switch t {
	case GapTypeSequential, GapTypePopularity, GapTypeTemporal, GapTypeMetadata:
		return true
	}
	return false
}

// GapEntry is a known-missing-or-incomplete catalog record tracked for
// prioritized backfilling. (source_id, content_type) is unique; duplicate
// registration is rejected with ErrConflict, never overwritten. The fill
// loop never deletes entries; removal is an administrative action.
type GapEntry struct {
	ID               string      `gorm:"type:text;primaryKey" json:"id"`
	SourceID         int64       `gorm:"not null;index:idx_gaps_source,unique" json:"source_id"`
	ContentType      ContentType `gorm:"type:text;not null;index:idx_gaps_source,unique" json:"content_type"`
	GapType          GapType     `gorm:"type:text;not null;index" json:"gap_type"`
	PriorityScore    float64     `gorm:"index" json:"priority_score"`
	Reason           string      `gorm:"type:text" json:"reason,omitempty"`
	IsResolved       bool        `gorm:"index;default:false" json:"is_resolved"`
	FillAttempts     int         `gorm:"default:0" json:"fill_attempts"`
	LastAttemptError string      `gorm:"type:text" json:"last_attempt_error,omitempty"`
	ResolvedAt       *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TableName returns the database table name for GapEntry.
func (GapEntry) TableName() string {
	return "gap_entries"
}
