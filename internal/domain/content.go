package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ContentType identifies the kind of catalog record.
// ContentTypeBoth is only valid in job configurations, never on stored rows.
type ContentType string

const (
	ContentTypeMovie ContentType = "movie"
	ContentTypeTV    ContentType = "tv"
	ContentTypeBoth  ContentType = "both"
)

// Valid reports whether t is a concrete, storable content type.
func (t ContentType) Valid() bool {
	return t == ContentTypeMovie || t == ContentTypeTV
}

// Expand resolves "both" into the concrete content types it covers.
func (t ContentType) Expand() []ContentType {
	if t == ContentTypeBoth {
		return []ContentType{ContentTypeMovie, ContentTypeTV}
	}
	return []ContentType{t}
}

// StringArray stores a string slice as JSON in a text column.
type StringArray []string

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Content is a catalog record in the destination store, keyed by the
// external provider's identifier. Upserts are insert-or-replace on
// (content_type, source_id); the same external id never produces two rows.
type Content struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	SourceID        int64       `gorm:"not null;index:idx_content_source,unique" json:"source_id"`
	ContentType     ContentType `gorm:"type:text;not null;index:idx_content_source,unique" json:"content_type"`
	Title           string      `gorm:"type:text;not null" json:"title"`
	OriginalTitle   string      `gorm:"type:text" json:"original_title,omitempty"`
	Overview        string      `gorm:"type:text" json:"overview,omitempty"`
	ReleaseDate     string      `gorm:"type:text" json:"release_date,omitempty"`
	Popularity      float64     `gorm:"index" json:"popularity"`
	VoteAverage     float64     `json:"vote_average"`
	VoteCount       int64       `json:"vote_count"`
	PosterPath      string      `gorm:"type:text" json:"poster_path,omitempty"`
	BackdropPath    string      `gorm:"type:text" json:"backdrop_path,omitempty"`
	PosterKey       string      `gorm:"type:text" json:"poster_key,omitempty"`
	BackdropKey     string      `gorm:"type:text" json:"backdrop_key,omitempty"`
	Genres          StringArray `gorm:"type:text" json:"genres"`
	OriginCountries StringArray `gorm:"type:text" json:"origin_countries"`
	Runtime         int         `json:"runtime,omitempty"`
	SeasonCount     int         `json:"season_count,omitempty"`
	EpisodeCount    int         `json:"episode_count,omitempty"`
	Status          string      `gorm:"type:text" json:"status,omitempty"`
	Adult           bool        `json:"adult"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Content.
func (Content) TableName() string {
	return "content"
}
