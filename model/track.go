package model

import "time"

// Content types distinguishing generated manifestations from the
// pre-recorded sleep-story catalog.
const (
	ContentTypeManifestation = "manifestation"
	ContentTypeStory         = "story"
)

// Track represents a playable item: a generated spoken-affirmation
// manifestation or a pre-recorded sleep story. AudioURL is immutable once
// the track is handed to a player; switching tracks replaces the whole
// value, never mutates AudioURL in place.
type Track struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	UserID          int64     `json:"userId" gorm:"index"`
	Title           string    `json:"title" gorm:"size:255;not null"`
	Text            string    `json:"text" gorm:"type:text"` // full affirmation/story script, drives line sync
	AudioURL        string    `json:"audioUrl" gorm:"size:767;not null"`
	Voice           string    `json:"voice,omitempty" gorm:"size:64"`
	BackgroundMusic string    `json:"backgroundMusic,omitempty" gorm:"size:64"`
	Mood            string    `json:"mood,omitempty" gorm:"size:64"`
	ContentType     string    `json:"contentType" gorm:"size:32;index"`
	Description     string    `json:"description,omitempty" gorm:"size:1024"`
	DurationHint    float64   `json:"durationHint,omitempty"` // duration in seconds, known at synthesis/ingest time
	Category        string    `json:"category,omitempty" gorm:"size:64"`
	Narrator        string    `json:"narrator,omitempty" gorm:"size:128"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty" gorm:"size:767"`
	IsPremium       bool      `json:"isPremium"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName sets the GORM table name.
func (Track) TableName() string {
	return "tracks"
}
