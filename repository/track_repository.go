package repository

import (
	"errors"
	"fmt"

	"stillfm/model"

	"gorm.io/gorm"
)

// TrackRepository defines the interface for track data operations. It
// covers both generated manifestations and the sleep-story catalog; the
// two share the tracks table, split by content type.
type TrackRepository interface {
	Create(track *model.Track) error
	GetByID(id string) (*model.Track, error)
	GetByAudioURL(url string) (*model.Track, error)
	ListByUser(userID int64) ([]*model.Track, error)
	ListStories() ([]*model.Track, error)
	Delete(userID int64, id string) error
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewTrackRepository creates a GORM-backed track repository.
func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Create inserts a new track.
func (r *gormTrackRepository) Create(track *model.Track) error {
	if err := r.db.Create(track).Error; err != nil {
		return fmt.Errorf("failed to create track %q: %w", track.Title, err)
	}
	return nil
}

// GetByID retrieves a track by its ID. Returns (nil, nil) when not found.
func (r *gormTrackRepository) GetByID(id string) (*model.Track, error) {
	var track model.Track
	err := r.db.First(&track, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query track %s: %w", id, err)
	}
	return &track, nil
}

// GetByAudioURL retrieves a track by its audio location. Used by the story
// ingester to skip files it has already registered. Returns (nil, nil) when
// not found.
func (r *gormTrackRepository) GetByAudioURL(url string) (*model.Track, error) {
	var track model.Track
	err := r.db.First(&track, "audio_url = ?", url).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query track by audio url: %w", err)
	}
	return &track, nil
}

// ListByUser retrieves all manifestations of a user, newest first.
func (r *gormTrackRepository) ListByUser(userID int64) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.
		Where("user_id = ? AND content_type = ?", userID, model.ContentTypeManifestation).
		Order("created_at DESC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks for user %d: %w", userID, err)
	}
	return tracks, nil
}

// ListStories retrieves the sleep-story catalog, newest first.
func (r *gormTrackRepository) ListStories() ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.
		Where("content_type = ?", model.ContentTypeStory).
		Order("created_at DESC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return tracks, nil
}

// Delete removes a manifestation owned by userID.
func (r *gormTrackRepository) Delete(userID int64, id string) error {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Track{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete track %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
