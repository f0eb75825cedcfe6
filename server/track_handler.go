package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stillfm/core/affirm"
	"stillfm/logger"
	"stillfm/model"
	"stillfm/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// CreateManifestationRequest carries the personalization form fields.
type CreateManifestationRequest struct {
	Title           string `json:"title"`
	Name            string `json:"name"`
	Goal            string `json:"goal"`
	Mood            string `json:"mood"`
	Voice           string `json:"voice"`
	BackgroundMusic string `json:"backgroundMusic"`
}

// CreateManifestationHandler generates a personalized affirmation script,
// synthesizes it to audio, stores the audio and registers the track. The
// player only ever sees the finished track with its resolved audio URL.
func (h *APIHandler) CreateManifestationHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateManifestationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Missing 'title'")
		return
	}

	text := affirm.Generate(affirm.Inputs{
		Name: req.Name,
		Goal: req.Goal,
		Mood: req.Mood,
	})

	voice := req.Voice
	if voice == "" {
		voice = h.cfg.TTSVoice
	}

	result, err := h.ttsClient.Synthesize(r.Context(), text, voice)
	if err != nil {
		logger.Error("manifestation synthesis failed", logger.ErrorField(err))
		respondError(w, http.StatusBadGateway, "Speech synthesis failed")
		return
	}

	trackID := uuid.NewString()
	objectName := fmt.Sprintf("audio/%d/%s.mp3", userID, trackID)
	if _, err := storage.UploadObject(r.Context(), h.cfg.MinioBucket, objectName,
		bytes.NewReader(result.Audio), int64(len(result.Audio)), result.ContentType); err != nil {
		logger.Error("manifestation upload failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to store audio")
		return
	}

	track := &model.Track{
		ID:              trackID,
		UserID:          userID,
		Title:           req.Title,
		Text:            text,
		AudioURL:        "/static/" + objectName,
		Voice:           voice,
		BackgroundMusic: req.BackgroundMusic,
		Mood:            req.Mood,
		ContentType:     model.ContentTypeManifestation,
		DurationHint:    result.Duration,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := h.trackRepo.Create(track); err != nil {
		logger.Error("manifestation create failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to save track")
		return
	}

	logger.Info("manifestation created",
		logger.String("trackId", track.ID),
		logger.Int64("userId", userID))
	respondJSON(w, http.StatusCreated, track)
}

// ListManifestationsHandler lists the caller's manifestations.
func (h *APIHandler) ListManifestationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tracks, err := h.trackRepo.ListByUser(userID)
	if err != nil {
		logger.Error("list manifestations failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list tracks")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler fetches one track by id. This backs the full-screen
// now-playing view's deep-link fetch; a missing id is a 404 the client
// turns into a navigation fallback to the library.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	track, err := h.trackRepo.GetByID(id)
	if err != nil {
		logger.Error("track lookup failed", logger.String("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "Track not found")
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// DeleteManifestationHandler removes a manifestation owned by the caller.
func (h *APIHandler) DeleteManifestationHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.trackRepo.Delete(userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		logger.Error("track delete failed", logger.String("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListStoriesHandler lists the sleep-story catalog.
func (h *APIHandler) ListStoriesHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.trackRepo.ListStories()
	if err != nil {
		logger.Error("list stories failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list stories")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}
