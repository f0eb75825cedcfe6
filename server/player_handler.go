package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"stillfm/core/player"
	"stillfm/logger"
)

// PlayRequest selects the track to bind to the player.
type PlayRequest struct {
	TrackID string `json:"trackId"`
}

// SeekRequest carries a target position in seconds.
type SeekRequest struct {
	Position float64 `json:"position"`
}

// LoopRequest toggles looping.
type LoopRequest struct {
	Loop bool `json:"loop"`
}

// RateRequest sets the playback speed multiplier.
type RateRequest struct {
	Rate float64 `json:"rate"`
}

// PlayerStateHandler returns the current playback snapshot, including the
// derived line index. Both the mini bar and the full-screen view read this
// same state; neither holds authoritative state of its own. When nothing is
// bound in-process, the last cached snapshot is served instead so a
// reconnecting client restores its view; the restored state is never
// playing, since no clock is running for it.
func (h *APIHandler) PlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	snap := h.players.Player(userID).Snapshot()
	if snap.Track == nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if cached, err := h.playerCache.LoadSnapshot(ctx, userID); err == nil && cached != nil {
			cached.IsPlaying = false
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}
	respondJSON(w, http.StatusOK, snap)
}

// PlayerPlayHandler binds a track and starts playback. Requesting the track
// that is already bound resumes it instead of restarting, so re-opening the
// now-playing view never resets the position. Load and playback failures
// come back inside the snapshot, with the selection retained, so the client
// can show a notice and offer retry.
func (h *APIHandler) PlayerPlayHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TrackID == "" {
		respondError(w, http.StatusBadRequest, "Missing 'trackId'")
		return
	}

	track, err := h.trackRepo.GetByID(req.TrackID)
	if err != nil {
		logger.Error("play: track lookup failed", logger.String("trackId", req.TrackID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to load track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "Track not found")
		return
	}

	coord := h.players.Player(userID)
	if err := coord.Play(track); err != nil {
		// The failure already lives in the snapshot as a state flag; the
		// selection stays so the client can offer retry.
		logger.Warn("play failed",
			logger.String("trackId", req.TrackID),
			logger.ErrorField(err))
	}
	h.respondSnapshot(w, userID, coord)
}

// PlayerPauseHandler pauses playback. No-op when nothing is playing.
func (h *APIHandler) PlayerPauseHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	coord := h.players.Player(userID)
	coord.Pause()
	h.respondSnapshot(w, userID, coord)
}

// PlayerResumeHandler resumes the bound track, preserving position.
func (h *APIHandler) PlayerResumeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	coord := h.players.Player(userID)
	if err := coord.Resume(); err != nil {
		logger.Warn("resume failed", logger.ErrorField(err))
	}
	h.respondSnapshot(w, userID, coord)
}

// PlayerStopHandler stops playback and clears the binding.
func (h *APIHandler) PlayerStopHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	coord := h.players.Player(userID)
	coord.Stop()
	h.respondSnapshot(w, userID, coord)
}

// PlayerSeekHandler seeks within the bound track.
func (h *APIHandler) PlayerSeekHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coord := h.players.Player(userID)
	coord.Seek(req.Position)
	h.respondSnapshot(w, userID, coord)
}

// PlayerLoopHandler toggles looping.
func (h *APIHandler) PlayerLoopHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req LoopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coord := h.players.Player(userID)
	coord.SetLoop(req.Loop)
	h.respondSnapshot(w, userID, coord)
}

// PlayerRateHandler sets the playback speed.
func (h *APIHandler) PlayerRateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Rate <= 0 {
		respondError(w, http.StatusBadRequest, "Rate must be positive")
		return
	}

	coord := h.players.Player(userID)
	coord.SetRate(req.Rate)
	h.respondSnapshot(w, userID, coord)
}

// respondSnapshot writes the current snapshot and persists it to the cache
// so a reconnecting client can restore its mini bar.
func (h *APIHandler) respondSnapshot(w http.ResponseWriter, userID int64, coord *player.Coordinator) {
	snap := coord.Snapshot()

	go func(snap player.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.playerCache.SaveSnapshot(ctx, userID, snap); err != nil {
			logger.Debug("snapshot cache write failed", logger.ErrorField(err))
		}
	}(snap)

	respondJSON(w, http.StatusOK, snap)
}
