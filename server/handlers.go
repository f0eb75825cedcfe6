package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"stillfm/config"
	"stillfm/core/auth"
	"stillfm/core/player"
	"stillfm/core/tts"
	"stillfm/repository"
)

// SnapshotCache persists the last playback snapshot per user between
// sessions. The in-process coordinator is always authoritative; the cache
// only backs the idle-state restore.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, userID int64, snap player.Snapshot) error
	LoadSnapshot(ctx context.Context, userID int64) (*player.Snapshot, error)
	ClearSnapshot(ctx context.Context, userID int64) error
}

// APIHandler handles all API requests.
type APIHandler struct {
	trackRepo   repository.TrackRepository
	userRepo    repository.UserRepository
	players     *player.Manager
	playerCache SnapshotCache
	ttsClient   *tts.Client
	cfg         *config.Config
}

// NewAPIHandler creates the API handler with its collaborators.
func NewAPIHandler(
	trackRepo repository.TrackRepository,
	userRepo repository.UserRepository,
	players *player.Manager,
	playerCache SnapshotCache,
	ttsClient *tts.Client,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		trackRepo:   trackRepo,
		userRepo:    userRepo,
		players:     players,
		playerCache: playerCache,
		ttsClient:   ttsClient,
		cfg:         cfg,
	}
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// AuthMiddleware checks for a valid JWT token and stores the user identity
// in the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value("username").(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
