package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stillfm/cache"
	"stillfm/config"
	"stillfm/core/auth"
	"stillfm/core/ingest"
	"stillfm/core/player"
	"stillfm/core/tts"
	"stillfm/db"
	"stillfm/logger"
	"stillfm/repository"
	"stillfm/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until a shutdown
// signal arrives.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	if err := db.Connect(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("failed to migrate database", logger.ErrorField(err))
	}

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
	}

	trackRepo := repository.NewTrackRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	players := player.NewManager(newSourceFactory(trackRepo))
	defer players.TeardownAll()

	playerCache := cache.NewPlayerCache()
	ttsClient := tts.NewClient(cfg.TTSEndpoint, cfg.TTSAPIKey)

	apiHandler := NewAPIHandler(trackRepo, userRepo, players, playerCache, ttsClient, cfg)

	// Story drop-folder ingester runs for the life of the server.
	ingestCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()
	go func() {
		watcher := ingest.NewWatcher(cfg.StoryWatchDir, cfg.MinioBucket, trackRepo)
		if err := watcher.Run(ingestCtx); err != nil {
			logger.Error("story watcher stopped", logger.ErrorField(err))
		}
	}()

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Auth
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", apiHandler.AuthMiddleware(apiHandler.LogoutHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)

	// Manifestations and stories
	router.HandleFunc("/api/manifestations", apiHandler.AuthMiddleware(apiHandler.CreateManifestationHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/manifestations", apiHandler.AuthMiddleware(apiHandler.ListManifestationsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/manifestations/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteManifestationHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.GetTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/stories", apiHandler.AuthMiddleware(apiHandler.ListStoriesHandler)).Methods(http.MethodGet)

	// Player control and observation
	router.HandleFunc("/api/player/state", apiHandler.AuthMiddleware(apiHandler.PlayerStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/play", apiHandler.AuthMiddleware(apiHandler.PlayerPlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/pause", apiHandler.AuthMiddleware(apiHandler.PlayerPauseHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/resume", apiHandler.AuthMiddleware(apiHandler.PlayerResumeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/stop", apiHandler.AuthMiddleware(apiHandler.PlayerStopHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", apiHandler.AuthMiddleware(apiHandler.PlayerSeekHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/loop", apiHandler.AuthMiddleware(apiHandler.PlayerLoopHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/rate", apiHandler.AuthMiddleware(apiHandler.PlayerRateHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/ws", apiHandler.PlayerSocketHandler)

	// Object-store backed audio and thumbnails
	router.PathPrefix("/static/").HandlerFunc(staticHandler(cfg))

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}

// newSourceFactory builds the production source factory. Durations come
// from the track record: the synthesis/ingest duration when known,
// otherwise an estimate from the script length at spoken pace.
func newSourceFactory(tracks repository.TrackRepository) player.SourceFactory {
	probe := func(ctx context.Context, url string) (float64, error) {
		track, err := tracks.GetByAudioURL(url)
		if err != nil {
			return 0, err
		}
		if track == nil {
			return 0, fmt.Errorf("no track for audio url %s", url)
		}
		if track.DurationHint > 0 {
			return track.DurationHint, nil
		}
		return estimateSpokenDuration(track.Text), nil
	}
	return func(ev player.Events) player.Source {
		return player.NewClockSource(ev, probe)
	}
}

// estimateSpokenDuration approximates how long a script takes to speak,
// at roughly 2.5 words per second with a floor for very short texts.
func estimateSpokenDuration(text string) float64 {
	words := len(strings.Fields(text))
	seconds := float64(words) / 2.5
	if seconds < 5 {
		seconds = 5
	}
	return seconds
}

// corsMiddleware adds permissive CORS headers for the web client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// staticHandler proxies audio and thumbnails out of the object store.
func staticHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objectPath := strings.TrimPrefix(r.URL.Path, "/static/")

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		object, err := storage.GetObject(ctx, cfg.MinioBucket, objectPath)
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		contentType := "application/octet-stream"
		switch {
		case strings.HasSuffix(objectPath, ".mp3"):
			contentType = "audio/mpeg"
		case strings.HasSuffix(objectPath, ".m4a"):
			contentType = "audio/mp4"
		case strings.HasSuffix(objectPath, ".wav"):
			contentType = "audio/wav"
		case strings.HasSuffix(objectPath, ".flac"):
			contentType = "audio/flac"
		case strings.HasSuffix(objectPath, ".jpg"), strings.HasSuffix(objectPath, ".jpeg"):
			contentType = "image/jpeg"
		case strings.HasSuffix(objectPath, ".png"):
			contentType = "image/png"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000")

		if _, err := io.Copy(w, object); err != nil {
			logger.Warn("error serving object", logger.String("object", objectPath), logger.ErrorField(err))
		}
	}
}
