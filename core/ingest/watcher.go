package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stillfm/logger"
	"stillfm/model"
	"stillfm/repository"
	"stillfm/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

// Watcher ingests pre-recorded sleep stories from a local drop folder.
// Files already present are picked up on start; new files are picked up
// through fsnotify. Each file is uploaded to object storage and registered
// as a story track.
type Watcher struct {
	dir    string
	bucket string
	tracks repository.TrackRepository
}

// NewWatcher creates a story ingester over dir.
func NewWatcher(dir, bucket string, tracks repository.TrackRepository) *Watcher {
	return &Watcher{dir: dir, bucket: bucket, tracks: tracks}
}

// Run scans the folder once, then watches it until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create story dir %s: %w", w.dir, err)
	}

	if err := w.scan(ctx); err != nil {
		logger.Warn("initial story scan failed", logger.ErrorField(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logger.Info("watching story folder", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			// Writers may still be flushing right after create.
			time.Sleep(500 * time.Millisecond)
			if err := w.ingestFile(ctx, event.Name); err != nil {
				logger.Warn("story ingest failed",
					logger.String("file", event.Name),
					logger.ErrorField(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("story watcher error", logger.ErrorField(err))
		}
	}
}

// scan ingests files already sitting in the drop folder.
func (w *Watcher) scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := w.ingestFile(ctx, filepath.Join(w.dir, entry.Name())); err != nil {
			logger.Warn("story ingest failed",
				logger.String("file", entry.Name()),
				logger.ErrorField(err))
		}
	}
	return nil
}

// ingestFile uploads one audio file and registers it as a story track.
// Already-ingested files are skipped by object name.
func (w *Watcher) ingestFile(ctx context.Context, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := audioExtensions[ext]
	if !ok {
		return nil
	}

	audioURL := "/static/stories/" + filepath.Base(path)
	if existing, err := w.tracks.GetByAudioURL(audioURL); err != nil {
		return err
	} else if existing != nil {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	objectName := "stories/" + filepath.Base(path)
	if _, err := storage.UploadObject(ctx, w.bucket, objectName, f, info.Size(), contentType); err != nil {
		return err
	}

	title := strings.TrimSuffix(filepath.Base(path), ext)
	title = strings.ReplaceAll(title, "_", " ")

	track := &model.Track{
		ID:          uuid.NewString(),
		Title:       title,
		AudioURL:    audioURL,
		ContentType: model.ContentTypeStory,
		Category:    "sleep",
	}
	if err := w.tracks.Create(track); err != nil {
		return err
	}

	logger.Info("story ingested",
		logger.String("trackId", track.ID),
		logger.String("title", title))
	return nil
}
