package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"stillfm/logger"
)

// Client talks to the remote speech-synthesis API that renders
// manifestation scripts into spoken audio.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a synthesis client for the given API endpoint.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Result is a finished synthesis: encoded audio plus the duration the
// service reports for it.
type Result struct {
	Audio       []byte
	ContentType string
	Duration    float64 // seconds
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Synthesize renders text with the given voice. The call is upstream of
// track creation; the player only ever sees the already-stored audio URL.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*Result, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis API returned %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	duration, err := strconv.ParseFloat(resp.Header.Get("X-Duration-Seconds"), 64)
	if err != nil {
		// Not all deployments report duration; the player resolves it later.
		duration = 0
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	logger.Info("synthesized audio",
		logger.String("voice", voice),
		logger.Int("bytes", len(audio)),
		logger.Float64("duration", duration))

	return &Result{Audio: audio, ContentType: contentType, Duration: duration}, nil
}
