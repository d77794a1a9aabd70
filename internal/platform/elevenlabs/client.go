// Package elevenlabs is a minimal client for the ElevenLabs text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agencyiq/agency-service/internal/platform/apiretry"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Config captures runtime settings for the TTS API.
type Config struct {
	APIKey  string
	VoiceID string
	BaseURL string
}

// Client wraps the text-to-speech endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      apiretry.Policy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy apiretry.Policy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient constructs a client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      apiretry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize renders text as mp3 audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: api key not configured")
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: "eleven_monolingual_v1"})
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.cfg.BaseURL, c.cfg.VoiceID)

	var audio []byte
	err = c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("xi-api-key", c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &apiretry.StatusError{
				Op:         "elevenlabs synthesize",
				StatusCode: resp.StatusCode,
				Body:       string(payload),
				RetryAfter: apiretry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		audio, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}
