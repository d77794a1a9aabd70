// Package ringcentral retrieves call recording media from the RingCentral
// REST API.
package ringcentral

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agencyiq/agency-service/internal/platform/apiretry"
)

// Config captures runtime settings for the RingCentral API.
type Config struct {
	BaseURL     string
	AccessToken string
}

// Client wraps the recording content endpoint.
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
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retry:      apiretry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecording downloads recording media by recording ID and returns the
// audio bytes plus the reported content type.
func (c *Client) FetchRecording(ctx context.Context, recordingID string) ([]byte, string, error) {
	if c.cfg.AccessToken == "" {
		return nil, "", fmt.Errorf("ringcentral: access token not configured")
	}
	endpoint := fmt.Sprintf("%s/restapi/v1.0/account/~/recording/%s/content", c.cfg.BaseURL, recordingID)

	var audio []byte
	var contentType string
	err := c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &apiretry.StatusError{
				Op:         "ringcentral fetch recording",
				StatusCode: resp.StatusCode,
				Body:       string(payload),
				RetryAfter: apiretry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		contentType = resp.Header.Get("Content-Type")
		audio, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return audio, contentType, nil
}
