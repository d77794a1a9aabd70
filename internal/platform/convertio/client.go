// Package convertio converts audio containers via the Convertio API. The
// transcription pipeline uses it as a fallback when Whisper rejects a format.
package convertio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agencyiq/agency-service/internal/platform/apiretry"
)

const defaultBaseURL = "https://api.convertio.co"

// ErrConversionFailed reports a job that ended in error state.
var ErrConversionFailed = errors.New("convertio: conversion failed")

// ErrConversionTimeout reports a job that never finished within the polling
// budget.
var ErrConversionTimeout = errors.New("convertio: conversion timed out")

// Config captures runtime settings for the conversion API.
type Config struct {
	APIKey        string
	BaseURL       string
	PollDelay     time.Duration
	MaxPollRounds int
}

// Client drives the start/poll/download conversion flow.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      apiretry.Policy
	sleeper    func(time.Duration)
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

// WithSleeper overrides how poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollDelay <= 0 {
		cfg.PollDelay = 2 * time.Second
	}
	if cfg.MaxPollRounds <= 0 {
		cfg.MaxPollRounds = 60
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

type startRequest struct {
	APIKey       string `json:"apikey"`
	Input        string `json:"input"`
	File         string `json:"file"`
	Filename     string `json:"filename"`
	OutputFormat string `json:"outputformat"`
}

type apiEnvelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type startData struct {
	ID string `json:"id"`
}

type statusData struct {
	Step   string `json:"step"`
	Output struct {
		URL string `json:"url"`
	} `json:"output"`
}

// ToMP3 converts the named audio file to mp3: start job, poll until finished,
// download the result.
func (c *Client) ToMP3(ctx context.Context, filename string, data []byte) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("convertio: api key not configured")
	}

	jobID, err := c.start(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	outputURL, err := c.poll(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return c.download(ctx, outputURL)
}

func (c *Client) start(ctx context.Context, filename string, data []byte) (string, error) {
	body, err := json.Marshal(startRequest{
		APIKey:       c.cfg.APIKey,
		Input:        "base64",
		File:         base64.StdEncoding.EncodeToString(data),
		Filename:     filename,
		OutputFormat: "mp3",
	})
	if err != nil {
		return "", err
	}

	var jobID string
	err = c.retry.Do(ctx, func() error {
		envelope, err := c.postJSON(ctx, c.cfg.BaseURL+"/convert", body, "convertio start")
		if err != nil {
			return err
		}
		var data startData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return err
		}
		jobID = data.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	if jobID == "" {
		return "", fmt.Errorf("convertio: empty job id")
	}
	return jobID, nil
}

func (c *Client) poll(ctx context.Context, jobID string) (string, error) {
	endpoint := fmt.Sprintf("%s/convert/%s/status", c.cfg.BaseURL, jobID)

	for round := 0; round < c.cfg.MaxPollRounds; round++ {
		var status statusData
		err := c.retry.Do(ctx, func() error {
			envelope, err := c.getJSON(ctx, endpoint, "convertio status")
			if err != nil {
				return err
			}
			return json.Unmarshal(envelope.Data, &status)
		})
		if err != nil {
			return "", err
		}

		switch status.Step {
		case "finish":
			if status.Output.URL == "" {
				return "", ErrConversionFailed
			}
			return status.Output.URL, nil
		case "error":
			return "", ErrConversionFailed
		}

		if err := c.sleep(ctx, c.cfg.PollDelay); err != nil {
			return "", err
		}
	}
	return "", ErrConversionTimeout
}

func (c *Client) download(ctx context.Context, outputURL string) ([]byte, error) {
	var audio []byte
	err := c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &apiretry.StatusError{Op: "convertio download", StatusCode: resp.StatusCode, Body: string(payload)}
		}

		audio, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body []byte, op string) (*apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, op)
}

func (c *Client) getJSON(ctx context.Context, endpoint, op string) (*apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.doJSON(req, op)
}

func (c *Client) doJSON(req *http.Request, op string) (*apiEnvelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiretry.StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(payload),
			RetryAfter: apiretry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if envelope.Status != "ok" {
		return nil, fmt.Errorf("%s: %s", op, envelope.Error)
	}
	return &envelope, nil
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
