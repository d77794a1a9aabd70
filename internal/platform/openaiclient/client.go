// Package openaiclient wraps the OpenAI API for Whisper transcription and
// rubric scoring completions.
package openaiclient

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agencyiq/agency-service/internal/config"
	"github.com/agencyiq/agency-service/internal/platform/apiretry"
)

// ErrUnsupportedFormat reports audio Whisper refused to decode; the pipeline
// reacts by converting the file and retrying.
var ErrUnsupportedFormat = errors.New("openai: unsupported audio format")

// Segment is one timestamped transcript span.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Transcription is the verbose Whisper result for one audio file.
type Transcription struct {
	Text     string
	Duration float64
	Segments []Segment
}

// Client wraps the OpenAI SDK with bounded retries.
type Client struct {
	api             *openai.Client
	transcribeModel string
	scoringModel    string
	retry           apiretry.Policy
}

// New constructs a client from config.
func New(cfg config.OpenAIConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.RequestTimeoutSec > 0 {
		clientCfg.HTTPClient.Timeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
	}

	retry := apiretry.DefaultPolicy()
	if cfg.MaxRetryAttempts > 0 {
		retry.MaxAttempts = cfg.MaxRetryAttempts
	}
	if cfg.RetryBaseDelayMS > 0 {
		retry.BaseDelay = time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond
	}
	if cfg.RetryMaxDelayMS > 0 {
		retry.MaxDelay = time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond
	}

	return &Client{
		api:             openai.NewClientWithConfig(clientCfg),
		transcribeModel: cfg.TranscribeModel,
		scoringModel:    cfg.ScoringModel,
		retry:           retry,
	}
}

// Transcribe runs Whisper over one audio file with segment timestamps.
func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (*Transcription, error) {
	var resp openai.AudioResponse
	err := c.retry.Do(ctx, func() error {
		var err error
		resp, err = c.api.CreateTranscription(ctx, openai.AudioRequest{
			Model:    c.transcribeModel,
			FilePath: filename,
			Reader:   bytes.NewReader(audio),
			Format:   openai.AudioResponseFormatVerboseJSON,
		})
		return mapError(err)
	})
	if err != nil {
		return nil, err
	}

	result := &Transcription{Text: resp.Text, Duration: resp.Duration}
	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return result, nil
}

// CompleteJSON runs a chat completion constrained to a JSON object response
// and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	var content string
	err := c.retry.Do(ctx, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.scoringModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return mapError(err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("openai: empty completion")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// ScoringModel reports the configured completion model.
func (c *Client) ScoringModel() string {
	return c.scoringModel
}

// mapError converts SDK errors into apiretry classification, surfacing
// format rejections as ErrUnsupportedFormat.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 400 && strings.Contains(strings.ToLower(apiErr.Message), "format") {
			return ErrUnsupportedFormat
		}
		return &apiretry.StatusError{Op: "openai", StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &apiretry.StatusError{Op: "openai", StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}

	return err
}
