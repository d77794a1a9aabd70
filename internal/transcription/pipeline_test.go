package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyiq/agency-service/internal/platform/openaiclient"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	calls    []string
	perChunk func(filename string, audio []byte) (*openaiclient.Transcription, error)
}

func (f *fakeTranscriber) Transcribe(_ context.Context, filename string, audio []byte) (*openaiclient.Transcription, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filename)
	f.mu.Unlock()
	return f.perChunk(filename, audio)
}

type fakeConverter struct {
	called bool
	out    []byte
	err    error
}

func (f *fakeConverter) ToMP3(_ context.Context, _ string, _ []byte) ([]byte, error) {
	f.called = true
	return f.out, f.err
}

func TestRunSingleChunk(t *testing.T) {
	tr := &fakeTranscriber{perChunk: func(_ string, _ []byte) (*openaiclient.Transcription, error) {
		return &openaiclient.Transcription{
			Duration: 10,
			Segments: []openaiclient.Segment{
				{Start: 0, End: 2, Text: "Thanks for calling."},
				{Start: 4, End: 6, Text: "I'd like a quote"},
			},
		}, nil
	}}

	p := NewPipeline(PipelineConfig{Transcriber: tr, ChunkSize: 1024})
	result, err := p.Run(context.Background(), "call.mp3", make([]byte, 100))
	require.NoError(t, err)

	require.Len(t, result.Turns, 2)
	assert.Equal(t, 10.0, result.Duration)
	assert.Contains(t, result.Text, "AGENT: Thanks for calling.")
	assert.Contains(t, result.Text, "CUSTOMER: I'd like a quote")
	assert.Len(t, tr.calls, 1)
}

func TestRunChunkedShiftsOffsets(t *testing.T) {
	// Each 100-byte chunk reports a 30s transcript with one segment.
	tr := &fakeTranscriber{perChunk: func(filename string, audio []byte) (*openaiclient.Transcription, error) {
		return &openaiclient.Transcription{
			Duration: 30,
			Segments: []openaiclient.Segment{{Start: 1, End: 5, Text: fmt.Sprintf("chunk %s.", filename)}},
		}, nil
	}}

	p := NewPipeline(PipelineConfig{Transcriber: tr, ChunkSize: 100, Parallelism: 2})
	result, err := p.Run(context.Background(), "call.mp3", make([]byte, 250))
	require.NoError(t, err)

	assert.Len(t, tr.calls, 3)
	assert.Equal(t, 90.0, result.Duration)

	// Turn boundaries land at 1s, 31s, 61s after offset shifting.
	require.Len(t, result.Turns, 3)
	assert.Equal(t, 1.0, result.Turns[0].Start)
	assert.Equal(t, 31.0, result.Turns[1].Start)
	assert.Equal(t, 61.0, result.Turns[2].Start)
}

func TestRunConversionFallback(t *testing.T) {
	attempt := 0
	tr := &fakeTranscriber{perChunk: func(filename string, _ []byte) (*openaiclient.Transcription, error) {
		attempt++
		if strings.HasSuffix(filename, ".wma") {
			return nil, openaiclient.ErrUnsupportedFormat
		}
		return &openaiclient.Transcription{
			Duration: 5,
			Segments: []openaiclient.Segment{{Start: 0, End: 2, Text: "Hello"}},
		}, nil
	}}
	conv := &fakeConverter{out: []byte("mp3-bytes")}

	p := NewPipeline(PipelineConfig{Transcriber: tr, Converter: conv, ChunkSize: 1024})
	result, err := p.Run(context.Background(), "call.wma", []byte("wma-bytes"))
	require.NoError(t, err)

	assert.True(t, conv.called)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, "call.mp3", tr.calls[1])
	require.Len(t, result.Turns, 1)
	assert.Equal(t, "Hello", result.Turns[0].Text)
}

func TestRunConversionFailure(t *testing.T) {
	tr := &fakeTranscriber{perChunk: func(string, []byte) (*openaiclient.Transcription, error) {
		return nil, openaiclient.ErrUnsupportedFormat
	}}
	conv := &fakeConverter{err: errors.New("quota exhausted")}

	p := NewPipeline(PipelineConfig{Transcriber: tr, Converter: conv, ChunkSize: 1024})
	_, err := p.Run(context.Background(), "call.wma", []byte("wma-bytes"))
	assert.ErrorContains(t, err, "convert audio")
}

func TestRunNoConverterPropagatesFormatError(t *testing.T) {
	tr := &fakeTranscriber{perChunk: func(string, []byte) (*openaiclient.Transcription, error) {
		return nil, openaiclient.ErrUnsupportedFormat
	}}

	p := NewPipeline(PipelineConfig{Transcriber: tr, ChunkSize: 1024})
	_, err := p.Run(context.Background(), "call.wma", []byte("wma-bytes"))
	assert.ErrorIs(t, err, openaiclient.ErrUnsupportedFormat)
}

func TestRunChunkErrorAborts(t *testing.T) {
	tr := &fakeTranscriber{perChunk: func(filename string, _ []byte) (*openaiclient.Transcription, error) {
		if strings.Contains(filename, "part1") {
			return nil, errors.New("transcription failed")
		}
		return &openaiclient.Transcription{Duration: 10}, nil
	}}

	p := NewPipeline(PipelineConfig{Transcriber: tr, ChunkSize: 100, Parallelism: 2})
	_, err := p.Run(context.Background(), "call.mp3", make([]byte, 250))
	assert.ErrorContains(t, err, "transcription failed")
}

func TestRunEmptyAudio(t *testing.T) {
	p := NewPipeline(PipelineConfig{Transcriber: &fakeTranscriber{}, ChunkSize: 100})
	_, err := p.Run(context.Background(), "call.mp3", nil)
	assert.Error(t, err)
}
