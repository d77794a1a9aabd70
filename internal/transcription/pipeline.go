package transcription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/platform/openaiclient"
)

// Transcriber produces a timestamped transcript for one audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (*openaiclient.Transcription, error)
}

// Converter rewrites audio into an mp3 container.
type Converter interface {
	ToMP3(ctx context.Context, filename string, data []byte) ([]byte, error)
}

// Result is a fully segmented call transcript.
type Result struct {
	Turns    []domain.TranscriptTurn
	Duration float64
	Text     string
}

// Pipeline turns raw call audio into speaker-segmented transcripts. Large
// files are split into chunks transcribed in bounded parallel batches;
// containers Whisper cannot decode are converted to mp3 first.
type Pipeline struct {
	transcriber Transcriber
	converter   Converter
	segmenter   Segmenter
	chunkSize   int64
	parallelism int
	logger      *zap.Logger
}

// PipelineConfig bundles pipeline construction parameters.
type PipelineConfig struct {
	Transcriber Transcriber
	Converter   Converter
	ChunkSize   int64
	Parallelism int
	Logger      *zap.Logger
}

// NewPipeline constructs a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		transcriber: cfg.Transcriber,
		converter:   cfg.Converter,
		segmenter:   NewSegmenter(),
		chunkSize:   cfg.ChunkSize,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Run transcribes and segments the audio file.
func (p *Pipeline) Run(ctx context.Context, filename string, audio []byte) (*Result, error) {
	segments, duration, err := p.transcribeAll(ctx, filename, audio)
	if errors.Is(err, openaiclient.ErrUnsupportedFormat) && p.converter != nil {
		p.logger.Info("converting unsupported audio container",
			zap.String("filename", filename),
			zap.Int("size_bytes", len(audio)))

		converted, convErr := p.converter.ToMP3(ctx, filename, audio)
		if convErr != nil {
			return nil, fmt.Errorf("convert audio: %w", convErr)
		}
		segments, duration, err = p.transcribeAll(ctx, mp3Name(filename), converted)
	}
	if err != nil {
		return nil, err
	}

	turns := p.segmenter.Turns(segments)
	var text strings.Builder
	for i, turn := range turns {
		if i > 0 {
			text.WriteString("\n")
		}
		fmt.Fprintf(&text, "%s: %s", turn.Speaker, turn.Text)
	}

	return &Result{Turns: turns, Duration: duration, Text: text.String()}, nil
}

// transcribeAll handles chunk planning, bounded parallel transcription, and
// timestamp reassembly.
func (p *Pipeline) transcribeAll(ctx context.Context, filename string, audio []byte) ([]openaiclient.Segment, float64, error) {
	chunks := PlanChunks(int64(len(audio)), p.chunkSize)
	if len(chunks) == 0 {
		return nil, 0, errors.New("empty audio file")
	}

	if len(chunks) == 1 {
		tr, err := p.transcriber.Transcribe(ctx, filename, audio)
		if err != nil {
			return nil, 0, err
		}
		return tr.Segments, tr.Duration, nil
	}

	p.logger.Info("transcribing in chunks",
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
		zap.Int("parallelism", p.parallelism))

	results := make([]*openaiclient.Transcription, len(chunks))
	errs := make([]error, len(chunks))

	for start := 0; start < len(chunks); start += p.parallelism {
		end := start + p.parallelism
		if end > len(chunks) {
			end = len(chunks)
		}

		var wg sync.WaitGroup
		for _, chunk := range chunks[start:end] {
			wg.Add(1)
			go func(chunk Chunk) {
				defer wg.Done()
				name := chunkName(filename, chunk.Index)
				results[chunk.Index], errs[chunk.Index] = p.transcriber.Transcribe(ctx, name, chunk.Slice(audio))
			}(chunk)
		}
		wg.Wait()

		for _, err := range errs[start:end] {
			if err != nil {
				return nil, 0, err
			}
		}
	}

	// Chunk timestamps are relative to chunk start; shift by the summed
	// durations of everything before.
	var segments []openaiclient.Segment
	var offset float64
	for _, tr := range results {
		for _, seg := range tr.Segments {
			segments = append(segments, openaiclient.Segment{
				Start: seg.Start + offset,
				End:   seg.End + offset,
				Text:  seg.Text,
			})
		}
		offset += tr.Duration
	}

	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	return segments, offset, nil
}

func chunkName(filename string, index int) string {
	if dot := strings.LastIndex(filename, "."); dot > 0 {
		return fmt.Sprintf("%s.part%d%s", filename[:dot], index, filename[dot:])
	}
	return fmt.Sprintf("%s.part%d", filename, index)
}

func mp3Name(filename string) string {
	if dot := strings.LastIndex(filename, "."); dot > 0 {
		return filename[:dot] + ".mp3"
	}
	return filename + ".mp3"
}
