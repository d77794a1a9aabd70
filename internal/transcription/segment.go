package transcription

import (
	"strings"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/platform/openaiclient"
)

const (
	defaultGapThreshold = 1.2
	microSegmentSec     = 0.3
)

// Segmenter groups timestamped Whisper segments into alternating speaker
// turns. Whisper itself does not identify speakers, so turn boundaries are
// inferred from silence gaps and sentence endings; speakers then alternate,
// with the agent assumed to open the call.
type Segmenter struct {
	// GapThreshold is the silence, in seconds, treated as a speaker change.
	GapThreshold float64
}

// NewSegmenter returns a segmenter with the default gap threshold.
func NewSegmenter() Segmenter {
	return Segmenter{GapThreshold: defaultGapThreshold}
}

// Turns merges segments into speaker turns.
func (s Segmenter) Turns(segments []openaiclient.Segment) []domain.TranscriptTurn {
	gap := s.GapThreshold
	if gap <= 0 {
		gap = defaultGapThreshold
	}

	var turns []domain.TranscriptTurn
	speaker := domain.SpeakerAgent

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		if len(turns) == 0 {
			turns = append(turns, domain.TranscriptTurn{Speaker: speaker, Start: seg.Start, End: seg.End, Text: text})
			continue
		}

		last := &turns[len(turns)-1]
		silence := seg.Start - last.End

		// Micro segments glue onto the current turn regardless of gaps;
		// they are usually fillers split off by Whisper.
		short := seg.End-seg.Start < microSegmentSec
		boundary := !short && (silence >= gap || (endsSentence(last.Text) && silence >= gap/2))

		if boundary {
			speaker = otherSpeaker(speaker)
			turns = append(turns, domain.TranscriptTurn{Speaker: speaker, Start: seg.Start, End: seg.End, Text: text})
			continue
		}

		last.Text += " " + text
		if seg.End > last.End {
			last.End = seg.End
		}
	}

	return turns
}

func endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, `"')`)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

func otherSpeaker(s domain.Speaker) domain.Speaker {
	if s == domain.SpeakerAgent {
		return domain.SpeakerCustomer
	}
	return domain.SpeakerAgent
}
