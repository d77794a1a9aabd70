package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agencyiq/agency-service/internal/domain"
)

// Completer runs a JSON-constrained chat completion.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
	ScoringModel() string
}

const scoringSystemPrompt = `You are an insurance sales coach grading a recorded sales call.
Score each category from 0 to 100. Respond with a JSON object:
{"rapport": int, "discovery": int, "product_knowledge": int, "objection_handling": int,
"closing": int, "strengths": [string], "coaching_notes": [string]}`

const repairPrompt = `Your previous response was not valid JSON matching the required shape. ` +
	`Respond again with ONLY the JSON object.`

// Category weights for the overall score; closing and discovery dominate.
var scoreWeights = map[string]int{
	"rapport":            15,
	"discovery":          25,
	"product_knowledge":  15,
	"objection_handling": 20,
	"closing":            25,
}

type rubricResponse struct {
	Rapport           int      `json:"rapport"`
	Discovery         int      `json:"discovery"`
	ProductKnowledge  int      `json:"product_knowledge"`
	ObjectionHandling int      `json:"objection_handling"`
	Closing           int      `json:"closing"`
	Strengths         []string `json:"strengths"`
	CoachingNotes     []string `json:"coaching_notes"`
}

// Scorer grades a segmented transcript against the sales rubric.
type Scorer struct {
	completer Completer
}

// NewScorer constructs a scorer.
func NewScorer(completer Completer) *Scorer {
	return &Scorer{completer: completer}
}

// Score grades the transcript. A malformed model response is retried once
// with a repair prompt before failing.
func (s *Scorer) Score(ctx context.Context, transcript string) (*domain.CallScore, error) {
	content, err := s.completer.CompleteJSON(ctx, scoringSystemPrompt, transcript)
	if err != nil {
		return nil, err
	}

	parsed, parseErr := parseRubric(content)
	if parseErr != nil {
		content, err = s.completer.CompleteJSON(ctx, scoringSystemPrompt+"\n\n"+repairPrompt, transcript)
		if err != nil {
			return nil, err
		}
		parsed, parseErr = parseRubric(content)
		if parseErr != nil {
			return nil, fmt.Errorf("scoring response unusable: %w", parseErr)
		}
	}

	return &domain.CallScore{
		Overall:           overallScore(parsed),
		Rapport:           parsed.Rapport,
		Discovery:         parsed.Discovery,
		ProductKnowledge:  parsed.ProductKnowledge,
		ObjectionHandling: parsed.ObjectionHandling,
		Closing:           parsed.Closing,
		Strengths:         parsed.Strengths,
		CoachingNotes:     parsed.CoachingNotes,
		Model:             s.completer.ScoringModel(),
	}, nil
}

func parseRubric(content string) (*rubricResponse, error) {
	content = strings.TrimSpace(content)
	// Models occasionally fence the JSON despite the response format.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed rubricResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, err
	}

	for name, value := range map[string]int{
		"rapport":            parsed.Rapport,
		"discovery":          parsed.Discovery,
		"product_knowledge":  parsed.ProductKnowledge,
		"objection_handling": parsed.ObjectionHandling,
		"closing":            parsed.Closing,
	} {
		if value < 0 || value > 100 {
			return nil, fmt.Errorf("category %s out of range: %d", name, value)
		}
	}
	return &parsed, nil
}

func overallScore(r *rubricResponse) int {
	total := r.Rapport*scoreWeights["rapport"] +
		r.Discovery*scoreWeights["discovery"] +
		r.ProductKnowledge*scoreWeights["product_knowledge"] +
		r.ObjectionHandling*scoreWeights["objection_handling"] +
		r.Closing*scoreWeights["closing"]
	return total / 100
}
