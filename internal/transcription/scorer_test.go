package transcription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	systems   []string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, system, _ string) (string, error) {
	i := f.calls
	f.calls++
	f.systems = append(f.systems, system)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func (f *fakeCompleter) ScoringModel() string { return "gpt-4o" }

const goodRubric = `{"rapport": 80, "discovery": 70, "product_knowledge": 90,
"objection_handling": 60, "closing": 50,
"strengths": ["warm opener"], "coaching_notes": ["ask for the sale sooner"]}`

func TestScoreHappyPath(t *testing.T) {
	completer := &fakeCompleter{responses: []string{goodRubric}}
	scorer := NewScorer(completer)

	score, err := scorer.Score(context.Background(), "AGENT: hello")
	require.NoError(t, err)

	// 80*15 + 70*25 + 90*15 + 60*20 + 50*25 = 6750 -> 67
	assert.Equal(t, 67, score.Overall)
	assert.Equal(t, 80, score.Rapport)
	assert.Equal(t, 50, score.Closing)
	assert.Equal(t, []string{"warm opener"}, score.Strengths)
	assert.Equal(t, "gpt-4o", score.Model)
	assert.Equal(t, 1, completer.calls)
}

func TestScoreFencedJSON(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"```json\n" + goodRubric + "\n```"}}
	scorer := NewScorer(completer)

	score, err := scorer.Score(context.Background(), "AGENT: hello")
	require.NoError(t, err)
	assert.Equal(t, 67, score.Overall)
}

func TestScoreRepairRetry(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"I'd rate this call highly.", goodRubric}}
	scorer := NewScorer(completer)

	score, err := scorer.Score(context.Background(), "AGENT: hello")
	require.NoError(t, err)
	assert.Equal(t, 67, score.Overall)
	assert.Equal(t, 2, completer.calls)
	assert.Contains(t, completer.systems[1], "ONLY the JSON object")
}

func TestScoreRepairFails(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"not json", "still not json"}}
	scorer := NewScorer(completer)

	_, err := scorer.Score(context.Background(), "AGENT: hello")
	assert.ErrorContains(t, err, "scoring response unusable")
	assert.Equal(t, 2, completer.calls)
}

func TestScoreOutOfRangeCategory(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"rapport": 180, "discovery": 70, "product_knowledge": 90, "objection_handling": 60, "closing": 50}`,
		goodRubric,
	}}
	scorer := NewScorer(completer)

	score, err := scorer.Score(context.Background(), "AGENT: hello")
	require.NoError(t, err)
	assert.Equal(t, 67, score.Overall)
}

func TestScoreCompleterError(t *testing.T) {
	completer := &fakeCompleter{errs: []error{errors.New("rate limited")}}
	scorer := NewScorer(completer)

	_, err := scorer.Score(context.Background(), "AGENT: hello")
	assert.ErrorContains(t, err, "rate limited")
}
