package dto

import (
	"time"

	"github.com/agencyiq/agency-service/internal/domain"
)

// SubmitRingCentralRequest payload.
type SubmitRingCentralRequest struct {
	StaffID     string `json:"staff_id"`
	RecordingID string `json:"recording_id" validate:"required"`
}

// CallResponse describes an ingested call and its pipeline state.
type CallResponse struct {
	ID          string                  `json:"id"`
	StaffID     string                  `json:"staff_id"`
	Source      string                  `json:"source"`
	Status      domain.CallStatus       `json:"status"`
	DurationSec float64                 `json:"duration_sec,omitempty"`
	FailedStage *domain.CallStage       `json:"failed_stage,omitempty"`
	FailReason  *string                 `json:"fail_reason,omitempty"`
	Transcript  []domain.TranscriptTurn `json:"transcript,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// CallScoreResponse is the rubric result for a scored call.
type CallScoreResponse struct {
	CallID            string   `json:"call_id"`
	Overall           int      `json:"overall"`
	Rapport           int      `json:"rapport"`
	Discovery         int      `json:"discovery"`
	ProductKnowledge  int      `json:"product_knowledge"`
	ObjectionHandling int      `json:"objection_handling"`
	Closing           int      `json:"closing"`
	Strengths         []string `json:"strengths"`
	CoachingNotes     []string `json:"coaching_notes"`
	Model             string   `json:"model"`
}

// CallFromDomain maps the domain call. The transcript is included only on
// detail responses.
func CallFromDomain(call *domain.CallRecording, withTranscript bool) CallResponse {
	resp := CallResponse{
		ID:          call.ID,
		StaffID:     call.StaffID,
		Source:      call.Source,
		Status:      call.Status,
		DurationSec: call.DurationSec,
		FailedStage: call.FailedStage,
		FailReason:  call.FailReason,
		CreatedAt:   call.CreatedAt,
		UpdatedAt:   call.UpdatedAt,
	}
	if withTranscript {
		resp.Transcript = call.Transcript
	}
	return resp
}

// ScoreFromDomain maps the domain score.
func ScoreFromDomain(score *domain.CallScore) CallScoreResponse {
	return CallScoreResponse{
		CallID:            score.CallID,
		Overall:           score.Overall,
		Rapport:           score.Rapport,
		Discovery:         score.Discovery,
		ProductKnowledge:  score.ProductKnowledge,
		ObjectionHandling: score.ObjectionHandling,
		Closing:           score.Closing,
		Strengths:         score.Strengths,
		CoachingNotes:     score.CoachingNotes,
		Model:             score.Model,
	}
}
