package domain

import "time"

// CallStatus tracks the scoring pipeline state machine.
type CallStatus string

const (
	CallPending      CallStatus = "PENDING"
	CallTranscribing CallStatus = "TRANSCRIBING"
	CallScoring      CallStatus = "SCORING"
	CallScored       CallStatus = "SCORED"
	CallFailed       CallStatus = "FAILED"
)

// CallStage names the pipeline stage a failure occurred in.
type CallStage string

const (
	StageIngest     CallStage = "INGEST"
	StageTranscribe CallStage = "TRANSCRIBE"
	StageScore      CallStage = "SCORE"
)

// Speaker labels a transcript turn.
type Speaker string

const (
	SpeakerAgent    Speaker = "AGENT"
	SpeakerCustomer Speaker = "CUSTOMER"
)

// TranscriptTurn is one speaker turn in a segmented transcript.
type TranscriptTurn struct {
	Speaker Speaker `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// CallRecording is an ingested call plus its pipeline state.
type CallRecording struct {
	ID          string
	AgencyID    string
	StaffID     string
	Source      string
	StorageKey  string
	ContentType string
	SizeBytes   int64
	DurationSec float64
	Status      CallStatus
	FailedStage *CallStage
	FailReason  *string
	Transcript  []TranscriptTurn
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CallScore is the rubric result for a scored call.
type CallScore struct {
	ID                string
	CallID            string
	Overall           int
	Rapport           int
	Discovery         int
	ProductKnowledge  int
	ObjectionHandling int
	Closing           int
	Strengths         []string
	CoachingNotes     []string
	Model             string
	CreatedAt         time.Time
}
