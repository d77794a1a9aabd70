package service

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/platform/objectstore"
	"github.com/agencyiq/agency-service/internal/repository"
	"github.com/agencyiq/agency-service/internal/transcription"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// CallPipeline turns raw audio into a segmented transcript.
type CallPipeline interface {
	Run(ctx context.Context, filename string, audio []byte) (*transcription.Result, error)
}

// CallScorer grades a transcript against the sales rubric.
type CallScorer interface {
	Score(ctx context.Context, transcript string) (*domain.CallScore, error)
}

// RecordingSource fetches call audio from a telephony provider.
type RecordingSource interface {
	FetchRecording(ctx context.Context, recordingID string) ([]byte, string, error)
}

// CallService runs the call scoring pipeline: ingest, transcribe, score.
type CallService struct {
	calls       repository.CallRepository
	staff       repository.StaffRepository
	store       objectstore.Store
	pipeline    CallPipeline
	scorer      CallScorer
	ringcentral RecordingSource
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	background  func(func())
}

// CallDependencies bundles collaborators for the call service.
type CallDependencies struct {
	CallRepo    repository.CallRepository
	StaffRepo   repository.StaffRepository
	Store       objectstore.Store
	Pipeline    CallPipeline
	Scorer      CallScorer
	RingCentral RecordingSource
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// Background overrides goroutine dispatch; tests run jobs inline.
	Background func(func())
}

// CallUploadInput describes a direct audio upload.
type CallUploadInput struct {
	StaffID     string
	Filename    string
	ContentType string
	Data        []byte
}

// NewCallService constructs the service.
func NewCallService(deps CallDependencies) *CallService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	background := deps.Background
	if background == nil {
		background = func(job func()) { go job() }
	}
	return &CallService{
		calls:       deps.CallRepo,
		staff:       deps.StaffRepo,
		store:       deps.Store,
		pipeline:    deps.Pipeline,
		scorer:      deps.Scorer,
		ringcentral: deps.RingCentral,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		background:  background,
	}
}

// SubmitUpload ingests an uploaded recording and starts the pipeline.
func (s *CallService) SubmitUpload(ctx context.Context, principal *auth.Principal, input CallUploadInput) (*domain.CallRecording, error) {
	if len(input.Data) == 0 {
		return nil, apperrors.NewValidationError("audio payload is empty", nil)
	}
	return s.ingest(ctx, principal, "UPLOAD", input)
}

// SubmitRingCentral pulls a recording from RingCentral and starts the
// pipeline.
func (s *CallService) SubmitRingCentral(ctx context.Context, principal *auth.Principal, staffID, recordingID string) (*domain.CallRecording, error) {
	if s.ringcentral == nil {
		return nil, apperrors.NewUnprocessable("ringcentral integration not configured", nil)
	}

	audio, contentType, err := s.ringcentral.FetchRecording(ctx, recordingID)
	if err != nil {
		return nil, apperrors.NewUnprocessable("could not fetch recording", map[string]any{
			"recording_id": recordingID,
		})
	}

	return s.ingest(ctx, principal, "RINGCENTRAL", CallUploadInput{
		StaffID:     staffID,
		Filename:    recordingID + extensionFor(contentType),
		ContentType: contentType,
		Data:        audio,
	})
}

func (s *CallService) ingest(ctx context.Context, principal *auth.Principal, source string, input CallUploadInput) (*domain.CallRecording, error) {
	staffID := input.StaffID
	if staffID == "" && principal.Staff != nil {
		staffID = principal.Staff.ID
	}
	if staffID == "" {
		return nil, apperrors.NewValidationError("staff_id is required", nil)
	}
	if !canActOnStaff(principal, staffID) {
		return nil, apperrors.NewForbidden("cannot submit calls for other staff")
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil || staff.AgencyID != principal.AgencyID {
		return nil, apperrors.NewNotFound("staff", nil)
	}

	filename := path.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." {
		filename = "recording"
	}

	call := &domain.CallRecording{
		AgencyID:    principal.AgencyID,
		StaffID:     staffID,
		Source:      source,
		StorageKey:  fmt.Sprintf("calls/%s/%s/%s", principal.AgencyID, uuid.NewString(), filename),
		ContentType: input.ContentType,
		SizeBytes:   int64(len(input.Data)),
		Status:      domain.CallPending,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.store.Put(ctx, call.StorageKey, call.ContentType, input.Data); err != nil {
		s.markFailed(ctx, call, domain.StageIngest, err.Error())
		return nil, apperrors.NewUnprocessable("could not store recording", nil)
	}

	s.background(func() {
		s.process(context.Background(), call, filename)
	})
	return call, nil
}

// process drives the recording through transcription and scoring. It runs
// detached from the request; every failure lands in the status columns.
func (s *CallService) process(ctx context.Context, call *domain.CallRecording, filename string) {
	call.Status = domain.CallTranscribing
	if err := s.calls.Update(ctx, call); err != nil {
		s.logger.Error("call status update failed", zap.String("call_id", call.ID), zap.Error(err))
		return
	}

	audio, err := s.store.Get(ctx, call.StorageKey)
	if err != nil {
		s.markFailed(ctx, call, domain.StageIngest, err.Error())
		return
	}

	result, err := s.pipeline.Run(ctx, filename, audio)
	if err != nil {
		s.markFailed(ctx, call, domain.StageTranscribe, err.Error())
		return
	}

	call.Transcript = result.Turns
	call.DurationSec = result.Duration
	call.Status = domain.CallScoring
	if err := s.calls.Update(ctx, call); err != nil {
		s.logger.Error("call status update failed", zap.String("call_id", call.ID), zap.Error(err))
		return
	}

	score, err := s.scorer.Score(ctx, result.Text)
	if err != nil {
		s.markFailed(ctx, call, domain.StageScore, err.Error())
		return
	}
	score.CallID = call.ID
	if err := s.calls.SaveScore(ctx, score); err != nil {
		s.markFailed(ctx, call, domain.StageScore, err.Error())
		return
	}

	call.Status = domain.CallScored
	call.FailedStage = nil
	call.FailReason = nil
	if err := s.calls.Update(ctx, call); err != nil {
		s.logger.Error("call status update failed", zap.String("call_id", call.ID), zap.Error(err))
		return
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventCallScored,
		AgencyID: call.AgencyID,
		Actor:    staffActor(call.StaffID),
		Payload: events.CallScoredPayload{
			CallID:  call.ID,
			StaffID: call.StaffID,
			Overall: score.Overall,
		},
	})
}

// rescorable reports whether a call's pipeline has settled far enough to
// regrade: either fully scored, or failed at the scoring stage itself.
// In-flight calls are left to the pipeline.
func rescorable(call *domain.CallRecording) bool {
	if call.Status == domain.CallScored {
		return true
	}
	return call.Status == domain.CallFailed &&
		call.FailedStage != nil && *call.FailedStage == domain.StageScore
}

// Rescore regrades an already transcribed call without re-running
// transcription.
func (s *CallService) Rescore(ctx context.Context, principal *auth.Principal, id string) (*domain.CallScore, error) {
	call, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if len(call.Transcript) == 0 {
		return nil, apperrors.NewConflict("call has no transcript to rescore", map[string]any{
			"status": call.Status,
		})
	}
	if !rescorable(call) {
		return nil, apperrors.NewConflict("call is still being processed", map[string]any{
			"status": call.Status,
		})
	}

	score, err := s.scorer.Score(ctx, transcriptText(call.Transcript))
	if err != nil {
		s.markFailed(ctx, call, domain.StageScore, err.Error())
		return nil, apperrors.NewUnprocessable("rescoring failed", nil)
	}
	score.CallID = call.ID
	if err := s.calls.SaveScore(ctx, score); err != nil {
		return nil, apperrors.MapError(err)
	}

	call.Status = domain.CallScored
	call.FailedStage = nil
	call.FailReason = nil
	if err := s.calls.Update(ctx, call); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventCallScored,
		AgencyID: call.AgencyID,
		Actor:    principalActor(principal),
		Payload: events.CallScoredPayload{
			CallID:  call.ID,
			StaffID: call.StaffID,
			Overall: score.Overall,
		},
	})
	return score, nil
}

// Get returns one call, enforcing staff visibility.
func (s *CallService) Get(ctx context.Context, principal *auth.Principal, id string) (*domain.CallRecording, error) {
	call, err := s.calls.GetByID(ctx, principal.AgencyID, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("call", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !canActOnStaff(principal, call.StaffID) {
		return nil, apperrors.NewNotFound("call", nil)
	}
	return call, nil
}

// GetScore returns the rubric result for a scored call.
func (s *CallService) GetScore(ctx context.Context, principal *auth.Principal, id string) (*domain.CallScore, error) {
	call, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	score, err := s.calls.GetScore(ctx, call.ID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("call score", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return score, nil
}

// List returns calls matching the filter, pinned to the caller's own calls
// for non-manager staff.
func (s *CallService) List(ctx context.Context, principal *auth.Principal, filter repository.CallFilter) ([]domain.CallRecording, error) {
	filter.AgencyID = principal.AgencyID
	if restrictedStaffID := selfOnlyStaffID(principal); restrictedStaffID != nil {
		filter.StaffID = restrictedStaffID
	}
	calls, err := s.calls.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return calls, nil
}

// Delete removes the call row and its stored audio.
func (s *CallService) Delete(ctx context.Context, principal *auth.Principal, id string) error {
	call, err := s.Get(ctx, principal, id)
	if err != nil {
		return err
	}
	if err := s.calls.Delete(ctx, principal.AgencyID, call.ID); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.store.Delete(ctx, call.StorageKey); err != nil {
		s.logger.Warn("orphaned recording object",
			zap.String("storage_key", call.StorageKey),
			zap.Error(err))
	}
	return nil
}

func (s *CallService) markFailed(ctx context.Context, call *domain.CallRecording, stage domain.CallStage, reason string) {
	call.Status = domain.CallFailed
	call.FailedStage = &stage
	call.FailReason = &reason
	if err := s.calls.Update(ctx, call); err != nil {
		s.logger.Error("could not record call failure",
			zap.String("call_id", call.ID),
			zap.String("stage", string(stage)),
			zap.Error(err))
	}
}

func transcriptText(turns []domain.TranscriptTurn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", turn.Speaker, turn.Text)
	}
	return b.String()
}

func extensionFor(contentType string) string {
	switch contentType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp4":
		return ".m4a"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
