package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// SpeechQueue hands training content to the TTS worker for narration.
type SpeechQueue interface {
	EnqueueTask(taskID, text string)
	EnqueueChallenge(challengeID, text string)
}

// TrainingService manages onboarding programs and coaching challenges.
type TrainingService struct {
	pool       TxBeginner
	onboarding repository.OnboardingRepository
	challenges repository.ChallengeRepository
	staff      repository.StaffRepository
	speech     SpeechQueue
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TrainingDependencies bundles collaborators for the training service.
type TrainingDependencies struct {
	Pool           TxBeginner
	OnboardingRepo repository.OnboardingRepository
	ChallengeRepo  repository.ChallengeRepository
	StaffRepo      repository.StaffRepository
	Speech         SpeechQueue
	Dispatcher     events.Dispatcher
	Now            func() time.Time
}

// ChallengeInput describes a challenge assignment payload.
type ChallengeInput struct {
	StaffID     string
	Title       string
	Description string
	Points      int
	DueDate     *time.Time
}

// NewTrainingService constructs the service.
func NewTrainingService(deps TrainingDependencies) *TrainingService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TrainingService{
		pool:       deps.Pool,
		onboarding: deps.OnboardingRepo,
		challenges: deps.ChallengeRepo,
		staff:      deps.StaffRepo,
		speech:     deps.Speech,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// CreateTemplate stores a reusable onboarding program.
func (s *TrainingService) CreateTemplate(ctx context.Context, agencyID, name string, tasks []domain.TaskTemplate) (*domain.OnboardingTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if len(tasks) == 0 {
		return nil, apperrors.NewValidationError("template needs at least one task", nil)
	}
	for i, task := range tasks {
		if strings.TrimSpace(task.Title) == "" {
			return nil, apperrors.NewValidationError("task title is required", map[string]any{"position": i})
		}
		if task.DueOffset < 0 {
			return nil, apperrors.NewValidationError("due offset cannot be negative", map[string]any{"position": i})
		}
	}

	tpl := &domain.OnboardingTemplate{AgencyID: agencyID, Name: name, Tasks: tasks}
	if err := s.onboarding.CreateTemplate(ctx, tpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tpl, nil
}

// ListTemplates returns the agency's onboarding templates.
func (s *TrainingService) ListTemplates(ctx context.Context, agencyID string) ([]domain.OnboardingTemplate, error) {
	templates, err := s.onboarding.ListTemplates(ctx, agencyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return templates, nil
}

// AssignTemplate instantiates a template for a staff member. The instance
// and every generated task commit in one transaction; due dates are offsets
// from the assignment time.
func (s *TrainingService) AssignTemplate(ctx context.Context, agencyID, templateID, staffID string) (*domain.OnboardingInstance, []domain.OnboardingTask, error) {
	tpl, err := s.onboarding.GetTemplate(ctx, agencyID, templateID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFound("template", nil)
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !tpl.Active {
		return nil, nil, apperrors.NewConflict("template inactive", nil)
	}
	if err := s.requireActiveStaff(ctx, agencyID, staffID); err != nil {
		return nil, nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx)

	inst := &domain.OnboardingInstance{
		AgencyID:   agencyID,
		TemplateID: tpl.ID,
		StaffID:    staffID,
		Status:     domain.OnboardingNotStarted,
	}
	if err := s.onboarding.CreateInstance(ctx, tx, inst); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	assignedAt := s.now()
	tasks := make([]domain.OnboardingTask, 0, len(tpl.Tasks))
	for i, tt := range tpl.Tasks {
		due := assignedAt.AddDate(0, 0, tt.DueOffset)
		task := domain.OnboardingTask{
			InstanceID:  inst.ID,
			Position:    i,
			Title:       tt.Title,
			Description: tt.Description,
			DueDate:     &due,
		}
		if err := s.onboarding.CreateTask(ctx, tx, &task); err != nil {
			return nil, nil, apperrors.MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	if s.speech != nil {
		for _, task := range tasks {
			if task.Description != "" {
				s.speech.EnqueueTask(task.ID, task.Title+". "+task.Description)
			}
		}
	}
	return inst, tasks, nil
}

// GetInstance returns an instance with its tasks.
func (s *TrainingService) GetInstance(ctx context.Context, agencyID, id string) (*domain.OnboardingInstance, []domain.OnboardingTask, error) {
	inst, err := s.onboarding.GetInstance(ctx, agencyID, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFound("onboarding instance", nil)
		}
		return nil, nil, apperrors.MapError(err)
	}
	tasks, err := s.onboarding.ListTasks(ctx, inst.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return inst, tasks, nil
}

// ListInstancesForStaff returns onboarding instances for one staff member.
func (s *TrainingService) ListInstancesForStaff(ctx context.Context, agencyID, staffID string) ([]domain.OnboardingInstance, error) {
	instances, err := s.onboarding.ListInstancesForStaff(ctx, agencyID, staffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return instances, nil
}

// CompleteTask marks a task done. The first completion flips the instance to
// IN_PROGRESS; completing the last open task flips it to COMPLETED and
// publishes an event.
func (s *TrainingService) CompleteTask(ctx context.Context, principal *auth.Principal, taskID string) (*domain.OnboardingTask, error) {
	task, err := s.onboarding.GetTask(ctx, taskID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("task", nil)
		}
		return nil, apperrors.MapError(err)
	}

	inst, err := s.onboarding.GetInstance(ctx, principal.AgencyID, task.InstanceID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("task", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !canActOnStaff(principal, inst.StaffID) {
		return nil, apperrors.NewForbidden("cannot complete another staff member's tasks")
	}
	if task.CompletedAt != nil {
		return nil, apperrors.NewConflict("task already completed", nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx)

	now := s.now()
	task.CompletedAt = &now
	if err := s.onboarding.UpdateTask(ctx, tx, task); err != nil {
		return nil, apperrors.MapError(err)
	}

	open, err := s.onboarding.CountOpenTasks(ctx, tx, inst.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	switch {
	case open == 0:
		inst.Status = domain.OnboardingCompleted
		inst.CompletedAt = &now
	case inst.Status == domain.OnboardingNotStarted:
		inst.Status = domain.OnboardingInProgress
	default:
		if err := tx.Commit(ctx); err != nil {
			return nil, apperrors.MapError(err)
		}
		return task, nil
	}
	if err := s.onboarding.UpdateInstance(ctx, tx, inst); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	if inst.Status == domain.OnboardingCompleted {
		publish(ctx, s.dispatcher, events.Event{
			Type:     events.EventOnboardingCompleted,
			AgencyID: inst.AgencyID,
			Actor:    principalActor(principal),
			Payload: events.OnboardingCompletedPayload{
				InstanceID: inst.ID,
				StaffID:    inst.StaffID,
			},
		})
	}
	return task, nil
}

// AssignChallenge creates a challenge for a staff member.
func (s *TrainingService) AssignChallenge(ctx context.Context, agencyID string, input ChallengeInput) (*domain.ChallengeAssignment, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if input.Points < 0 {
		return nil, apperrors.NewValidationError("points cannot be negative", nil)
	}
	if err := s.requireActiveStaff(ctx, agencyID, input.StaffID); err != nil {
		return nil, err
	}

	challenge := &domain.ChallengeAssignment{
		AgencyID:    agencyID,
		StaffID:     input.StaffID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Points:      input.Points,
		DueDate:     input.DueDate,
		Status:      domain.ChallengeAssigned,
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.speech != nil && challenge.Description != "" {
		s.speech.EnqueueChallenge(challenge.ID, challenge.Title+". "+challenge.Description)
	}
	return challenge, nil
}

// ReassignChallenge moves an open challenge to another staff member and
// restarts its clock.
func (s *TrainingService) ReassignChallenge(ctx context.Context, agencyID, id, staffID string) (*domain.ChallengeAssignment, error) {
	challenge, err := s.getChallenge(ctx, agencyID, id)
	if err != nil {
		return nil, err
	}
	if challenge.Status != domain.ChallengeAssigned {
		return nil, apperrors.NewConflict("only open challenges can be reassigned", nil)
	}
	if err := s.requireActiveStaff(ctx, agencyID, staffID); err != nil {
		return nil, err
	}

	challenge.StaffID = staffID
	challenge.AssignedAt = s.now()
	if err := s.challenges.Update(ctx, challenge); err != nil {
		return nil, apperrors.MapError(err)
	}
	return challenge, nil
}

// CompleteChallenge marks a challenge done and publishes the points earned.
// A challenge past its due date expires instead.
func (s *TrainingService) CompleteChallenge(ctx context.Context, principal *auth.Principal, id string) (*domain.ChallengeAssignment, error) {
	challenge, err := s.getChallenge(ctx, principal.AgencyID, id)
	if err != nil {
		return nil, err
	}
	if !canActOnStaff(principal, challenge.StaffID) {
		return nil, apperrors.NewForbidden("cannot complete another staff member's challenge")
	}
	if challenge.Status != domain.ChallengeAssigned {
		return nil, apperrors.NewConflict("challenge is not open", map[string]any{"status": challenge.Status})
	}

	now := s.now()
	if challenge.DueDate != nil && now.After(*challenge.DueDate) {
		challenge.Status = domain.ChallengeExpired
		if err := s.challenges.Update(ctx, challenge); err != nil {
			return nil, apperrors.MapError(err)
		}
		return nil, apperrors.NewConflict("challenge expired", nil)
	}

	challenge.Status = domain.ChallengeCompleted
	challenge.CompletedAt = &now
	if err := s.challenges.Update(ctx, challenge); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventChallengeCompleted,
		AgencyID: challenge.AgencyID,
		Actor:    principalActor(principal),
		Payload: events.ChallengeCompletedPayload{
			ChallengeID: challenge.ID,
			StaffID:     challenge.StaffID,
			Points:      challenge.Points,
		},
	})
	return challenge, nil
}

// ListChallenges returns challenges matching the filter.
func (s *TrainingService) ListChallenges(ctx context.Context, filter repository.ChallengeFilter) ([]domain.ChallengeAssignment, error) {
	challenges, err := s.challenges.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return challenges, nil
}

func (s *TrainingService) getChallenge(ctx context.Context, agencyID, id string) (*domain.ChallengeAssignment, error) {
	challenge, err := s.challenges.GetByID(ctx, agencyID, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("challenge", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return challenge, nil
}

func (s *TrainingService) requireActiveStaff(ctx context.Context, agencyID, staffID string) error {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("staff", nil)
		}
		return apperrors.MapError(err)
	}
	if staff.AgencyID != agencyID || !staff.Active {
		return apperrors.NewNotFound("staff", nil)
	}
	return nil
}
