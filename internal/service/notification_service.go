package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/platform/mailer"
	"github.com/agencyiq/agency-service/internal/repository"
)

// NotificationService turns domain events into owner-facing emails.
type NotificationService struct {
	agencies repository.AgencyRepository
	staff    repository.StaffRepository
	mail     mailer.Mailer
	logger   *zap.Logger
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	AgencyRepo repository.AgencyRepository
	StaffRepo  repository.StaffRepository
	Mailer     mailer.Mailer
	Logger     *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		agencies: deps.AgencyRepo,
		staff:    deps.StaffRepo,
		mail:     deps.Mailer,
		logger:   logger,
	}
}

// Register subscribes the notification handlers to the dispatcher.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventCallScored, s.onCallScored)
	dispatcher.Subscribe(events.EventOnboardingCompleted, s.onOnboardingCompleted)
	dispatcher.Subscribe(events.EventLeadSubmitted, s.onLeadSubmitted)
}

// onCallScored emails the owner when a call finishes scoring, if the agency
// opted in.
func (s *NotificationService) onCallScored(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CallScoredPayload)
	if !ok {
		return nil
	}

	agency, err := s.agencies.GetByID(ctx, event.AgencyID)
	if err != nil {
		return err
	}
	if !agency.NotifyOnCallScored {
		return nil
	}

	staffName := s.staffName(ctx, payload.StaffID)
	subject := fmt.Sprintf("Call scored: %d/100", payload.Overall)
	body := fmt.Sprintf("<p>A call by %s was scored <strong>%d/100</strong>.</p>", staffName, payload.Overall)
	return s.send(ctx, agency.OwnerEmail, subject, body)
}

func (s *NotificationService) onOnboardingCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OnboardingCompletedPayload)
	if !ok {
		return nil
	}

	agency, err := s.agencies.GetByID(ctx, event.AgencyID)
	if err != nil {
		return err
	}

	staffName := s.staffName(ctx, payload.StaffID)
	body := fmt.Sprintf("<p>%s finished their onboarding program.</p>", staffName)
	return s.send(ctx, agency.OwnerEmail, "Onboarding completed", body)
}

func (s *NotificationService) onLeadSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LeadSubmittedPayload)
	if !ok {
		return nil
	}

	agency, err := s.agencies.GetByID(ctx, event.AgencyID)
	if err != nil {
		return err
	}

	subject := "New lead: " + payload.Name
	body := fmt.Sprintf("<p>%s requested a %s quote via your %q form.</p>",
		payload.Name, payload.ProductLine, payload.FormSlug)
	return s.send(ctx, agency.OwnerEmail, subject, body)
}

func (s *NotificationService) send(ctx context.Context, to, subject, body string) error {
	if s.mail == nil {
		return nil
	}
	if err := s.mail.Send(ctx, to, subject, body); err != nil {
		s.logger.Warn("notification email failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *NotificationService) staffName(ctx context.Context, staffID string) string {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return "a staff member"
	}
	return staff.Name
}
