package service

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"

	"github.com/agencyiq/agency-service/internal/config"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/platform/stripeclient"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// StripeGateway abstracts the Stripe API for tests.
type StripeGateway interface {
	CreateCustomer(ctx context.Context, agencyID, name, email string) (*stripe.Customer, error)
	CreateSeatSubscription(ctx context.Context, customerID string, seats int64, idempotencyKey string) (*stripe.Subscription, error)
	UpdateSeatQuantity(ctx context.Context, subscriptionID string, seats int64) (*stripe.Subscription, error)
}

// BillingService manages per-seat subscriptions and Stripe webhooks.
type BillingService struct {
	agencies      repository.AgencyRepository
	billingEvents repository.BillingEventRepository
	stripe        StripeGateway
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	webhookSecret string
}

// BillingDependencies bundles collaborators for the billing service.
type BillingDependencies struct {
	AgencyRepo       repository.AgencyRepository
	BillingEventRepo repository.BillingEventRepository
	Stripe           StripeGateway
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewBillingService constructs the service.
func NewBillingService(cfg config.Config, deps BillingDependencies) *BillingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		agencies:      deps.AgencyRepo,
		billingEvents: deps.BillingEventRepo,
		stripe:        deps.Stripe,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		webhookSecret: cfg.Stripe.WebhookSecret,
	}
}

func planSeatLimit(plan domain.AgencyPlan) int {
	switch plan {
	case domain.PlanStandard:
		return 25
	case domain.PlanPro:
		return 100
	}
	return trialSeatLimit
}

// Subscribe starts a paid per-seat subscription for the agency. The seat
// quantity starts at the current seat usage; the agency ID doubles as the
// idempotency key so a retried request cannot double-subscribe.
func (s *BillingService) Subscribe(ctx context.Context, agencyID string, plan domain.AgencyPlan) (*domain.Agency, error) {
	if plan != domain.PlanStandard && plan != domain.PlanPro {
		return nil, apperrors.NewValidationError("plan must be STANDARD or PRO", map[string]any{"plan": plan})
	}

	agency, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("agency", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if agency.StripeSubscriptionID != nil {
		return nil, apperrors.NewConflict("agency already has a subscription", nil)
	}

	if agency.StripeCustomerID == nil {
		cust, err := s.stripe.CreateCustomer(ctx, agency.ID, agency.Name, agency.OwnerEmail)
		if err != nil {
			return nil, apperrors.NewUnprocessable("could not create billing customer", nil)
		}
		agency.StripeCustomerID = &cust.ID
		if err := s.agencies.Update(ctx, agency); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	seats := int64(agency.SeatsUsed)
	if seats < 1 {
		seats = 1
	}
	sub, err := s.stripe.CreateSeatSubscription(ctx, *agency.StripeCustomerID, seats, "sub-"+agency.ID)
	if err != nil {
		return nil, apperrors.NewUnprocessable("could not create subscription", nil)
	}

	agency.StripeSubscriptionID = &sub.ID
	agency.Plan = plan
	agency.SeatLimit = planSeatLimit(plan)
	if err := s.agencies.Update(ctx, agency); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishSubscriptionUpdated(ctx, agency)
	return agency, nil
}

// SyncSeatQuantity pushes the current seat usage to Stripe. Agencies without
// a paid subscription are skipped.
func (s *BillingService) SyncSeatQuantity(ctx context.Context, agency *domain.Agency) error {
	if agency.StripeSubscriptionID == nil {
		return nil
	}
	seats := int64(agency.SeatsUsed)
	if seats < 1 {
		seats = 1
	}
	if _, err := s.stripe.UpdateSeatQuantity(ctx, *agency.StripeSubscriptionID, seats); err != nil {
		s.logger.Error("seat quantity sync failed",
			zap.String("agency_id", agency.ID),
			zap.Int64("seats", seats),
			zap.Error(err))
		return err
	}
	return nil
}

// HandleWebhook verifies and applies a Stripe webhook delivery. Replayed
// events are detected via the stored event ID and acknowledged without
// reprocessing.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := stripeclient.VerifyWebhook(payload, signature, s.webhookSecret)
	if err != nil {
		return apperrors.NewUnauthorized("invalid webhook signature")
	}
	return s.applyEvent(ctx, event)
}

func (s *BillingService) applyEvent(ctx context.Context, event stripe.Event) error {
	var agency *domain.Agency
	var err error
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		agency, err = s.applySubscription(ctx, event, false)
	case "customer.subscription.deleted":
		agency, err = s.applySubscription(ctx, event, true)
	default:
		s.logger.Debug("unhandled webhook event", zap.String("type", string(event.Type)))
	}
	if err != nil {
		return err
	}

	// The event ID is recorded only after a successful apply; a transient
	// failure leaves it unrecorded so Stripe's retry reprocesses it.
	record := &domain.BillingEvent{StripeID: event.ID, Type: string(event.Type)}
	if err := s.billingEvents.Record(ctx, record); err != nil {
		if err == repository.ErrDuplicateEvent {
			s.logger.Info("duplicate webhook event ignored", zap.String("event_id", event.ID))
			return nil
		}
		return apperrors.MapError(err)
	}

	if agency != nil {
		s.publishSubscriptionUpdated(ctx, agency)
	}
	return nil
}

func (s *BillingService) applySubscription(ctx context.Context, event stripe.Event, deleted bool) (*domain.Agency, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, apperrors.NewValidationError("malformed subscription payload", nil)
	}
	if sub.Customer == nil {
		return nil, apperrors.NewValidationError("subscription has no customer", nil)
	}

	agency, err := s.agencies.GetByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Customer created outside this system; acknowledge and move on.
			s.logger.Warn("webhook for unknown customer", zap.String("customer_id", sub.Customer.ID))
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}

	if deleted {
		agency.StripeSubscriptionID = nil
		agency.Plan = domain.PlanTrial
		agency.SeatLimit = trialSeatLimit
	} else {
		agency.StripeSubscriptionID = &sub.ID
		if plan := domain.AgencyPlan(sub.Metadata["plan"]); plan == domain.PlanStandard || plan == domain.PlanPro {
			agency.Plan = plan
		} else if agency.Plan == domain.PlanTrial {
			agency.Plan = domain.PlanStandard
		}
		agency.SeatLimit = planSeatLimit(agency.Plan)
		agency.Active = sub.Status == stripe.SubscriptionStatusActive ||
			sub.Status == stripe.SubscriptionStatusTrialing
	}

	if err := s.agencies.Update(ctx, agency); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agency, nil
}

func (s *BillingService) publishSubscriptionUpdated(ctx context.Context, agency *domain.Agency) {
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventSubscriptionUpdated,
		AgencyID: agency.ID,
		Actor:    ownerActor(),
		Payload: events.SubscriptionUpdatedPayload{
			Plan:      agency.Plan,
			SeatLimit: agency.SeatLimit,
			Active:    agency.Active,
		},
	})
}
