package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// ErrDuplicateEvent signals a webhook event that was already processed.
var ErrDuplicateEvent = errors.New("billing event already processed")

// BillingEventRepository records processed Stripe events for idempotency.
type BillingEventRepository interface {
	Record(ctx context.Context, event *domain.BillingEvent) error
}

type billingEventRepository struct {
	pool *pgxpool.Pool
}

// NewBillingEventRepository constructs the repository.
func NewBillingEventRepository(pool *pgxpool.Pool) BillingEventRepository {
	return &billingEventRepository{pool: pool}
}

// Record inserts the event; the unique constraint on stripe_id converts
// replays into ErrDuplicateEvent.
func (r *billingEventRepository) Record(ctx context.Context, event *domain.BillingEvent) error {
	const query = `
        INSERT INTO billing_events (stripe_id, type, agency_id)
        VALUES ($1,$2,$3)
        RETURNING id, processed_at`

	err := r.pool.QueryRow(ctx, query, event.StripeID, event.Type, event.AgencyID).
		Scan(&event.ID, &event.ProcessedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}
