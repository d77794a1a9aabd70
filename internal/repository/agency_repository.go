package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// AgencyRepository defines persistence access for agencies (tenants).
type AgencyRepository interface {
	Create(ctx context.Context, agency *domain.Agency) error
	Update(ctx context.Context, agency *domain.Agency) error
	GetByID(ctx context.Context, id string) (*domain.Agency, error)
	GetByOwnerEmail(ctx context.Context, email string) (*domain.Agency, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*domain.Agency, error)
	AdjustSeatsUsed(ctx context.Context, tx pgx.Tx, agencyID string, delta int) (int, error)
}

type agencyRepository struct {
	pool *pgxpool.Pool
}

// NewAgencyRepository returns a Postgres-backed implementation.
func NewAgencyRepository(pool *pgxpool.Pool) AgencyRepository {
	return &agencyRepository{pool: pool}
}

const agencyColumns = `id, name, owner_email, owner_password_hash, plan, seat_limit, seats_used,
        stripe_customer_id, stripe_subscription_id, notify_on_call_scored, active, created_at, updated_at`

func (r *agencyRepository) Create(ctx context.Context, agency *domain.Agency) error {
	const query = `
        INSERT INTO agencies (name, owner_email, owner_password_hash, plan, seat_limit)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, seats_used, notify_on_call_scored, active, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		agency.Name,
		agency.OwnerEmail,
		agency.OwnerPasswordHash,
		agency.Plan,
		agency.SeatLimit,
	).Scan(&agency.ID, &agency.SeatsUsed, &agency.NotifyOnCallScored, &agency.Active, &agency.CreatedAt, &agency.UpdatedAt)
}

func (r *agencyRepository) Update(ctx context.Context, agency *domain.Agency) error {
	const query = `
        UPDATE agencies
        SET name=$1, owner_email=$2, owner_password_hash=$3, plan=$4, seat_limit=$5,
            stripe_customer_id=$6, stripe_subscription_id=$7, notify_on_call_scored=$8,
            active=$9, updated_at=NOW()
        WHERE id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		agency.Name,
		agency.OwnerEmail,
		agency.OwnerPasswordHash,
		agency.Plan,
		agency.SeatLimit,
		agency.StripeCustomerID,
		agency.StripeSubscriptionID,
		agency.NotifyOnCallScored,
		agency.Active,
		agency.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agencyRepository) GetByID(ctx context.Context, id string) (*domain.Agency, error) {
	return r.getOne(ctx, "id=$1", id)
}

func (r *agencyRepository) GetByOwnerEmail(ctx context.Context, email string) (*domain.Agency, error) {
	return r.getOne(ctx, "owner_email=$1", email)
}

func (r *agencyRepository) GetByStripeCustomer(ctx context.Context, customerID string) (*domain.Agency, error) {
	return r.getOne(ctx, "stripe_customer_id=$1", customerID)
}

func (r *agencyRepository) getOne(ctx context.Context, where string, arg any) (*domain.Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies WHERE ` + where

	var a domain.Agency
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Name,
		&a.OwnerEmail,
		&a.OwnerPasswordHash,
		&a.Plan,
		&a.SeatLimit,
		&a.SeatsUsed,
		&a.StripeCustomerID,
		&a.StripeSubscriptionID,
		&a.NotifyOnCallScored,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// AdjustSeatsUsed atomically changes the seat counter inside the caller's
// transaction and returns the new value. The seats_used CHECK rejects
// decrements below zero.
func (r *agencyRepository) AdjustSeatsUsed(ctx context.Context, tx pgx.Tx, agencyID string, delta int) (int, error) {
	const query = `
        UPDATE agencies SET seats_used = seats_used + $1, updated_at=NOW()
        WHERE id=$2
        RETURNING seats_used`

	var seats int
	if err := tx.QueryRow(ctx, query, delta, agencyID).Scan(&seats); err != nil {
		return 0, err
	}
	return seats, nil
}
