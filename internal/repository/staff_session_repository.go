package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// StaffSessionRepository manages opaque staff session tokens.
type StaffSessionRepository interface {
	Create(ctx context.Context, session *domain.StaffSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.StaffSession, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForStaff(ctx context.Context, staffID string) error
}

type staffSessionRepository struct {
	pool *pgxpool.Pool
}

// NewStaffSessionRepository constructs the repository.
func NewStaffSessionRepository(pool *pgxpool.Pool) StaffSessionRepository {
	return &staffSessionRepository{pool: pool}
}

func (r *staffSessionRepository) Create(ctx context.Context, session *domain.StaffSession) error {
	const query = `
        INSERT INTO staff_sessions (staff_id, agency_id, token_hash, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		session.StaffID,
		session.AgencyID,
		session.TokenHash,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
}

func (r *staffSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.StaffSession, error) {
	const query = `
        SELECT id, staff_id, agency_id, token_hash, expires_at, revoked_at, created_at
        FROM staff_sessions WHERE token_hash=$1`

	var s domain.StaffSession
	if err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&s.ID,
		&s.StaffID,
		&s.AgencyID,
		&s.TokenHash,
		&s.ExpiresAt,
		&s.RevokedAt,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *staffSessionRepository) Revoke(ctx context.Context, id string) error {
	const query = `UPDATE staff_sessions SET revoked_at=NOW() WHERE id=$1 AND revoked_at IS NULL`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *staffSessionRepository) RevokeAllForStaff(ctx context.Context, staffID string) error {
	const query = `UPDATE staff_sessions SET revoked_at=NOW() WHERE staff_id=$1 AND revoked_at IS NULL`
	_, err := r.pool.Exec(ctx, query, staffID)
	return err
}
