package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// StaffRepository handles persistence for staff users.
type StaffRepository interface {
	Create(ctx context.Context, tx pgx.Tx, staff *domain.StaffUser) error
	Update(ctx context.Context, tx pgx.Tx, staff *domain.StaffUser) error
	GetByID(ctx context.Context, id string) (*domain.StaffUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffUser, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffUser, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	AgencyID string
	Role     *domain.StaffRole
	Active   *bool
	Limit    int
	Offset   int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, agency_id, name, email, password_hash, role, active, created_at, updated_at`

// Create inserts staff inside the caller's transaction so seat accounting
// commits atomically with the new row.
func (r *staffRepository) Create(ctx context.Context, tx pgx.Tx, staff *domain.StaffUser) error {
	const query = `
        INSERT INTO staff_users (agency_id, name, email, password_hash, role)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, active, created_at, updated_at`

	return tx.QueryRow(ctx, query,
		staff.AgencyID,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Role,
	).Scan(&staff.ID, &staff.Active, &staff.CreatedAt, &staff.UpdatedAt)
}

// Update writes the full row, joining the caller's transaction when one is
// given so it commits with related writes such as seat accounting.
func (r *staffRepository) Update(ctx context.Context, tx pgx.Tx, staff *domain.StaffUser) error {
	const query = `
        UPDATE staff_users
        SET name=$1, email=$2, password_hash=$3, role=$4, active=$5, updated_at=NOW()
        WHERE id=$6`

	args := []any{
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Role,
		staff.Active,
		staff.ID,
	}
	var cmd pgconn.CommandTag
	var err error
	if tx != nil {
		cmd, err = tx.Exec(ctx, query, args...)
	} else {
		cmd, err = r.pool.Exec(ctx, query, args...)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffUser, error) {
	return r.getOne(ctx, "id=$1", id)
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffUser, error) {
	return r.getOne(ctx, "email=$1", email)
}

func (r *staffRepository) getOne(ctx context.Context, where string, arg any) (*domain.StaffUser, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_users WHERE ` + where

	var s domain.StaffUser
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.AgencyID,
		&s.Name,
		&s.Email,
		&s.PasswordHash,
		&s.Role,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffUser, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_users`
	args := []any{filter.AgencyID}
	clauses := []string{"agency_id=$1"}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}
	query += " WHERE " + strings.Join(clauses, " AND ")

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffUser
	for rows.Next() {
		var s domain.StaffUser
		if err := rows.Scan(
			&s.ID,
			&s.AgencyID,
			&s.Name,
			&s.Email,
			&s.PasswordHash,
			&s.Role,
			&s.Active,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
