package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// ChallengeRepository defines persistence access for challenge assignments.
type ChallengeRepository interface {
	Create(ctx context.Context, c *domain.ChallengeAssignment) error
	Update(ctx context.Context, c *domain.ChallengeAssignment) error
	SetAudio(ctx context.Context, id, url string) error
	GetByID(ctx context.Context, agencyID, id string) (*domain.ChallengeAssignment, error)
	List(ctx context.Context, filter ChallengeFilter) ([]domain.ChallengeAssignment, error)
}

// ChallengeFilter defines query params for challenge listing.
type ChallengeFilter struct {
	AgencyID string
	StaffID  *string
	Status   *domain.ChallengeStatus
	Limit    int
	Offset   int
}

type challengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository returns a Postgres-backed implementation.
func NewChallengeRepository(pool *pgxpool.Pool) ChallengeRepository {
	return &challengeRepository{pool: pool}
}

const challengeColumns = `id, agency_id, staff_id, title, description, points, due_date,
        status, audio_url, assigned_at, completed_at, updated_at`

func (r *challengeRepository) Create(ctx context.Context, c *domain.ChallengeAssignment) error {
	const query = `
        INSERT INTO challenge_assignments (agency_id, staff_id, title, description, points, due_date, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, assigned_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		c.AgencyID,
		c.StaffID,
		c.Title,
		c.Description,
		c.Points,
		c.DueDate,
		c.Status,
	).Scan(&c.ID, &c.AssignedAt, &c.UpdatedAt)
}

func (r *challengeRepository) Update(ctx context.Context, c *domain.ChallengeAssignment) error {
	const query = `
        UPDATE challenge_assignments
        SET staff_id=$1, title=$2, description=$3, points=$4, due_date=$5, status=$6,
            audio_url=$7, assigned_at=$8, completed_at=$9, updated_at=NOW()
        WHERE id=$10 AND agency_id=$11`

	cmd, err := r.pool.Exec(ctx, query,
		c.StaffID,
		c.Title,
		c.Description,
		c.Points,
		c.DueDate,
		c.Status,
		c.AudioURL,
		c.AssignedAt,
		c.CompletedAt,
		c.ID,
		c.AgencyID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *challengeRepository) SetAudio(ctx context.Context, id, url string) error {
	const query = `UPDATE challenge_assignments SET audio_url=$1, updated_at=NOW() WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, url, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *challengeRepository) GetByID(ctx context.Context, agencyID, id string) (*domain.ChallengeAssignment, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenge_assignments WHERE id=$1 AND agency_id=$2`

	var c domain.ChallengeAssignment
	if err := r.pool.QueryRow(ctx, query, id, agencyID).Scan(
		&c.ID,
		&c.AgencyID,
		&c.StaffID,
		&c.Title,
		&c.Description,
		&c.Points,
		&c.DueDate,
		&c.Status,
		&c.AudioURL,
		&c.AssignedAt,
		&c.CompletedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *challengeRepository) List(ctx context.Context, filter ChallengeFilter) ([]domain.ChallengeAssignment, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenge_assignments`
	args := []any{filter.AgencyID}
	clauses := []string{"agency_id=$1"}

	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		clauses = append(clauses, fmt.Sprintf("staff_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	query += " WHERE " + strings.Join(clauses, " AND ")

	query += " ORDER BY assigned_at DESC"
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

	var result []domain.ChallengeAssignment
	for rows.Next() {
		var c domain.ChallengeAssignment
		if err := rows.Scan(
			&c.ID,
			&c.AgencyID,
			&c.StaffID,
			&c.Title,
			&c.Description,
			&c.Points,
			&c.DueDate,
			&c.Status,
			&c.AudioURL,
			&c.AssignedAt,
			&c.CompletedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
