package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// CallRepository defines persistence access for call recordings and scores.
type CallRepository interface {
	Create(ctx context.Context, call *domain.CallRecording) error
	Update(ctx context.Context, call *domain.CallRecording) error
	Delete(ctx context.Context, agencyID, id string) error
	GetByID(ctx context.Context, agencyID, id string) (*domain.CallRecording, error)
	List(ctx context.Context, filter CallFilter) ([]domain.CallRecording, error)

	SaveScore(ctx context.Context, score *domain.CallScore) error
	GetScore(ctx context.Context, callID string) (*domain.CallScore, error)
}

// CallFilter defines query params for call listing.
type CallFilter struct {
	AgencyID string
	StaffID  *string
	Status   *domain.CallStatus
	From     *time.Time
	To       *time.Time
	MinScore *int
	MaxScore *int
	Limit    int
	Offset   int
}

type callRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository returns a Postgres-backed implementation.
func NewCallRepository(pool *pgxpool.Pool) CallRepository {
	return &callRepository{pool: pool}
}

const callColumns = `id, agency_id, staff_id, source, storage_key, content_type, size_bytes,
        duration_sec, status, failed_stage, fail_reason, transcript, created_at, updated_at`

func (r *callRepository) Create(ctx context.Context, call *domain.CallRecording) error {
	const query = `
        INSERT INTO call_recordings (agency_id, staff_id, source, storage_key, content_type, size_bytes, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		call.AgencyID,
		call.StaffID,
		call.Source,
		call.StorageKey,
		call.ContentType,
		call.SizeBytes,
		call.Status,
	).Scan(&call.ID, &call.CreatedAt, &call.UpdatedAt)
}

func (r *callRepository) Update(ctx context.Context, call *domain.CallRecording) error {
	transcript := []byte("[]")
	if call.Transcript != nil {
		var err error
		transcript, err = json.Marshal(call.Transcript)
		if err != nil {
			return err
		}
	}

	const query = `
        UPDATE call_recordings
        SET status=$1, failed_stage=$2, fail_reason=$3, duration_sec=$4, size_bytes=$5,
            transcript=$6, updated_at=NOW()
        WHERE id=$7 AND agency_id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		call.Status,
		call.FailedStage,
		call.FailReason,
		call.DurationSec,
		call.SizeBytes,
		transcript,
		call.ID,
		call.AgencyID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *callRepository) Delete(ctx context.Context, agencyID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM call_recordings WHERE id=$1 AND agency_id=$2`, id, agencyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *callRepository) GetByID(ctx context.Context, agencyID, id string) (*domain.CallRecording, error) {
	query := `SELECT ` + callColumns + ` FROM call_recordings WHERE id=$1 AND agency_id=$2`

	var c domain.CallRecording
	var transcript []byte
	if err := r.pool.QueryRow(ctx, query, id, agencyID).Scan(
		&c.ID,
		&c.AgencyID,
		&c.StaffID,
		&c.Source,
		&c.StorageKey,
		&c.ContentType,
		&c.SizeBytes,
		&c.DurationSec,
		&c.Status,
		&c.FailedStage,
		&c.FailReason,
		&transcript,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(transcript, &c.Transcript); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *callRepository) List(ctx context.Context, filter CallFilter) ([]domain.CallRecording, error) {
	query := `SELECT ` + callColumns + ` FROM call_recordings`
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
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at>=$%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at<=$%d", len(args)))
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM call_scores cs WHERE cs.call_id=call_recordings.id AND cs.overall>=$%d)", len(args)))
	}
	if filter.MaxScore != nil {
		args = append(args, *filter.MaxScore)
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM call_scores cs WHERE cs.call_id=call_recordings.id AND cs.overall<=$%d)", len(args)))
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

	var result []domain.CallRecording
	for rows.Next() {
		var c domain.CallRecording
		var transcript []byte
		if err := rows.Scan(
			&c.ID,
			&c.AgencyID,
			&c.StaffID,
			&c.Source,
			&c.StorageKey,
			&c.ContentType,
			&c.SizeBytes,
			&c.DurationSec,
			&c.Status,
			&c.FailedStage,
			&c.FailReason,
			&transcript,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(transcript, &c.Transcript); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *callRepository) SaveScore(ctx context.Context, score *domain.CallScore) error {
	strengths, err := json.Marshal(score.Strengths)
	if err != nil {
		return err
	}
	notes, err := json.Marshal(score.CoachingNotes)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO call_scores (call_id, overall, rapport, discovery, product_knowledge, objection_handling, closing, strengths, coaching_notes, model)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (call_id) DO UPDATE
        SET overall=EXCLUDED.overall, rapport=EXCLUDED.rapport, discovery=EXCLUDED.discovery,
            product_knowledge=EXCLUDED.product_knowledge, objection_handling=EXCLUDED.objection_handling,
            closing=EXCLUDED.closing, strengths=EXCLUDED.strengths, coaching_notes=EXCLUDED.coaching_notes,
            model=EXCLUDED.model, created_at=NOW()
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		score.CallID,
		score.Overall,
		score.Rapport,
		score.Discovery,
		score.ProductKnowledge,
		score.ObjectionHandling,
		score.Closing,
		strengths,
		notes,
		score.Model,
	).Scan(&score.ID, &score.CreatedAt)
}

func (r *callRepository) GetScore(ctx context.Context, callID string) (*domain.CallScore, error) {
	const query = `
        SELECT id, call_id, overall, rapport, discovery, product_knowledge, objection_handling, closing, strengths, coaching_notes, model, created_at
        FROM call_scores WHERE call_id=$1`

	var s domain.CallScore
	var strengths, notes []byte
	if err := r.pool.QueryRow(ctx, query, callID).Scan(
		&s.ID,
		&s.CallID,
		&s.Overall,
		&s.Rapport,
		&s.Discovery,
		&s.ProductKnowledge,
		&s.ObjectionHandling,
		&s.Closing,
		&strengths,
		&notes,
		&s.Model,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(strengths, &s.Strengths); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(notes, &s.CoachingNotes); err != nil {
		return nil, err
	}
	return &s, nil
}
