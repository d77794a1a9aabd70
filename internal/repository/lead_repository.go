package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// LeadRepository covers public lead forms and their submissions.
type LeadRepository interface {
	CreateForm(ctx context.Context, form *domain.LeadForm) error
	GetFormBySlug(ctx context.Context, slug string) (*domain.LeadForm, error)
	ListForms(ctx context.Context, agencyID string) ([]domain.LeadForm, error)

	CreateLead(ctx context.Context, lead *domain.Lead) error
	ListLeads(ctx context.Context, agencyID string, limit, offset int) ([]domain.Lead, error)
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository returns a Postgres-backed implementation.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

func (r *leadRepository) CreateForm(ctx context.Context, form *domain.LeadForm) error {
	lines, err := json.Marshal(form.ProductLines)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO lead_forms (agency_id, slug, headline, brand_color, product_lines)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, active, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, form.AgencyID, form.Slug, form.Headline, form.BrandColor, lines).
		Scan(&form.ID, &form.Active, &form.CreatedAt, &form.UpdatedAt)
}

func (r *leadRepository) GetFormBySlug(ctx context.Context, slug string) (*domain.LeadForm, error) {
	const query = `
        SELECT id, agency_id, slug, headline, brand_color, product_lines, active, created_at, updated_at
        FROM lead_forms WHERE slug=$1`

	var f domain.LeadForm
	var lines []byte
	if err := r.pool.QueryRow(ctx, query, slug).Scan(
		&f.ID,
		&f.AgencyID,
		&f.Slug,
		&f.Headline,
		&f.BrandColor,
		&lines,
		&f.Active,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &f.ProductLines); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *leadRepository) ListForms(ctx context.Context, agencyID string) ([]domain.LeadForm, error) {
	const query = `
        SELECT id, agency_id, slug, headline, brand_color, product_lines, active, created_at, updated_at
        FROM lead_forms WHERE agency_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LeadForm
	for rows.Next() {
		var f domain.LeadForm
		var lines []byte
		if err := rows.Scan(&f.ID, &f.AgencyID, &f.Slug, &f.Headline, &f.BrandColor, &lines, &f.Active, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(lines, &f.ProductLines); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *leadRepository) CreateLead(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO leads (form_id, agency_id, name, email, phone, product_line, message)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		lead.FormID,
		lead.AgencyID,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.ProductLine,
		lead.Message,
	).Scan(&lead.ID, &lead.CreatedAt)
}

func (r *leadRepository) ListLeads(ctx context.Context, agencyID string, limit, offset int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
        SELECT id, form_id, agency_id, name, email, phone, product_line, message, created_at
        FROM leads WHERE agency_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, agencyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := rows.Scan(&l.ID, &l.FormID, &l.AgencyID, &l.Name, &l.Email, &l.Phone, &l.ProductLine, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
