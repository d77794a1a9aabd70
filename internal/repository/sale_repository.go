package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// SaleRepository defines persistence access for sales.
type SaleRepository interface {
	Create(ctx context.Context, sale *domain.Sale) error
	Update(ctx context.Context, sale *domain.Sale) error
	Delete(ctx context.Context, agencyID, id string) error
	GetByID(ctx context.Context, agencyID, id string) (*domain.Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)
	ListForPeriod(ctx context.Context, agencyID string, staffID *string, from, to time.Time) ([]domain.Sale, error)
}

// SaleFilter defines query params for sale listing.
type SaleFilter struct {
	AgencyID    string
	StaffID     *string
	ProductLine *domain.ProductLine
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type saleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a Postgres-backed implementation.
func NewSaleRepository(pool *pgxpool.Pool) SaleRepository {
	return &saleRepository{pool: pool}
}

const saleColumns = `id, agency_id, staff_id, client_name, product_line, policy_count,
        premium, commission_pct, sale_date, source, notes, created_at, updated_at`

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	const query = `
        INSERT INTO sales (agency_id, staff_id, client_name, product_line, policy_count, premium, commission_pct, sale_date, source, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		sale.AgencyID,
		sale.StaffID,
		sale.ClientName,
		sale.ProductLine,
		sale.PolicyCount,
		sale.Premium,
		sale.CommissionPct,
		sale.SaleDate,
		sale.Source,
		sale.Notes,
	).Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
}

func (r *saleRepository) Update(ctx context.Context, sale *domain.Sale) error {
	const query = `
        UPDATE sales
        SET client_name=$1, product_line=$2, policy_count=$3, premium=$4, commission_pct=$5,
            sale_date=$6, source=$7, notes=$8, updated_at=NOW()
        WHERE id=$9 AND agency_id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		sale.ClientName,
		sale.ProductLine,
		sale.PolicyCount,
		sale.Premium,
		sale.CommissionPct,
		sale.SaleDate,
		sale.Source,
		sale.Notes,
		sale.ID,
		sale.AgencyID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *saleRepository) Delete(ctx context.Context, agencyID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE id=$1 AND agency_id=$2`, id, agencyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *saleRepository) GetByID(ctx context.Context, agencyID, id string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id=$1 AND agency_id=$2`

	var s domain.Sale
	if err := r.pool.QueryRow(ctx, query, id, agencyID).Scan(
		&s.ID,
		&s.AgencyID,
		&s.StaffID,
		&s.ClientName,
		&s.ProductLine,
		&s.PolicyCount,
		&s.Premium,
		&s.CommissionPct,
		&s.SaleDate,
		&s.Source,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepository) List(ctx context.Context, filter SaleFilter) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
	args := []any{filter.AgencyID}
	clauses := []string{"agency_id=$1"}

	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		clauses = append(clauses, fmt.Sprintf("staff_id=$%d", len(args)))
	}
	if filter.ProductLine != nil {
		args = append(args, *filter.ProductLine)
		clauses = append(clauses, fmt.Sprintf("product_line=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("sale_date>=$%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("sale_date<=$%d", len(args)))
	}
	query += " WHERE " + strings.Join(clauses, " AND ")

	query += " ORDER BY sale_date DESC, created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	return r.scanSales(ctx, query, args)
}

func (r *saleRepository) ListForPeriod(ctx context.Context, agencyID string, staffID *string, from, to time.Time) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE agency_id=$1 AND sale_date>=$2 AND sale_date<=$3`
	args := []any{agencyID, from, to}
	if staffID != nil {
		args = append(args, *staffID)
		query += fmt.Sprintf(" AND staff_id=$%d", len(args))
	}
	query += " ORDER BY sale_date"

	return r.scanSales(ctx, query, args)
}

func (r *saleRepository) scanSales(ctx context.Context, query string, args []any) ([]domain.Sale, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Sale
	for rows.Next() {
		var s domain.Sale
		if err := rows.Scan(
			&s.ID,
			&s.AgencyID,
			&s.StaffID,
			&s.ClientName,
			&s.ProductLine,
			&s.PolicyCount,
			&s.Premium,
			&s.CommissionPct,
			&s.SaleDate,
			&s.Source,
			&s.Notes,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
