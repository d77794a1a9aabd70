package service

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxBeginner opens database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
