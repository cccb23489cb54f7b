package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/examtrace/vigil/internal/domain"
)

// PgxPool is the slice of pgxpool.Pool the repositories use. pgxmock's
// pool implements it, so tests run without a database.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ViolationRepositoryInterface defines operations for the violations archive
type ViolationRepositoryInterface interface {
	Create(ctx context.Context, record *domain.ViolationRecord) error
	ListByTest(ctx context.Context, testID string, limit int) ([]domain.ViolationRecord, error)
	CountBySeverity(ctx context.Context, testID string) (map[string]int, error)
}

var _ ViolationRepositoryInterface = (*ViolationRepository)(nil)
