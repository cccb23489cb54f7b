package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/examtrace/vigil/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ViolationRepository archives violations reported by proctoring agents.
type ViolationRepository struct {
	pool PgxPool
}

func NewViolationRepository(pool PgxPool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

func (r *ViolationRepository) Create(ctx context.Context, record *domain.ViolationRecord) error {
	query := `
		INSERT INTO violations (id, test_id, kind, severity, confidence, message, source, degraded, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		record.ID,
		record.TestID,
		record.Kind,
		record.Severity,
		record.Confidence,
		record.Message,
		record.Source,
		record.Degraded,
		record.OccurredAt,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("create violation: %w", err)
	}

	return nil
}

// ListByTest returns the most recent violations of one exam run, newest
// first. A non-positive limit falls back to the default.
func (r *ViolationRepository) ListByTest(ctx context.Context, testID string, limit int) ([]domain.ViolationRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, test_id, kind, severity, confidence, message, source, degraded, occurred_at, created_at
		FROM violations
		WHERE test_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, testID, limit)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var records []domain.ViolationRecord
	for rows.Next() {
		var rec domain.ViolationRecord
		err := rows.Scan(
			&rec.ID,
			&rec.TestID,
			&rec.Kind,
			&rec.Severity,
			&rec.Confidence,
			&rec.Message,
			&rec.Source,
			&rec.Degraded,
			&rec.OccurredAt,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}

	return records, nil
}

// CountBySeverity aggregates one exam run's violations per severity.
func (r *ViolationRepository) CountBySeverity(ctx context.Context, testID string) (map[string]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM violations
		WHERE test_id = $1
		GROUP BY severity
	`

	rows, err := r.pool.Query(ctx, query, testID)
	if err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate severity counts: %w", err)
	}

	return counts, nil
}
