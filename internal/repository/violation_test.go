package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/vigil/internal/domain"
)

func TestViolationRepository_Create(t *testing.T) {
	now := time.Now()
	occurred := now.Add(-2 * time.Second)

	tests := []struct {
		name      string
		record    *domain.ViolationRecord
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "successful insert",
			record: &domain.ViolationRecord{
				TestID:     "test-1",
				Kind:       domain.KindTabSwitch,
				Severity:   domain.SeverityHigh,
				Confidence: 1,
				Message:    "exam tab hidden",
				Source:     domain.SourcePrimary,
				OccurredAt: occurred,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"created_at"}).AddRow(now)
				mock.ExpectQuery(`INSERT INTO violations`).
					WithArgs(pgxmock.AnyArg(), "test-1", domain.KindTabSwitch, domain.SeverityHigh,
						float64(1), "exam tab hidden", domain.SourcePrimary, false, occurred).
					WillReturnRows(rows)
			},
		},
		{
			name: "database error",
			record: &domain.ViolationRecord{
				TestID:     "test-1",
				Kind:       domain.KindNoFace,
				Severity:   domain.SeverityHigh,
				OccurredAt: occurred,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO violations`).
					WithArgs(pgxmock.AnyArg(), "test-1", domain.KindNoFace, domain.SeverityHigh,
						float64(0), "", "", false, occurred).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewViolationRepository(mock)
			err = repo.Create(context.Background(), tt.record)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "create violation")
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, tt.record.ID, "missing id must be generated")
				assert.Equal(t, now, tt.record.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestViolationRepository_Create_KeepsProvidedID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	occurred := time.Now()
	mock.ExpectQuery(`INSERT INTO violations`).
		WithArgs(id, "test-1", domain.KindGazeViolation, domain.SeverityMedium,
			0.7, "sustained low attention", domain.SourcePrimary, true, occurred).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	repo := NewViolationRepository(mock)
	record := &domain.ViolationRecord{
		ID:         id,
		TestID:     "test-1",
		Kind:       domain.KindGazeViolation,
		Severity:   domain.SeverityMedium,
		Confidence: 0.7,
		Message:    "sustained low attention",
		Source:     domain.SourcePrimary,
		Degraded:   true,
		OccurredAt: occurred,
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, id, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViolationRepository_ListByTest(t *testing.T) {
	now := time.Now()
	firstID, secondID := uuid.New(), uuid.New()

	listQuery := `SELECT id, test_id, kind, severity, confidence, message, source, degraded, occurred_at, created_at FROM violations WHERE test_id = \$1 ORDER BY occurred_at DESC LIMIT \$2`

	t.Run("returns rows newest first", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"id", "test_id", "kind", "severity", "confidence", "message", "source", "degraded", "occurred_at", "created_at",
		}).AddRow(
			firstID, "test-1", domain.KindMultipleFaces, domain.SeverityCritical, 0.92, "two faces in frame", domain.SourcePrimary, false, now, now,
		).AddRow(
			secondID, "test-1", domain.KindHandsNotVisible, domain.SeverityMedium, 0.6, "hands left the workspace", domain.SourceSecondary, false, now.Add(-time.Minute), now,
		)

		mock.ExpectQuery(listQuery).WithArgs("test-1", 10).WillReturnRows(rows)

		repo := NewViolationRepository(mock)
		got, err := repo.ListByTest(context.Background(), "test-1", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, firstID, got[0].ID)
		assert.Equal(t, domain.KindMultipleFaces, got[0].Kind)
		assert.Equal(t, domain.SourceSecondary, got[1].Source)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive limit uses the default", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(listQuery).WithArgs("test-1", defaultListLimit).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "test_id", "kind", "severity", "confidence", "message", "source", "degraded", "occurred_at", "created_at",
			}))

		repo := NewViolationRepository(mock)
		got, err := repo.ListByTest(context.Background(), "test-1", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("oversized limit is capped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(listQuery).WithArgs("test-1", maxListLimit).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "test_id", "kind", "severity", "confidence", "message", "source", "degraded", "occurred_at", "created_at",
			}))

		repo := NewViolationRepository(mock)
		_, err = repo.ListByTest(context.Background(), "test-1", 10000)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestViolationRepository_CountBySeverity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"severity", "count"}).
		AddRow(domain.SeverityHigh, 4).
		AddRow(domain.SeverityMedium, 2)

	mock.ExpectQuery(`SELECT severity, COUNT\(\*\) FROM violations WHERE test_id = \$1 GROUP BY severity`).
		WithArgs("test-1").
		WillReturnRows(rows)

	repo := NewViolationRepository(mock)
	counts, err := repo.CountBySeverity(context.Background(), "test-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		domain.SeverityHigh:   4,
		domain.SeverityMedium: 2,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
