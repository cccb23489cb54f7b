//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/examtrace/vigil/internal/domain"
)

// setupViolationsDB sobe um Postgres descartável e aplica o schema mínimo.
func setupViolationsDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "vigil_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/vigil_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE violations (
			id UUID PRIMARY KEY,
			test_id VARCHAR(255) NOT NULL,
			kind VARCHAR(64) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			source VARCHAR(16) NOT NULL DEFAULT 'primary',
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			occurred_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return pool, cleanup
}

func TestViolationRepository_Integration(t *testing.T) {
	pool, cleanup := setupViolationsDB(t)
	defer cleanup()

	repo := NewViolationRepository(pool)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	records := []*domain.ViolationRecord{
		{TestID: "exam-1", Kind: domain.KindNoFace, Severity: domain.SeverityHigh, Confidence: 0.9, Message: "no face detected", Source: domain.SourcePrimary, OccurredAt: base.Add(-2 * time.Minute)},
		{TestID: "exam-1", Kind: domain.KindTabSwitch, Severity: domain.SeverityHigh, Confidence: 1, Message: "exam tab hidden", Source: domain.SourcePrimary, OccurredAt: base.Add(-time.Minute)},
		{TestID: "exam-1", Kind: domain.KindHandsNotVisible, Severity: domain.SeverityMedium, Confidence: 0.6, Message: "hands left the workspace", Source: domain.SourceSecondary, Degraded: true, OccurredAt: base},
		{TestID: "exam-2", Kind: domain.KindMultipleFaces, Severity: domain.SeverityCritical, Confidence: 0.95, Message: "two faces in frame", Source: domain.SourcePrimary, OccurredAt: base},
	}
	for _, rec := range records {
		require.NoError(t, repo.Create(ctx, rec))
		assert.False(t, rec.CreatedAt.IsZero(), "Create must backfill created_at")
	}

	t.Run("list newest first", func(t *testing.T) {
		got, err := repo.ListByTest(ctx, "exam-1", 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, domain.KindHandsNotVisible, got[0].Kind)
		assert.Equal(t, domain.KindTabSwitch, got[1].Kind)
		assert.Equal(t, domain.KindNoFace, got[2].Kind)
		assert.True(t, got[0].Degraded)
	})

	t.Run("limit is honored", func(t *testing.T) {
		got, err := repo.ListByTest(ctx, "exam-1", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.KindHandsNotVisible, got[0].Kind)
	})

	t.Run("unknown test is empty", func(t *testing.T) {
		got, err := repo.ListByTest(ctx, "nope", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("count by severity", func(t *testing.T) {
		counts, err := repo.CountBySeverity(ctx, "exam-1")
		require.NoError(t, err)
		assert.Equal(t, map[string]int{
			domain.SeverityHigh:   2,
			domain.SeverityMedium: 1,
		}, counts)
	})
}
