package domain

import (
	"time"

	"github.com/google/uuid"
)

// ViolationRecord representa uma violação arquivada pelo relay
type ViolationRecord struct {
	ID         uuid.UUID `json:"id"`
	TestID     string    `json:"test_id"`
	Kind       string    `json:"kind"`
	Severity   string    `json:"severity"`
	Confidence float64   `json:"confidence"`
	Message    string    `json:"message"`
	Source     string    `json:"source"`
	Degraded   bool      `json:"degraded"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
