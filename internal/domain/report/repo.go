package report

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, limit, offset int) ([]*Report, int, error)
	ListByRisk(ctx context.Context, riskLevel string, limit, offset int) ([]*Report, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
