package repository

import (
	"context"

	"github.com/sakif/cpp-engine/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// RunRepository stores the history of compile/execute requests.
type RunRepository interface {
	Create(ctx context.Context, run *model.RunRecord) error
	GetByID(ctx context.Context, id string) (*model.RunRecord, error)
	List(ctx context.Context, opts ListOptions) ([]model.RunRecord, error)
}
