package storage

import (
	"context"

	"ammEngine/internal/model"
)

// Journal is a sink for committed operations.
type Journal interface {
	PutOperations(ctx context.Context, ops []model.Operation) error
}
