package runerrors

import (
	"context"
)

// Repository defines persistence for run errors
type Repository interface {
	Save(ctx context.Context, e *RunError) error
	ListByReport(ctx context.Context, reportID string, limit int) ([]*RunError, error)
}
