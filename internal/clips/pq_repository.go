package clips

import (
	"context"
	"errors"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/google/uuid"
)

// ErrStatusChanged means a compare-and-set transition lost to a concurrent writer.
var ErrStatusChanged = errors.New("clip status changed concurrently")

type Repository interface {
	GetClipByID(ctx context.Context, clipID uuid.UUID) (*models.Clip, error)
	GetClipsByVideoID(ctx context.Context, videoID uuid.UUID) ([]*models.Clip, error)
	TransitionStatus(ctx context.Context, clipID uuid.UUID, step lifecycle.Step[lifecycle.ClipStatus], storageKey, errMsg *string) (*models.Clip, error)
	// RecordExport applies step and increments export_count in one statement.
	RecordExport(ctx context.Context, clipID uuid.UUID, step lifecycle.Step[lifecycle.ClipStatus]) (*models.Clip, error)

	// GetOperation returns apperrors.ErrNotFound for an operation never requested.
	GetOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType) (*models.ClipOperation, error)
	ListOperations(ctx context.Context, clipID uuid.UUID) ([]*models.ClipOperation, error)
	// TransitionOperation upserts the operation row if it is still in step.From.
	TransitionOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType, step lifecycle.Step[lifecycle.SubOpStatus], patch *models.OperationPatch) (*models.ClipOperation, error)
	SetOperationJob(ctx context.Context, clipID uuid.UUID, op models.OperationType, jobID string) error
}
