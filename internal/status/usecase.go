package status

import (
	"context"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/google/uuid"
)

// UseCase answers polling clients by merging the persisted entity with its live
// job. The merged status never ranks below the persisted one.
type UseCase interface {
	GetVideoStatus(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.VideoStatusView, error)
	GetClipStatus(ctx context.Context, policy *models.Policy, clipID uuid.UUID) (*models.ClipStatusView, error)
	GetOperationStatus(ctx context.Context, policy *models.Policy, clipID uuid.UUID, op models.OperationType) (*models.OperationStatusView, error)
}
