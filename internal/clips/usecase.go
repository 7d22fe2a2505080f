package clips

import (
	"context"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/google/uuid"
)

type UseCase interface {
	GetClip(ctx context.Context, policy *models.Policy, clipID uuid.UUID) (*models.Clip, error)
	ListClips(ctx context.Context, policy *models.Policy, videoID uuid.UUID) ([]*models.Clip, error)

	Generate(ctx context.Context, policy *models.Policy, clipID uuid.UUID) (*models.JobHandle, error)
	// TriggerOperation is idempotent: a done operation returns its stored result,
	// a queued or running one returns the existing job handle.
	TriggerOperation(ctx context.Context, policy *models.Policy, clipID uuid.UUID, op models.OperationType, input *models.TriggerOperationInput) (*models.TriggerResult, error)
	Export(ctx context.Context, policy *models.Policy, clipID uuid.UUID, input *models.ExportInput) (*models.TriggerResult, error)
	ScheduleExports(ctx context.Context, policy *models.Policy, input *models.ScheduleExportsInput) ([]models.ScheduledExport, error)
	RescheduleExport(ctx context.Context, policy *models.Policy, clipID uuid.UUID, at time.Time) (*models.ScheduledExport, error)
	CancelOperation(ctx context.Context, policy *models.Policy, clipID uuid.UUID, op models.OperationType) (models.RemoveOutcome, error)

	// Worker callbacks.
	CompleteGeneration(ctx context.Context, clipID uuid.UUID, storageKey string) error
	FailGeneration(ctx context.Context, clipID uuid.UUID, reason string) error
	StartOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType) error
	CompleteOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType, resultKey string) error
	FailOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType, reason string) error
}
