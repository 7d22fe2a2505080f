package jobs

import (
	"context"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/google/uuid"
)

// UseCase is the processing job dispatcher.
type UseCase interface {
	AddJob(ctx context.Context, payload models.Payload, priority int, delay time.Duration) (*models.JobHandle, error)
	GetJob(ctx context.Context, op models.OperationType, entityID uuid.UUID) (*models.JobSnapshot, error)
	// RemoveJob never blocks on a running job: an active job is only flagged and
	// the entity's persisted status stays authoritative.
	RemoveJob(ctx context.Context, op models.OperationType, entityID uuid.UUID) (models.RemoveOutcome, error)
	// RescheduleJob removes the queued job then adds payload again with the new delay.
	RescheduleJob(ctx context.Context, payload models.Payload, priority int, delay time.Duration) (*models.JobHandle, error)

	ClaimJob(ctx context.Context) (*models.JobSnapshot, error)
	ReportProgress(ctx context.Context, job *models.JobSnapshot, progress float64) (cancelRequested bool, err error)
	CompleteJob(ctx context.Context, job *models.JobSnapshot) error
	FailJob(ctx context.Context, job *models.JobSnapshot, reason string) error
}

// DelayUntil converts a target time into a non-negative delay.
func DelayUntil(target, now time.Time) time.Duration {
	if d := target.Sub(now); d > 0 {
		return d
	}
	return 0
}
