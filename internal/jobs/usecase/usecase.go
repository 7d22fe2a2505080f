package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/google/uuid"
)

// ErrJobRunning is returned when a reschedule targets a job a worker already holds.
var ErrJobRunning = fmt.Errorf("job is already running: %w", apperrors.ErrConflict)

const maxPriority = 10

type jobsUC struct {
	cfg    *config.Config
	queue  jobs.Queue
	logger logger.Logger
}

func NewJobsUseCase(cfg *config.Config, queue jobs.Queue, log logger.Logger) jobs.UseCase {
	return &jobsUC{cfg: cfg, queue: queue, logger: log}
}

func (u *jobsUC) AddJob(ctx context.Context, payload models.Payload, priority int, delay time.Duration) (*models.JobHandle, error) {
	raw, err := models.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	key := models.JobKey(payload.Operation(), payload.EntityID())
	handle, err := u.queue.Add(ctx, models.NewJob{
		ID:        uuid.NewString(),
		Key:       key,
		Operation: payload.Operation(),
		EntityID:  payload.EntityID(),
		Payload:   raw,
		Priority:  clampPriority(priority),
		Delay:     maxDuration(delay, 0),
	})
	log := logger.FromContext(ctx, u.logger)
	if err != nil {
		log.Errorw("enqueue failed", "job_key", key, "error", err)
		return nil, apperrors.Queue("add job", err)
	}
	if handle.Created {
		log.Infow("job enqueued", "job_key", key, "job_id", handle.ID, "priority", handle.Priority, "state", handle.State)
	} else {
		log.Debugf("job %s already %s as %s, reusing it", key, handle.State, handle.ID)
	}
	return handle, nil
}

func (u *jobsUC) GetJob(ctx context.Context, op models.OperationType, entityID uuid.UUID) (*models.JobSnapshot, error) {
	snap, err := u.queue.Get(ctx, models.JobKey(op, entityID))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.Queue("get job", err)
	}
	return snap, nil
}

func (u *jobsUC) RemoveJob(ctx context.Context, op models.OperationType, entityID uuid.UUID) (models.RemoveOutcome, error) {
	key := models.JobKey(op, entityID)
	outcome, err := u.queue.Remove(ctx, key)
	if err != nil {
		logger.FromContext(ctx, u.logger).Errorw("job removal failed", "job_key", key, "error", err)
		return "", apperrors.Queue("remove job", err)
	}
	if outcome == models.RemoveFlaggedActive {
		logger.FromContext(ctx, u.logger).Warnw("job is running, flagged for cancellation", "job_key", key)
	}
	return outcome, nil
}

func (u *jobsUC) RescheduleJob(ctx context.Context, payload models.Payload, priority int, delay time.Duration) (*models.JobHandle, error) {
	outcome, err := u.RemoveJob(ctx, payload.Operation(), payload.EntityID())
	if err != nil {
		return nil, err
	}
	if outcome == models.RemoveFlaggedActive {
		return nil, ErrJobRunning
	}
	return u.AddJob(ctx, payload, priority, delay)
}

func (u *jobsUC) ClaimJob(ctx context.Context) (*models.JobSnapshot, error) {
	snap, err := u.queue.Claim(ctx, u.cfg.Queue.Lease)
	if err != nil {
		return nil, apperrors.Queue("claim job", err)
	}
	return snap, nil
}

func (u *jobsUC) ReportProgress(ctx context.Context, job *models.JobSnapshot, progress float64) (bool, error) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	cancel, err := u.queue.Progress(ctx, job.Claim(), progress, u.cfg.Queue.Lease)
	if errors.Is(err, jobs.ErrLeaseLost) {
		return false, err
	}
	if err != nil {
		return false, apperrors.Queue("report progress", err)
	}
	job.Progress = progress
	return cancel, nil
}

func (u *jobsUC) CompleteJob(ctx context.Context, job *models.JobSnapshot) error {
	if err := u.queue.Complete(ctx, job.Claim()); err != nil {
		if errors.Is(err, jobs.ErrLeaseLost) {
			return err
		}
		return apperrors.Queue("complete job", err)
	}
	return nil
}

func (u *jobsUC) FailJob(ctx context.Context, job *models.JobSnapshot, reason string) error {
	if err := u.queue.Fail(ctx, job.Claim(), reason); err != nil {
		if errors.Is(err, jobs.ErrLeaseLost) {
			return err
		}
		return apperrors.Queue("fail job", err)
	}
	return nil
}

func clampPriority(p int) int {
	switch {
	case p < models.HighestPriority:
		return models.DefaultPriority
	case p > maxPriority:
		return maxPriority
	default:
		return p
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
