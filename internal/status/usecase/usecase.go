package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/status"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/google/uuid"
)

type statusUC struct {
	videoRepo videofiles.Repository
	clipRepo  clips.Repository
	jobsUC    jobs.UseCase
	logger    logger.Logger
}

func NewStatusUseCase(videoRepo videofiles.Repository, clipRepo clips.Repository, jobsUC jobs.UseCase, log logger.Logger) status.UseCase {
	return &statusUC{
		videoRepo: videoRepo,
		clipRepo:  clipRepo,
		jobsUC:    jobsUC,
		logger:    log,
	}
}

// lookup returns the job for (op, id), or nil when there is none or the queue
// cannot answer. A finished job older than since belongs to an earlier run.
func (u *statusUC) lookup(ctx context.Context, op models.OperationType, id uuid.UUID, since time.Time) *models.JobSnapshot {
	snap, err := u.jobsUC.GetJob(ctx, op, id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.FromContext(ctx, u.logger).Warnw("status falls back to entity", "job_key", models.JobKey(op, id), "error", err)
		}
		return nil
	}
	if !snap.State.Live() && snap.FinishedAt != nil && snap.FinishedAt.Before(since) {
		return nil
	}
	return snap
}

func (u *statusUC) GetVideoStatus(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.VideoStatusView, error) {
	video, err := u.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.UserID != policy.UserID {
		return nil, apperrors.ErrNotFound
	}
	view := &models.VideoStatusView{
		VideoID:         video.VideoID,
		Status:          video.Status,
		PersistedStatus: video.Status,
		Source:          models.SourceEntity,
		UpdatedAt:       video.UpdatedAt,
	}
	if video.ErrorMessage != nil {
		view.ErrorMessage = *video.ErrorMessage
	}
	if video.Status == lifecycle.VideoCompleted {
		view.Progress = 100
	}

	op, ok := models.StageOperation(video.Status)
	if !ok {
		return view, nil
	}
	snap := u.lookup(ctx, op, video.VideoID, video.UpdatedAt)
	if snap == nil {
		return view, nil
	}
	view.Job = snap
	view.Source = models.SourceQueue
	view.Progress = snap.Progress
	if snap.State == models.JobFailed {
		view.Status = lifecycle.Videos.Latest(video.Status, lifecycle.VideoFailed)
		if view.ErrorMessage == "" {
			view.ErrorMessage = snap.Error
		}
	}
	return view, nil
}

func (u *statusUC) GetClipStatus(ctx context.Context, policy *models.Policy, clipID uuid.UUID) (*models.ClipStatusView, error) {
	clip, err := u.ownedClip(ctx, policy, clipID)
	if err != nil {
		return nil, err
	}
	view := &models.ClipStatusView{
		ClipID:          clip.ClipID,
		Status:          clip.Status,
		PersistedStatus: clip.Status,
		Source:          models.SourceEntity,
		ExportCount:     clip.ExportCount,
		Operations:      []models.OperationStatusView{},
	}
	if lifecycle.Exportable(clip.Status) {
		view.Progress = 100
	}
	if clip.Status == lifecycle.ClipGenerating {
		if snap := u.lookup(ctx, models.OpGenerateClip, clip.ClipID, clip.UpdatedAt); snap != nil {
			view.Job = snap
			view.Source = models.SourceQueue
			view.Progress = snap.Progress
			if snap.State == models.JobFailed {
				view.Status = lifecycle.Clips.Latest(clip.Status, lifecycle.ClipFailed)
			}
		}
	}

	ops, err := u.clipRepo.ListOperations(ctx, clip.ClipID)
	if err != nil {
		return nil, err
	}
	for _, row := range ops {
		view.Operations = append(view.Operations, *u.reconcileOperation(ctx, row))
	}
	return view, nil
}

func (u *statusUC) GetOperationStatus(ctx context.Context, policy *models.Policy, clipID uuid.UUID, op models.OperationType) (*models.OperationStatusView, error) {
	if !models.SubOperations[op] {
		return nil, apperrors.NewValidation("operation", "unknown operation")
	}
	clip, err := u.ownedClip(ctx, policy, clipID)
	if err != nil {
		return nil, err
	}
	row, err := u.clipRepo.GetOperation(ctx, clip.ClipID, op)
	if errors.Is(err, apperrors.ErrNotFound) {
		row = &models.ClipOperation{ClipID: clip.ClipID, Operation: op, Status: lifecycle.SubOpNotStarted}
	} else if err != nil {
		return nil, err
	}
	return u.reconcileOperation(ctx, row), nil
}

func (u *statusUC) ownedClip(ctx context.Context, policy *models.Policy, clipID uuid.UUID) (*models.Clip, error) {
	clip, err := u.clipRepo.GetClipByID(ctx, clipID)
	if err != nil {
		return nil, err
	}
	if clip.UserID != policy.UserID {
		return nil, apperrors.ErrNotFound
	}
	return clip, nil
}

func (u *statusUC) reconcileOperation(ctx context.Context, row *models.ClipOperation) *models.OperationStatusView {
	view := &models.OperationStatusView{
		ClipID:          row.ClipID,
		Operation:       row.Operation,
		Status:          row.Status,
		PersistedStatus: row.Status,
		Source:          models.SourceEntity,
	}
	if row.ResultKey != nil {
		view.ResultKey = *row.ResultKey
	}
	if row.ErrorMessage != nil {
		view.ErrorMessage = *row.ErrorMessage
	}
	if lifecycle.HasResult(row.Status) {
		view.Progress = 100
	}
	if row.Status == lifecycle.SubOpNotStarted {
		return view
	}

	snap := u.lookup(ctx, row.Operation, row.ClipID, row.UpdatedAt)
	if snap == nil || (row.JobID != nil && *row.JobID != snap.ID) {
		return view
	}
	view.Job = snap
	view.Source = models.SourceQueue
	view.Progress = snap.Progress
	view.Status = lifecycle.SubOps.Latest(row.Status, QueueSubOpStatus(snap.State))
	if snap.State == models.JobFailed && view.ErrorMessage == "" {
		view.ErrorMessage = snap.Error
	}
	return view
}

// QueueSubOpStatus is the sub-operation status a job state implies.
func QueueSubOpStatus(s models.JobState) lifecycle.SubOpStatus {
	switch s {
	case models.JobWaiting, models.JobDelayed:
		return lifecycle.SubOpPending
	case models.JobActive:
		return lifecycle.SubOpProcessing
	case models.JobCompleted:
		return lifecycle.SubOpDone
	case models.JobFailed:
		return lifecycle.SubOpFailed
	default:
		return lifecycle.SubOpNotStarted
	}
}
