package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/storage"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
)

// casAttempts bounds how often a trigger re-reads an operation row after losing a race.
const casAttempts = 3

var ErrExportRunning = fmt.Errorf("export is already running: %w", apperrors.ErrConflict)

type clipsUC struct {
	cfg      *config.Config
	clipRepo clips.Repository
	store    storage.ObjectStore
	jobsUC   jobs.UseCase
	logger   logger.Logger
	now      func() time.Time
}

func NewClipsUseCase(cfg *config.Config, clipRepo clips.Repository, store storage.ObjectStore, jobsUC jobs.UseCase, log logger.Logger) clips.UseCase {
	return &clipsUC{
		cfg:      cfg,
		clipRepo: clipRepo,
		store:    store,
		jobsUC:   jobsUC,
		logger:   log,
		now:      time.Now,
	}
}

func (u *clipsUC) GetClip(ctx context.Context, policy *models.Policy, clipID uuid.UUID) (*models.Clip, error) {
	clip, err := u.clipRepo.GetClipByID(ctx, clipID)
	if err != nil {
		return nil, err
	}
	if clip.UserID != policy.UserID {
		return nil, apperrors.ErrNotFound
	}
	return clip, nil
}

func (u *clipsUC) ListClips(ctx context.Context, policy *models.Policy, videoID uuid.UUID) ([]*models.Clip, error) {
	list, err := u.clipRepo.GetClipsByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	owned := list[:0]
	for _, c := range list {
		if c.UserID == policy.UserID {
			owned = append(owned, c)
		}
	}
	return owned, nil
}

func (u *clipsUC) Generate(ctx context.Context, policy *models.Policy, clipID uuid.UUID) (*models.JobHandle, error) {
	clip, err := u.GetClip(ctx, policy, clipID)
	if err != nil {
		return nil, err
	}
	step, err := lifecycle.Clips.Transition(clip.Status, lifecycle.ClipGenerate)
	if err != nil {
		return nil, err
	}
	payload := &models.GenerateClipPayload{
		ClipID:    clip.ClipID,
		VideoID:   clip.VideoID,
		MediaKey:  models.MediaKey(clip.VideoID),
		StartSec:  clip.StartSec,
		EndSec:    clip.EndSec,
		OutputKey: models.ClipKey(clip.ClipID),
	}
	if !step.Changed() {
		return u.existingJob(ctx, payload, policy.Priority(), 0)
	}
	if _, err := u.clipRepo.TransitionStatus(ctx, clip.ClipID, step, nil, nil); err != nil {
		if errors.Is(err, clips.ErrStatusChanged) {
			return u.existingJob(ctx, payload, policy.Priority(), 0)
		}
		return nil, err
	}
	handle, err := u.jobsUC.AddJob(ctx, payload, policy.Priority(), 0)
	if err != nil {
		logger.FromContext(ctx, u.logger).Errorw("enqueue clip generation failed", "clip_id", clip.ClipID, "error", err)
		return nil, err
	}
	return handle, nil
}

// existingJob returns the live job for payload's key. A missing job means the
// previous enqueue never happened, so it is added now with the caller's delay;
// the key dedup keeps that safe.
func (u *clipsUC) existingJob(ctx context.Context, payload models.Payload, priority int, delay time.Duration) (*models.JobHandle, error) {
	snap, err := u.jobsUC.GetJob(ctx, payload.Operation(), payload.EntityID())
	if err == nil && snap.State.Live() {
		return &snap.JobHandle, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	return u.jobsUC.AddJob(ctx, payload, priority, delay)
}

func (u *clipsUC) currentOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType) (*models.ClipOperation, error) {
	row, err := u.clipRepo.GetOperation(ctx, clipID, op)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &models.ClipOperation{ClipID: clipID, Operation: op, Status: lifecycle.SubOpNotStarted}, nil
	}
	return row, err
}

func (u *clipsUC) TriggerOperation(ctx context.Context, policy *models.Policy, clipID uuid.UUID, op models.OperationType, input *models.TriggerOperationInput) (*models.TriggerResult, error) {
	if !models.SubOperations[op] {
		return nil, apperrors.NewValidation("operation", fmt.Sprintf("unknown operation %q", op))
	}
	if op == models.OpExport {
		return u.Export(ctx, policy, clipID, &models.ExportInput{})
	}
	if input == nil {
		input = &models.TriggerOperationInput{}
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	clip, err := u.GetClip(ctx, policy, clipID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.RequireFinished(clip.Status, string(op)); err != nil {
		return nil, err
	}
	mode := input.Mode
	if mode == "" {
		mode = "auto"
	}
	payload := &models.CropPayload{
		ClipID:      clip.ClipID,
		SourceKey:   clipSource(clip),
		OutputKey:   models.OperationResultKey(clip.ClipID, op),
		AspectRatio: input.AspectRatio,
		Mode:        mode,
	}
	return u.request(ctx, policy, payload, lifecycle.SubOpRequested, 0)
}

// request drives one sub-operation through event and enqueues payload when the
// operation moved to pending. Cached results and in-flight jobs are returned as is.
func (u *clipsUC) request(ctx context.Context, policy *models.Policy, payload models.Payload, event lifecycle.SubOpEvent, delay time.Duration) (*models.TriggerResult, error) {
	log := logger.FromContext(ctx, u.logger)
	clipID, op := payload.EntityID(), payload.Operation()

	for attempt := 0; attempt < casAttempts; attempt++ {
		cur, err := u.currentOperation(ctx, clipID, op)
		if err != nil {
			return nil, err
		}
		step, err := lifecycle.SubOps.Transition(cur.Status, event)
		if err != nil {
			return nil, err
		}
		result := &models.TriggerResult{ClipID: clipID, Operation: op, Status: step.To}

		switch {
		case lifecycle.HasResult(step.To):
			return u.cachedResult(ctx, result, cur)
		case !step.Changed():
			handle, err := u.existingJob(ctx, payload, policy.Priority(), delay)
			if err != nil {
				return nil, err
			}
			result.Job = handle
			return result, nil
		}

		if _, err := u.clipRepo.TransitionOperation(ctx, clipID, op, step, &models.OperationPatch{}); err != nil {
			if errors.Is(err, clips.ErrStatusChanged) {
				continue
			}
			return nil, err
		}
		handle, err := u.jobsUC.AddJob(ctx, payload, policy.Priority(), delay)
		if err != nil {
			log.Errorw("enqueue clip operation failed", "clip_id", clipID, "operation", op, "error", err)
			return nil, err
		}
		if err := u.clipRepo.SetOperationJob(ctx, clipID, op, handle.ID); err != nil {
			log.Warnw("record operation job id", "clip_id", clipID, "operation", op, "job_id", handle.ID, "error", err)
		}
		log.Infow("clip operation queued", "clip_id", clipID, "operation", op, "job_id", handle.ID, "delay", delay)
		result.Job = handle
		return result, nil
	}
	return nil, fmt.Errorf("failed to request %s on clip %s: %w", op, clipID, clips.ErrStatusChanged)
}

func (u *clipsUC) cachedResult(ctx context.Context, result *models.TriggerResult, row *models.ClipOperation) (*models.TriggerResult, error) {
	result.Cached = true
	if row.ResultKey == nil {
		return result, nil
	}
	result.ResultKey = *row.ResultKey
	url, err := u.store.PresignGetObject(ctx, u.cfg.S3.OutputBucket, *row.ResultKey, u.cfg.Upload.DownloadURLTTL)
	if err != nil {
		return nil, apperrors.Storage("presign operation result", err)
	}
	result.ResultURL = url
	return result, nil
}

func (u *clipsUC) Export(ctx context.Context, policy *models.Policy, clipID uuid.UUID, input *models.ExportInput) (*models.TriggerResult, error) {
	if input == nil {
		input = &models.ExportInput{}
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	clip, err := u.GetClip(ctx, policy, clipID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.RequireFinished(clip.Status, string(models.OpExport)); err != nil {
		return nil, err
	}
	return u.request(ctx, policy, exportPayload(clip, input.Format), lifecycle.SubOpRerun, 0)
}

func exportPayload(clip *models.Clip, format string) *models.ExportPayload {
	if format == "" {
		format = "mp4"
	}
	seq := clip.ExportCount + 1
	return &models.ExportPayload{
		ClipID:    clip.ClipID,
		SourceKey: clipSource(clip),
		OutputKey: models.ExportKey(clip.ClipID, seq, format),
		Format:    format,
		Sequence:  seq,
	}
}

func clipSource(clip *models.Clip) string {
	if clip.StorageKey != nil {
		return *clip.StorageKey
	}
	return models.ClipKey(clip.ClipID)
}

func (u *clipsUC) ScheduleExports(ctx context.Context, policy *models.Policy, input *models.ScheduleExportsInput) ([]models.ScheduledExport, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	if input.Interval < 0 {
		return nil, apperrors.NewValidation("interval", "must not be negative")
	}

	// Every clip is checked before anything is queued.
	list := make([]*models.Clip, 0, len(input.ClipIDs))
	seen := make(map[uuid.UUID]bool, len(input.ClipIDs))
	for _, id := range input.ClipIDs {
		if seen[id] {
			return nil, apperrors.NewValidation("clip_ids", fmt.Sprintf("clip %s listed twice", id))
		}
		seen[id] = true
		clip, err := u.GetClip(ctx, policy, id)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.RequireFinished(clip.Status, string(models.OpExport)); err != nil {
			return nil, err
		}
		list = append(list, clip)
	}

	now := u.now()
	out := make([]models.ScheduledExport, 0, len(list))
	for i, clip := range list {
		at := input.StartAt.Add(time.Duration(i) * time.Duration(input.Interval))
		res, err := u.request(ctx, policy, exportPayload(clip, input.Format), lifecycle.SubOpRerun, jobs.DelayUntil(at, now))
		if err != nil {
			return out, err
		}
		out = append(out, models.ScheduledExport{ClipID: clip.ClipID, ScheduledAt: at, Job: res.Job})
	}
	return out, nil
}

func (u *clipsUC) RescheduleExport(ctx context.Context, policy *models.Policy, clipID uuid.UUID, at time.Time) (*models.ScheduledExport, error) {
	clip, err := u.GetClip(ctx, policy, clipID)
	if err != nil {
		return nil, err
	}
	snap, err := u.jobsUC.GetJob(ctx, models.OpExport, clip.ClipID)
	if err != nil {
		return nil, err
	}
	if !snap.State.Live() {
		return nil, apperrors.ErrNotFound
	}
	if snap.State == models.JobActive {
		return nil, ErrExportRunning
	}
	payload, err := models.DecodePayload(snap.Payload)
	if err != nil {
		return nil, err
	}
	handle, err := u.jobsUC.RescheduleJob(ctx, payload, policy.Priority(), jobs.DelayUntil(at, u.now()))
	if err != nil {
		return nil, err
	}
	if err := u.clipRepo.SetOperationJob(ctx, clip.ClipID, models.OpExport, handle.ID); err != nil {
		logger.FromContext(ctx, u.logger).Warnw("record rescheduled job id", "clip_id", clip.ClipID, "job_id", handle.ID, "error", err)
	}
	return &models.ScheduledExport{ClipID: clip.ClipID, ScheduledAt: at, Job: handle}, nil
}

func (u *clipsUC) CancelOperation(ctx context.Context, policy *models.Policy, clipID uuid.UUID, op models.OperationType) (models.RemoveOutcome, error) {
	if !models.SubOperations[op] {
		return "", apperrors.NewValidation("operation", fmt.Sprintf("unknown operation %q", op))
	}
	clip, err := u.GetClip(ctx, policy, clipID)
	if err != nil {
		return "", err
	}
	outcome, err := u.jobsUC.RemoveJob(ctx, op, clip.ClipID)
	if err != nil {
		return "", err
	}
	if outcome == models.RemovedQueued {
		if err := u.FailOperation(ctx, clip.ClipID, op, "cancelled"); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (u *clipsUC) CompleteGeneration(ctx context.Context, clipID uuid.UUID, storageKey string) error {
	clip, err := u.clipRepo.GetClipByID(ctx, clipID)
	if err != nil {
		return err
	}
	step, err := lifecycle.Clips.Transition(clip.Status, lifecycle.ClipGenerated)
	if err != nil {
		return err
	}
	_, err = u.clipRepo.TransitionStatus(ctx, clipID, step, &storageKey, nil)
	return err
}

func (u *clipsUC) FailGeneration(ctx context.Context, clipID uuid.UUID, reason string) error {
	clip, err := u.clipRepo.GetClipByID(ctx, clipID)
	if err != nil {
		return err
	}
	step, err := lifecycle.Clips.Transition(clip.Status, lifecycle.ClipFailedEvent)
	if err != nil {
		return err
	}
	_, err = u.clipRepo.TransitionStatus(ctx, clipID, step, nil, &reason)
	return err
}

func (u *clipsUC) StartOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType) error {
	return u.moveOperation(ctx, clipID, op, lifecycle.SubOpStarted, &models.OperationPatch{})
}

func (u *clipsUC) CompleteOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType, resultKey string) error {
	if err := u.moveOperation(ctx, clipID, op, lifecycle.SubOpSucceeded, &models.OperationPatch{ResultKey: &resultKey}); err != nil {
		return err
	}
	if op != models.OpExport {
		return nil
	}
	clip, err := u.clipRepo.GetClipByID(ctx, clipID)
	if err != nil {
		return err
	}
	step, err := lifecycle.Clips.Transition(clip.Status, lifecycle.ClipExport)
	if err != nil {
		return err
	}
	_, err = u.clipRepo.RecordExport(ctx, clipID, step)
	return err
}

func (u *clipsUC) FailOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType, reason string) error {
	return u.moveOperation(ctx, clipID, op, lifecycle.SubOpFailedEvent, &models.OperationPatch{ErrorMessage: &reason})
}

func (u *clipsUC) moveOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType, event lifecycle.SubOpEvent, patch *models.OperationPatch) error {
	cur, err := u.currentOperation(ctx, clipID, op)
	if err != nil {
		return err
	}
	step, err := lifecycle.SubOps.Transition(cur.Status, event)
	if err != nil {
		return err
	}
	_, err = u.clipRepo.TransitionOperation(ctx, clipID, op, step, patch)
	return err
}
