package worker

import (
	"context"
	"errors"

	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/media"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/google/uuid"
)

// stageHandler runs each payload through the media executor and feeds the
// outcome back into the entity usecases.
type stageHandler struct {
	cfg     *config.Config
	videoUC videofiles.UseCase
	clipsUC clips.UseCase
	jobsUC  jobs.UseCase
	exec    media.Executor
	logger  logger.Logger
}

func NewStageHandler(cfg *config.Config, videoUC videofiles.UseCase, clipsUC clips.UseCase, jobsUC jobs.UseCase, exec media.Executor, log logger.Logger) models.PayloadHandler {
	return &stageHandler{
		cfg:     cfg,
		videoUC: videoUC,
		clipsUC: clipsUC,
		jobsUC:  jobsUC,
		exec:    exec,
		logger:  log,
	}
}

func (h *stageHandler) run(ctx context.Context, job *models.JobSnapshot, payload models.Payload) (*media.Result, error) {
	progress := func(pct float64) error {
		cancel, err := h.jobsUC.ReportProgress(ctx, job, pct)
		if err != nil {
			return err
		}
		if cancel {
			return media.ErrCancelled
		}
		return nil
	}
	// Picks up a cancel that landed between claim and start.
	if err := progress(0); err != nil {
		return nil, err
	}
	return h.exec.Execute(ctx, &media.Request{
		Operation:    payload.Operation(),
		JobID:        job.ID,
		Attempt:      job.Attempts,
		InputBucket:  h.cfg.S3.InputBucket,
		OutputBucket: h.cfg.S3.OutputBucket,
		Payload:      payload,
	}, progress)
}

// recordable reports whether a run error should be written to the entity.
// Lease loss means another worker owns the job; a transition error or a
// missing row means the entity already moved on.
func recordable(err error) bool {
	var transitionErr *lifecycle.TransitionError
	return !errors.Is(err, jobs.ErrLeaseLost) &&
		!errors.As(err, &transitionErr) &&
		!errors.Is(err, apperrors.ErrNotFound)
}

func reason(err error) string {
	if errors.Is(err, media.ErrCancelled) {
		return "cancelled"
	}
	return err.Error()
}

func (h *stageHandler) failVideo(ctx context.Context, videoID uuid.UUID, err error) error {
	if recordable(err) {
		if ferr := h.videoUC.Fail(ctx, videoID, reason(err)); ferr != nil {
			logger.FromContext(ctx, h.logger).Warnw("failed to record video failure", "video_id", videoID, "error", ferr)
		}
	}
	return err
}

func (h *stageHandler) HandleProbe(ctx context.Context, job *models.JobSnapshot, p *models.ProbePayload) error {
	res, err := h.run(ctx, job, p)
	if err != nil {
		return h.failVideo(ctx, p.VideoID, err)
	}
	if err := h.videoUC.RecordProbe(ctx, p.VideoID, res.Probe); err != nil {
		return h.failVideo(ctx, p.VideoID, err)
	}
	return nil
}

func (h *stageHandler) HandleDownload(ctx context.Context, job *models.JobSnapshot, p *models.DownloadPayload) error {
	return h.advance(ctx, job, p, p.VideoID, lifecycle.VideoDownloaded)
}

func (h *stageHandler) HandleTranscribe(ctx context.Context, job *models.JobSnapshot, p *models.TranscribePayload) error {
	return h.advance(ctx, job, p, p.VideoID, lifecycle.VideoTranscribed)
}

func (h *stageHandler) advance(ctx context.Context, job *models.JobSnapshot, p models.Payload, videoID uuid.UUID, event lifecycle.VideoEvent) error {
	if _, err := h.run(ctx, job, p); err != nil {
		return h.failVideo(ctx, videoID, err)
	}
	next, err := h.videoUC.AdvanceStage(ctx, videoID, event, job.Priority)
	if err != nil {
		var upstream *apperrors.UpstreamError
		if errors.As(err, &upstream) {
			// The stage is persisted; a later Configure or retry re-queues the next one.
			return err
		}
		return h.failVideo(ctx, videoID, err)
	}
	logger.FromContext(ctx, h.logger).Infow("queued next stage", "next_job", next.Key, "created", next.Created)
	return nil
}

func (h *stageHandler) HandleAnalyze(ctx context.Context, job *models.JobSnapshot, p *models.AnalyzePayload) error {
	res, err := h.run(ctx, job, p)
	if err != nil {
		return h.failVideo(ctx, p.VideoID, err)
	}
	video, err := h.videoUC.CompleteAnalysis(ctx, p.VideoID, res.Clips)
	if err != nil {
		return h.failVideo(ctx, p.VideoID, err)
	}
	logger.FromContext(ctx, h.logger).Infow("analysis stored", "video_id", video.VideoID, "clips", len(res.Clips))
	return nil
}

func (h *stageHandler) HandleGenerateClip(ctx context.Context, job *models.JobSnapshot, p *models.GenerateClipPayload) error {
	res, err := h.run(ctx, job, p)
	if err == nil {
		key := res.OutputKey
		if key == "" {
			key = p.OutputKey
		}
		err = h.clipsUC.CompleteGeneration(ctx, p.ClipID, key)
	}
	if err != nil && recordable(err) {
		if ferr := h.clipsUC.FailGeneration(ctx, p.ClipID, reason(err)); ferr != nil {
			logger.FromContext(ctx, h.logger).Warnw("failed to record clip failure", "clip_id", p.ClipID, "error", ferr)
		}
	}
	return err
}

func (h *stageHandler) HandleCrop(ctx context.Context, job *models.JobSnapshot, p *models.CropPayload) error {
	return h.subOperation(ctx, job, p, p.ClipID, p.OutputKey)
}

func (h *stageHandler) HandleExport(ctx context.Context, job *models.JobSnapshot, p *models.ExportPayload) error {
	return h.subOperation(ctx, job, p, p.ClipID, p.OutputKey)
}

func (h *stageHandler) subOperation(ctx context.Context, job *models.JobSnapshot, p models.Payload, clipID uuid.UUID, outputKey string) error {
	op := p.Operation()
	if err := h.clipsUC.StartOperation(ctx, clipID, op); err != nil {
		return err
	}
	res, err := h.run(ctx, job, p)
	if err == nil {
		key := res.OutputKey
		if key == "" {
			key = outputKey
		}
		err = h.clipsUC.CompleteOperation(ctx, clipID, op, key)
	}
	if err != nil && recordable(err) {
		if ferr := h.clipsUC.FailOperation(ctx, clipID, op, reason(err)); ferr != nil {
			logger.FromContext(ctx, h.logger).Warnw("failed to record operation failure", "clip_id", clipID, "operation", op, "error", ferr)
		}
	}
	return err
}
