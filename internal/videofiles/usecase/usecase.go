package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/storage"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// deleteConcurrency bounds the blob delete fan-out of a cascade.
const deleteConcurrency = 8

var ErrNotUploaded = fmt.Errorf("video has no stored source yet: %w", apperrors.ErrConflict)

type videoFileUC struct {
	cfg       *config.Config
	videoRepo videofiles.Repository
	clipRepo  clips.Repository
	store     storage.ObjectStore
	jobsUC    jobs.UseCase
	logger    logger.Logger
}

func NewVideoUseCase(
	cfg *config.Config,
	videoRepo videofiles.Repository,
	clipRepo clips.Repository,
	store storage.ObjectStore,
	jobsUC jobs.UseCase,
	log logger.Logger,
) videofiles.UseCase {
	return &videoFileUC{
		cfg:       cfg,
		videoRepo: videoRepo,
		clipRepo:  clipRepo,
		store:     store,
		jobsUC:    jobsUC,
		logger:    log,
	}
}

func (v *videoFileUC) CreateFromSource(ctx context.Context, policy *models.Policy, input *models.ImportVideoInput) (*models.ImportVideoResult, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	sourceURL, sourceType, err := utils.NormalizeSourceURL(input.URL)
	if err != nil {
		return nil, err
	}
	title := input.Title
	if title == "" {
		title = sourceURL
	}
	video, err := v.videoRepo.CreateVideo(ctx, &models.Video{
		VideoID:    uuid.New(),
		UserID:     policy.UserID,
		Title:      title,
		Status:     lifecycle.InitialVideoStatus(sourceType),
		SourceType: sourceType,
		SourceURL:  &sourceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}

	handle, err := v.jobsUC.AddJob(ctx, &models.ProbePayload{
		VideoID:    video.VideoID,
		SourceType: sourceType,
		SourceURL:  sourceURL,
	}, policy.Priority(), 0)
	if err != nil {
		logger.FromContext(ctx, v.logger).Errorw("enqueue probe failed", "video_id", video.VideoID, "error", err)
		return nil, err
	}
	logger.FromContext(ctx, v.logger).Infow("video imported", "video_id", video.VideoID, "source_type", sourceType, "job_id", handle.ID)
	return &models.ImportVideoResult{Video: video, Job: handle}, nil
}

func (v *videoFileUC) GetVideo(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.Video, error) {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.UserID != policy.UserID {
		return nil, apperrors.ErrNotFound
	}
	return video, nil
}

func (v *videoFileUC) ListVideos(ctx context.Context, policy *models.Policy, pq *utils.Pagination) (*utils.Page[*models.Video], error) {
	videos, total, err := v.videoRepo.GetVideos(ctx, policy.UserID, pq)
	if err != nil {
		return nil, err
	}
	return utils.NewPage(videos, pq, total), nil
}

func (v *videoFileUC) Configure(ctx context.Context, policy *models.Policy, videoID uuid.UUID, input *models.VideoConfig) (*models.ConfigureResult, error) {
	if input == nil {
		input = &models.VideoConfig{}
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	settings := input.WithDefaults()
	if settings.MinClipSeconds > settings.MaxClipSeconds {
		return nil, apperrors.NewValidation("min_clip_seconds", "must not exceed max_clip_seconds")
	}

	video, err := v.GetVideo(ctx, policy, videoID)
	if err != nil {
		return nil, err
	}
	if err := checkDuration(policy, video); err != nil {
		return nil, err
	}
	step, err := lifecycle.Videos.Transition(video.Status, lifecycle.VideoConfigured)
	if err != nil {
		return nil, err
	}

	payload := downloadPayload(video, v.cfg.S3.InputBucket)
	if !step.Changed() {
		handle, err := v.existingJob(ctx, payload, policy.Priority())
		if err != nil {
			return nil, err
		}
		return &models.ConfigureResult{Video: video, Job: handle}, nil
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	updated, err := v.videoRepo.TransitionStatus(ctx, video.VideoID, step, &models.VideoPatch{Config: raw})
	if errors.Is(err, videofiles.ErrStatusChanged) {
		// A concurrent configure won; answer with its job.
		current, getErr := v.videoRepo.GetVideoByID(ctx, video.VideoID)
		if getErr != nil {
			return nil, getErr
		}
		if _, terr := lifecycle.Videos.Transition(current.Status, lifecycle.VideoConfigured); terr != nil {
			return nil, terr
		}
		handle, err := v.existingJob(ctx, payload, policy.Priority())
		if err != nil {
			return nil, err
		}
		return &models.ConfigureResult{Video: current, Job: handle}, nil
	}
	if err != nil {
		return nil, err
	}

	handle, err := v.jobsUC.AddJob(ctx, payload, policy.Priority(), 0)
	if err != nil {
		logger.FromContext(ctx, v.logger).Errorw("enqueue download failed", "video_id", video.VideoID, "error", err)
		return nil, err
	}
	logger.FromContext(ctx, v.logger).Infow("video configured", "video_id", video.VideoID, "job_id", handle.ID, "priority", handle.Priority)
	return &models.ConfigureResult{Video: updated, Job: handle}, nil
}

func checkDuration(policy *models.Policy, video *models.Video) error {
	limit := policy.Tier.MaxDurationSecs
	if limit <= 0 || video.DurationSecs == nil {
		return nil
	}
	secs := int64(math.Ceil(*video.DurationSecs))
	if secs <= limit {
		return nil
	}
	return &apperrors.QuotaExceededError{
		Reason:          apperrors.QuotaDuration,
		CurrentTier:     policy.Tier.Name,
		RecommendedTier: policy.RecommendForDuration(secs),
		Limit:           limit,
		Attempted:       secs,
	}
}

func downloadPayload(video *models.Video, bucket string) *models.DownloadPayload {
	p := &models.DownloadPayload{
		VideoID:    video.VideoID,
		SourceType: video.SourceType,
		OutputKey:  models.MediaKey(video.VideoID),
	}
	if video.SourceURL != nil {
		p.SourceURL = *video.SourceURL
	}
	if video.StorageKey != nil {
		p.Bucket = bucket
		p.StorageKey = *video.StorageKey
	}
	return p
}

// existingJob returns the live job for payload's key, adding it when the earlier
// enqueue never happened. The key dedup makes the add safe.
func (v *videoFileUC) existingJob(ctx context.Context, payload models.Payload, priority int) (*models.JobHandle, error) {
	snap, err := v.jobsUC.GetJob(ctx, payload.Operation(), payload.EntityID())
	if err == nil && snap.State.Live() {
		return &snap.JobHandle, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	return v.jobsUC.AddJob(ctx, payload, priority, 0)
}

func (v *videoFileUC) GetDownloadURL(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.DownloadURL, error) {
	video, err := v.GetVideo(ctx, policy, videoID)
	if err != nil {
		return nil, err
	}
	if video.StorageKey == nil {
		return nil, ErrNotUploaded
	}
	ttl := v.cfg.Upload.DownloadURLTTL
	url, err := v.store.PresignGetObject(ctx, v.cfg.S3.InputBucket, *video.StorageKey, ttl)
	if err != nil {
		return nil, apperrors.Storage("presign download", err)
	}
	return &models.DownloadURL{URL: url, ExpiresAt: time.Now().UTC().Add(ttl)}, nil
}

func (v *videoFileUC) DeleteVideo(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.DeleteResult, error) {
	log := logger.FromContext(ctx, v.logger)
	video, err := v.GetVideo(ctx, policy, videoID)
	if err != nil {
		return nil, err
	}
	clipList, err := v.clipRepo.GetClipsByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	blobs := v.collectBlobs(ctx, video, clipList)

	if err := v.videoRepo.DeleteVideo(ctx, videoID); err != nil {
		return nil, err
	}

	res := &models.DeleteResult{VideoID: videoID}
	res.JobsRemoved = v.removeJobs(ctx, video, clipList)
	if video.UploadID != nil && video.UploadKey != nil && video.StorageKey == nil {
		if err := v.store.AbortMultipartUpload(ctx, v.cfg.S3.InputBucket, *video.UploadKey, *video.UploadID); err != nil {
			log.Warnw("abort upload of deleted video", "video_id", videoID, "error", err)
		}
	}
	res.BlobsAttempted, res.BlobsFailed = v.deleteBlobs(ctx, videoID, blobs)
	log.Infow("video deleted", "video_id", videoID, "jobs_removed", res.JobsRemoved,
		"blobs_attempted", res.BlobsAttempted, "blobs_failed", res.BlobsFailed)
	return res, nil
}

// collectBlobs lists every object the video and its clips own. Listing by prefix
// finds exports and results; when a listing fails the well-known keys are used.
func (v *videoFileUC) collectBlobs(ctx context.Context, video *models.Video, clipList []*models.Clip) []models.Blob {
	log := logger.FromContext(ctx, v.logger)
	in, out := v.cfg.S3.InputBucket, v.cfg.S3.OutputBucket
	seen := make(map[models.Blob]bool)
	var blobs []models.Blob
	add := func(bucket, key string) {
		b := models.Blob{Bucket: bucket, Key: key}
		if key == "" || seen[b] {
			return
		}
		seen[b] = true
		blobs = append(blobs, b)
	}
	addPrefix := func(prefix string, fallback ...string) {
		keys, err := v.store.ListObjects(ctx, out, prefix)
		if err != nil {
			log.Warnw("list blobs for delete", "prefix", prefix, "error", err)
			keys = fallback
		}
		for _, k := range keys {
			add(out, k)
		}
	}

	if video.StorageKey != nil {
		add(in, *video.StorageKey)
	}
	addPrefix(models.DerivedPrefix(video.VideoID), models.MediaKey(video.VideoID), models.TranscriptKey(video.VideoID))
	for _, c := range clipList {
		if c.StorageKey != nil {
			add(out, *c.StorageKey)
		}
		fallback := []string{models.ClipKey(c.ClipID)}
		if ops, err := v.clipRepo.ListOperations(ctx, c.ClipID); err == nil {
			for _, op := range ops {
				if op.ResultKey != nil {
					fallback = append(fallback, *op.ResultKey)
				}
			}
		}
		addPrefix(models.ClipPrefix(c.ClipID), fallback...)
	}
	return blobs
}

func (v *videoFileUC) removeJobs(ctx context.Context, video *models.Video, clipList []*models.Clip) int {
	log := logger.FromContext(ctx, v.logger)
	removed := 0
	remove := func(op models.OperationType, id uuid.UUID) {
		outcome, err := v.jobsUC.RemoveJob(ctx, op, id)
		if err != nil {
			log.Warnw("remove job of deleted entity", "job_key", models.JobKey(op, id), "error", err)
			return
		}
		if outcome != models.RemoveAbsent {
			removed++
		}
	}
	for _, op := range models.VideoOperations {
		remove(op, video.VideoID)
	}
	for _, c := range clipList {
		for _, op := range models.ClipOperations {
			remove(op, c.ClipID)
		}
	}
	return removed
}

// deleteBlobs attempts every blob and tolerates individual failures.
func (v *videoFileUC) deleteBlobs(ctx context.Context, videoID uuid.UUID, blobs []models.Blob) (attempted, failed int) {
	var (
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(deleteConcurrency)
	for _, b := range blobs {
		b := b
		g.Go(func() error {
			err := v.store.DeleteObject(gctx, b.Bucket, b.Key)
			mu.Lock()
			defer mu.Unlock()
			attempted++
			if err != nil {
				failed++
				errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", b.Bucket, b.Key, err))
			}
			return nil
		})
	}
	_ = g.Wait()
	if errs != nil {
		logger.FromContext(ctx, v.logger).Warnw("blob cleanup incomplete", "video_id", videoID,
			"failed", failed, "attempted", attempted, "error", errs)
	}
	return attempted, failed
}

func (v *videoFileUC) RecordProbe(ctx context.Context, videoID uuid.UUID, probe *models.ProbeResult) error {
	if probe == nil || probe.DurationSecs <= 0 {
		return apperrors.NewValidation("duration_secs", "probe reported no duration")
	}
	return v.videoRepo.SetDuration(ctx, videoID, probe.DurationSecs)
}

func (v *videoFileUC) AdvanceStage(ctx context.Context, videoID uuid.UUID, event lifecycle.VideoEvent, priority int) (*models.JobHandle, error) {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	step, err := lifecycle.Videos.Transition(video.Status, event)
	if err != nil {
		return nil, err
	}
	settings, err := video.DecodeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to decode video config: %w", err)
	}
	settings = settings.WithDefaults()

	var next models.Payload
	switch step.To {
	case lifecycle.VideoTranscribing:
		next = &models.TranscribePayload{
			VideoID:   videoID,
			MediaKey:  models.MediaKey(videoID),
			OutputKey: models.TranscriptKey(videoID),
			Language:  settings.Language,
		}
	case lifecycle.VideoAnalyzing:
		next = &models.AnalyzePayload{
			VideoID:        videoID,
			MediaKey:       models.MediaKey(videoID),
			TranscriptKey:  models.TranscriptKey(videoID),
			MaxClips:       settings.MaxClips,
			MinClipSeconds: settings.MinClipSeconds,
			MaxClipSeconds: settings.MaxClipSeconds,
		}
	default:
		return nil, fmt.Errorf("event %s has no follow-up stage", event)
	}

	if _, err := v.videoRepo.TransitionStatus(ctx, videoID, step, nil); err != nil {
		return nil, err
	}
	handle, err := v.jobsUC.AddJob(ctx, next, priority, 0)
	if err != nil {
		logger.FromContext(ctx, v.logger).Errorw("enqueue next stage failed", "video_id", videoID, "status", step.To, "error", err)
		return nil, err
	}
	return handle, nil
}

func (v *videoFileUC) CompleteAnalysis(ctx context.Context, videoID uuid.UUID, detected []models.DetectedClip) (*models.Video, error) {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Videos.Transition(video.Status, lifecycle.VideoAnalyzed); err != nil {
		return nil, err
	}
	settings, err := video.DecodeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to decode video config: %w", err)
	}
	settings = settings.WithDefaults()

	candidates := make([]models.DetectedClip, 0, len(detected))
	for _, d := range detected {
		if d.StartSec < 0 || d.EndSec <= d.StartSec {
			continue
		}
		if video.DurationSecs != nil && d.StartSec >= *video.DurationSecs {
			continue
		}
		candidates = append(candidates, d)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > settings.MaxClips {
		candidates = candidates[:settings.MaxClips]
	}

	rows := make([]*models.Clip, 0, len(candidates))
	for i, d := range candidates {
		title := d.Title
		if title == "" {
			title = fmt.Sprintf("Clip %d", i+1)
		}
		rows = append(rows, &models.Clip{
			ClipID:   uuid.New(),
			VideoID:  videoID,
			UserID:   video.UserID,
			Title:    title,
			Status:   lifecycle.ClipDetected,
			StartSec: d.StartSec,
			EndSec:   d.EndSec,
			Score:    d.Score,
		})
	}
	return v.videoRepo.CompleteAnalysis(ctx, videoID, rows)
}

func (v *videoFileUC) Fail(ctx context.Context, videoID uuid.UUID, reason string) error {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}
	step, err := lifecycle.Videos.Transition(video.Status, lifecycle.VideoFailedEvent)
	if err != nil {
		return err
	}
	_, err = v.videoRepo.TransitionStatus(ctx, videoID, step, &models.VideoPatch{ErrorMessage: &reason})
	return err
}
