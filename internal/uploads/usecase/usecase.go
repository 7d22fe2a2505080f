package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/storage"
	"github.com/amankumarsingh77/clipflow/internal/uploads"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrUploadFinished is returned when a part or abort request targets an upload
// that was already completed.
var ErrUploadFinished = fmt.Errorf("upload already completed: %w", apperrors.ErrConflict)

type uploadUC struct {
	cfg       *config.Config
	videoRepo videofiles.Repository
	store     storage.ObjectStore
	jobsUC    jobs.UseCase
	logger    logger.Logger
}

func NewUploadUseCase(cfg *config.Config, videoRepo videofiles.Repository, store storage.ObjectStore, jobsUC jobs.UseCase, log logger.Logger) uploads.UseCase {
	return &uploadUC{
		cfg:       cfg,
		videoRepo: videoRepo,
		store:     store,
		jobsUC:    jobsUC,
		logger:    log,
	}
}

func (u *uploadUC) bucket() string { return u.cfg.S3.InputBucket }

// TotalParts is ceil(size/chunkSize).
func TotalParts(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

func (u *uploadUC) InitUpload(ctx context.Context, policy *models.Policy, input *models.InitUploadInput) (*models.InitUploadResult, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	fileName, err := u.checkMediaType(input.FileName, input.ContentType)
	if err != nil {
		return nil, err
	}
	if limit := policy.Tier.MaxUploadBytes; limit > 0 && input.SizeBytes > limit {
		return nil, &apperrors.QuotaExceededError{
			Reason:          apperrors.QuotaFileSize,
			CurrentTier:     policy.Tier.Name,
			RecommendedTier: policy.RecommendForSize(input.SizeBytes),
			Limit:           limit,
			Attempted:       input.SizeBytes,
		}
	}
	totalParts := TotalParts(input.SizeBytes, u.cfg.Upload.ChunkSize)
	if totalParts > u.cfg.Upload.MaxParts {
		return nil, apperrors.ErrTooManyParts
	}

	log := logger.FromContext(ctx, u.logger)
	videoID := uuid.New()
	key := models.UploadKey(policy.UserID, videoID, fileName)
	uploadID, err := u.store.CreateMultipartUpload(ctx, u.bucket(), key, input.ContentType)
	if err != nil {
		log.Errorw("create multipart upload failed", "video_id", videoID, "storage_key", key, "error", err)
		return nil, apperrors.Storage("create multipart upload", err)
	}

	partNumbers := make([]int32, totalParts)
	for i := range partNumbers {
		partNumbers[i] = int32(i + 1)
	}
	urls, err := u.presignParts(ctx, key, uploadID, partNumbers)
	if err != nil {
		u.abortQuietly(ctx, key, uploadID)
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(u.cfg.Upload.SessionTTL)
	title := input.Title
	if title == "" {
		title = input.FileName
	}
	_, err = u.videoRepo.CreateVideo(ctx, &models.Video{
		VideoID:         videoID,
		UserID:          policy.UserID,
		Title:           title,
		Status:          lifecycle.InitialVideoStatus(lifecycle.SourceUpload),
		SourceType:      lifecycle.SourceUpload,
		FileName:        fileName,
		FileSize:        input.SizeBytes,
		ContentType:     input.ContentType,
		UploadID:        &uploadID,
		UploadKey:       &key,
		TotalParts:      totalParts,
		UploadExpiresAt: &expiresAt,
	})
	if err != nil {
		log.Errorw("persist upload entity failed", "video_id", videoID, "session_id", uploadID, "error", err)
		u.abortQuietly(ctx, key, uploadID)
		return nil, fmt.Errorf("failed to create video: %w", err)
	}

	log.Infow("upload initialised", "video_id", videoID, "session_id", uploadID, "storage_key", key, "total_parts", totalParts)
	return &models.InitUploadResult{
		VideoID:    videoID,
		SessionID:  uploadID,
		StorageKey: key,
		ChunkSize:  u.cfg.Upload.ChunkSize,
		TotalParts: totalParts,
		PartURLs:   urls,
		ExpiresAt:  expiresAt,
	}, nil
}

// checkMediaType validates the content type and extension against the allow
// lists and returns the file name to store, with an extension added when the
// client sent none.
func (u *uploadUC) checkMediaType(fileName, contentType string) (string, error) {
	if !utils.ContainsFold(u.cfg.Upload.AllowedMimeTypes, contentType) {
		return "", apperrors.NewValidation("content_type", fmt.Sprintf("%q is not an accepted video type", contentType))
	}
	if path.Ext(fileName) == "" {
		if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
			fileName += m.Extension()
		}
	}
	if !utils.HasAllowedExtension(fileName, u.cfg.Upload.AllowedExtensions) {
		return "", apperrors.NewValidation("filename", fmt.Sprintf("extension of %q is not accepted", fileName))
	}
	return fileName, nil
}

func (u *uploadUC) presignParts(ctx context.Context, key, uploadID string, partNumbers []int32) ([]models.PartURL, error) {
	ttl := u.cfg.Upload.PresignTTL
	expiresAt := time.Now().UTC().Add(ttl)
	urls := make([]models.PartURL, 0, len(partNumbers))
	for _, n := range partNumbers {
		url, err := u.store.PresignUploadPart(ctx, u.bucket(), key, uploadID, n, ttl)
		if err != nil {
			logger.FromContext(ctx, u.logger).Errorw("presign part failed", "session_id", uploadID, "storage_key", key, "part", n, "error", err)
			return nil, apperrors.Storage("presign upload part", err)
		}
		urls = append(urls, models.PartURL{PartNumber: n, URL: url, ExpiresAt: expiresAt})
	}
	return urls, nil
}

func (u *uploadUC) abortQuietly(ctx context.Context, key, uploadID string) {
	if err := u.store.AbortMultipartUpload(ctx, u.bucket(), key, uploadID); err != nil {
		logger.FromContext(ctx, u.logger).Warnw("abort after failed init", "session_id", uploadID, "storage_key", key, "error", err)
	}
}

// session loads the video behind an upload session and checks ownership.
func (u *uploadUC) session(ctx context.Context, policy *models.Policy, sessionID, key string) (*models.Video, error) {
	video, err := u.videoRepo.GetVideoByUploadSession(ctx, sessionID, key)
	if err != nil {
		return nil, err
	}
	if video.UserID != policy.UserID {
		return nil, apperrors.ErrNotFound
	}
	return video, nil
}

func (u *uploadUC) openSession(ctx context.Context, policy *models.Policy, sessionID, key string) (*models.Video, error) {
	video, err := u.session(ctx, policy, sessionID, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if video.Status != lifecycle.VideoAwaitingUpload {
		return nil, ErrUploadFinished
	}
	return video, nil
}

func (u *uploadUC) GetPartURL(ctx context.Context, policy *models.Policy, input *models.PartURLInput) (*models.PartURL, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	video, err := u.openSession(ctx, policy, input.SessionID, input.StorageKey)
	if err != nil {
		return nil, err
	}
	if int(input.PartNumber) > video.TotalParts {
		return nil, apperrors.NewValidation("part_number", fmt.Sprintf("must be between 1 and %d", video.TotalParts))
	}
	urls, err := u.presignParts(ctx, input.StorageKey, input.SessionID, []int32{input.PartNumber})
	if err != nil {
		return nil, err
	}
	return &urls[0], nil
}

func (u *uploadUC) GetBatchPartURLs(ctx context.Context, policy *models.Policy, input *models.BatchPartURLInput) ([]models.PartURL, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	if len(input.PartNumbers) > u.cfg.Upload.MaxBatchPartURLs {
		return nil, apperrors.NewValidation("part_numbers", fmt.Sprintf("at most %d part urls per request", u.cfg.Upload.MaxBatchPartURLs))
	}
	video, err := u.openSession(ctx, policy, input.SessionID, input.StorageKey)
	if err != nil {
		return nil, err
	}

	seen := make(map[int32]bool, len(input.PartNumbers))
	parts := make([]int32, 0, len(input.PartNumbers))
	for _, n := range input.PartNumbers {
		if int(n) > video.TotalParts {
			return nil, apperrors.NewValidation("part_numbers", fmt.Sprintf("part %d is outside 1..%d", n, video.TotalParts))
		}
		if !seen[n] {
			seen[n] = true
			parts = append(parts, n)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
	return u.presignParts(ctx, input.StorageKey, input.SessionID, parts)
}

func (u *uploadUC) ListUploadedParts(ctx context.Context, policy *models.Policy, sessionID, storageKey string) ([]models.UploadedPart, error) {
	if sessionID == "" || storageKey == "" {
		return nil, apperrors.NewValidation("session_id", "session_id and storage_key are required")
	}
	if _, err := u.openSession(ctx, policy, sessionID, storageKey); err != nil {
		return nil, err
	}
	return u.listParts(ctx, sessionID, storageKey)
}

func (u *uploadUC) listParts(ctx context.Context, sessionID, key string) ([]models.UploadedPart, error) {
	parts, err := u.store.ListParts(ctx, u.bucket(), key, sessionID)
	if errors.Is(err, apperrors.ErrSessionExpired) {
		return nil, err
	}
	if err != nil {
		logger.FromContext(ctx, u.logger).Errorw("list parts failed", "session_id", sessionID, "storage_key", key, "error", err)
		return nil, apperrors.Storage("list parts", err)
	}
	return parts, nil
}

func (u *uploadUC) ResumeUpload(ctx context.Context, policy *models.Policy, input *models.ResumeUploadInput) (*models.ResumeUploadResult, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	video, err := u.session(ctx, policy, input.SessionID, input.StorageKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if input.TotalParts != video.TotalParts {
		return nil, apperrors.NewValidation("total_parts", fmt.Sprintf("session was planned with %d parts, got %d", video.TotalParts, input.TotalParts))
	}
	result := &models.ResumeUploadResult{
		SessionID:      input.SessionID,
		StorageKey:     input.StorageKey,
		UploadedParts:  []models.UploadedPart{},
		RemainingParts: []int32{},
		PartURLs:       []models.PartURL{},
	}
	if video.Status != lifecycle.VideoAwaitingUpload {
		result.IsComplete = true
		return result, nil
	}

	uploaded, err := u.listParts(ctx, input.SessionID, input.StorageKey)
	if err != nil {
		return nil, err
	}
	result.UploadedParts = uploaded
	result.RemainingParts = RemainingParts(video.TotalParts, uploaded)
	result.IsComplete = len(result.RemainingParts) == 0
	if !result.IsComplete {
		urls, err := u.presignParts(ctx, input.StorageKey, input.SessionID, result.RemainingParts)
		if err != nil {
			return nil, err
		}
		result.PartURLs = urls
	}
	return result, nil
}

// RemainingParts is {1..totalParts} minus the uploaded part numbers, ascending.
func RemainingParts(totalParts int, uploaded []models.UploadedPart) []int32 {
	done := make(map[int32]bool, len(uploaded))
	for _, p := range uploaded {
		done[p.PartNumber] = true
	}
	remaining := make([]int32, 0, totalParts)
	for n := int32(1); n <= int32(totalParts); n++ {
		if !done[n] {
			remaining = append(remaining, n)
		}
	}
	return remaining
}

func (u *uploadUC) CompleteUpload(ctx context.Context, policy *models.Policy, input *models.CompleteUploadInput) (*models.CompleteUploadResult, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, u.logger)
	video, err := u.session(ctx, policy, input.SessionID, input.StorageKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if video.Status != lifecycle.VideoAwaitingUpload {
		return u.completedResult(ctx, video), nil
	}
	if err := checkParts(input.Parts, video.TotalParts); err != nil {
		return nil, err
	}

	err = u.store.CompleteMultipartUpload(ctx, u.bucket(), input.StorageKey, input.SessionID, input.Parts)
	switch {
	case errors.Is(err, apperrors.ErrSessionExpired):
		// An earlier complete may have assembled the object and lost the status write.
		exists, headErr := u.store.ObjectExists(ctx, u.bucket(), input.StorageKey)
		if headErr != nil {
			log.Errorw("head after missing session failed", "video_id", video.VideoID, "storage_key", input.StorageKey, "error", headErr)
			return nil, apperrors.Storage("head object", headErr)
		}
		if !exists {
			return nil, apperrors.ErrSessionExpired
		}
	case err != nil:
		var validation *apperrors.ValidationError
		if errors.As(err, &validation) {
			return nil, err
		}
		log.Errorw("complete multipart upload failed", "video_id", video.VideoID, "session_id", input.SessionID, "error", err)
		return nil, apperrors.Storage("complete multipart upload", err)
	}

	step, err := lifecycle.Videos.Transition(video.Status, lifecycle.VideoUploadCompleted)
	if err != nil {
		return nil, err
	}
	storageURL := u.store.ObjectURL(u.bucket(), input.StorageKey)
	updated, err := u.videoRepo.TransitionStatus(ctx, video.VideoID, step, &models.VideoPatch{
		StorageKey: &input.StorageKey,
		StorageURL: &storageURL,
	})
	if errors.Is(err, videofiles.ErrStatusChanged) {
		current, getErr := u.videoRepo.GetVideoByID(ctx, video.VideoID)
		if getErr != nil {
			return nil, getErr
		}
		return u.completedResult(ctx, current), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record completed upload: %w", err)
	}

	handle, err := u.jobsUC.AddJob(ctx, &models.ProbePayload{
		VideoID:    updated.VideoID,
		SourceType: lifecycle.SourceUpload,
		Bucket:     u.bucket(),
		StorageKey: input.StorageKey,
	}, policy.Priority(), 0)
	if err != nil {
		return nil, err
	}

	log.Infow("upload completed", "video_id", updated.VideoID, "storage_key", input.StorageKey, "job_id", handle.ID)
	return &models.CompleteUploadResult{
		VideoID:    updated.VideoID,
		StorageKey: input.StorageKey,
		StorageURL: storageURL,
		Status:     string(updated.Status),
		NextJob:    handle,
	}, nil
}

// completedResult answers a repeated complete without enqueueing anything.
func (u *uploadUC) completedResult(ctx context.Context, video *models.Video) *models.CompleteUploadResult {
	res := &models.CompleteUploadResult{
		VideoID:          video.VideoID,
		Status:           string(video.Status),
		AlreadyCompleted: true,
	}
	if video.StorageKey != nil {
		res.StorageKey = *video.StorageKey
	}
	if video.StorageURL != nil {
		res.StorageURL = *video.StorageURL
	}
	if op, ok := models.StageOperation(video.Status); ok {
		if snap, err := u.jobsUC.GetJob(ctx, op, video.VideoID); err == nil {
			res.NextJob = &snap.JobHandle
		}
	}
	return res
}

// checkParts requires the manifest to name every planned part exactly once.
func checkParts(parts []models.CompletedPart, totalParts int) error {
	if len(parts) != totalParts {
		return apperrors.NewValidation("parts", fmt.Sprintf("expected %d parts, got %d", totalParts, len(parts)))
	}
	seen := make(map[int32]bool, len(parts))
	for _, p := range parts {
		if p.PartNumber < 1 || int(p.PartNumber) > totalParts {
			return apperrors.NewValidation("parts", fmt.Sprintf("part %d is outside 1..%d", p.PartNumber, totalParts))
		}
		if seen[p.PartNumber] {
			return apperrors.NewValidation("parts", fmt.Sprintf("part %d listed twice", p.PartNumber))
		}
		seen[p.PartNumber] = true
	}
	return nil
}

func (u *uploadUC) AbortUpload(ctx context.Context, policy *models.Policy, input *models.AbortUploadInput) error {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return err
	}
	video, err := u.session(ctx, policy, input.SessionID, input.StorageKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if video.Status != lifecycle.VideoAwaitingUpload {
		return ErrUploadFinished
	}
	return u.abort(ctx, video)
}

func (u *uploadUC) abort(ctx context.Context, video *models.Video) error {
	log := logger.FromContext(ctx, u.logger)
	key, uploadID := deref(video.UploadKey), deref(video.UploadID)
	if err := u.store.AbortMultipartUpload(ctx, u.bucket(), key, uploadID); err != nil {
		log.Errorw("abort multipart upload failed", "video_id", video.VideoID, "session_id", uploadID, "error", err)
		return apperrors.Storage("abort multipart upload", err)
	}
	deleted, err := u.videoRepo.DeleteVideoIfStatus(ctx, video.VideoID, lifecycle.VideoAwaitingUpload)
	if err != nil {
		return fmt.Errorf("failed to delete aborted video: %w", err)
	}
	log.Infow("upload aborted", "video_id", video.VideoID, "session_id", uploadID, "entity_deleted", deleted)
	return nil
}

func (u *uploadUC) ExpireStaleUploads(ctx context.Context, now time.Time, limit int) (int, error) {
	videos, err := u.videoRepo.ListExpiredUploads(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	cleaned := 0
	for _, v := range videos {
		if err := u.abort(ctx, v); err != nil {
			u.logger.Warnw("expire stale upload", "video_id", v.VideoID, "error", err)
			continue
		}
		cleaned++
	}
	return cleaned, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
