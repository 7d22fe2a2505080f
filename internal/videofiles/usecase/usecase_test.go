package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/mocks"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	freeTier = models.TierLimit{Name: "free", Rank: 1, Priority: 4, MaxDurationSecs: 600}
	proTier  = models.TierLimit{Name: "pro", Rank: 2, Priority: 2, MaxDurationSecs: 3600}
)

type fixture struct {
	uc     *videoFileUC
	videos *mocks.VideoRepo
	clips  *mocks.ClipRepo
	store  *mocks.ObjectStore
	jobs   *mocks.Dispatcher
	policy *models.Policy
}

func newFixture(t *testing.T, tier models.TierLimit) *fixture {
	t.Helper()
	cfg := &config.Config{
		S3:     config.S3Config{InputBucket: "in", OutputBucket: "out"},
		Upload: config.UploadConfig{DownloadURLTTL: time.Hour},
	}
	f := &fixture{
		videos: mocks.NewVideoRepo(),
		clips:  mocks.NewClipRepo(),
		store:  mocks.NewObjectStore(),
		jobs:   mocks.NewDispatcher(),
		policy: models.NewPolicy(uuid.New(), tier, []models.TierLimit{freeTier, proTier}),
	}
	f.videos.Clips = f.clips
	f.uc = NewVideoUseCase(cfg, f.videos, f.clips, f.store, f.jobs, logger.NewNop()).(*videoFileUC)
	return f
}

func (f *fixture) video(status lifecycle.VideoStatus) *models.Video {
	key := "uploads/u/v/clip.mp4"
	v := &models.Video{
		VideoID:    uuid.New(),
		UserID:     f.policy.UserID,
		Status:     status,
		SourceType: lifecycle.SourceUpload,
		StorageKey: &key,
		CreatedAt:  time.Now(),
	}
	f.videos.Put(v)
	return v
}

func TestConfigureQueuesOneDownloadAtTierPriority(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	v := f.video(lifecycle.VideoAwaitingConfig)

	res, err := f.uc.Configure(ctx, f.policy, v.VideoID, &models.VideoConfig{MaxClips: 5})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoDownloading, res.Video.Status)
	require.NotNil(t, res.Job)
	assert.Equal(t, models.JobKey(models.OpDownload, v.VideoID), res.Job.Key)
	assert.Equal(t, proTier.Priority, res.Job.Priority)

	again, err := f.uc.Configure(ctx, f.policy, v.VideoID, nil)
	require.NoError(t, err)
	assert.Equal(t, res.Job.ID, again.Job.ID)
	assert.Equal(t, 1, f.jobs.Enqueued)

	stored, err := f.videos.GetVideoByID(ctx, v.VideoID)
	require.NoError(t, err)
	settings, err := stored.DecodeConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, settings.MaxClips)
	assert.Equal(t, "9:16", settings.AspectRatio)
}

func TestConfigureBeforeUploadIsRejected(t *testing.T) {
	f := newFixture(t, proTier)
	v := f.video(lifecycle.VideoAwaitingUpload)

	_, err := f.uc.Configure(context.Background(), f.policy, v.VideoID, nil)
	var terr *lifecycle.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 0, f.jobs.AddCalls)
}

func TestConfigureEnforcesDurationQuota(t *testing.T) {
	f := newFixture(t, freeTier)
	v := f.video(lifecycle.VideoAwaitingConfig)
	require.NoError(t, f.uc.RecordProbe(context.Background(), v.VideoID, &models.ProbeResult{DurationSecs: 1200.4}))

	_, err := f.uc.Configure(context.Background(), f.policy, v.VideoID, nil)
	var quota *apperrors.QuotaExceededError
	require.True(t, errors.As(err, &quota))
	assert.Equal(t, apperrors.QuotaDuration, quota.Reason)
	assert.Equal(t, int64(1201), quota.Attempted)
	assert.Equal(t, "pro", quota.RecommendedTier)

	got, err := f.videos.GetVideoByID(context.Background(), v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoAwaitingConfig, got.Status)
}

func TestCreateFromSourceCanonicalizesYouTube(t *testing.T) {
	f := newFixture(t, proTier)
	res, err := f.uc.CreateFromSource(context.Background(), f.policy, &models.ImportVideoInput{URL: "https://youtu.be/dQw4w9WgXcQ?t=42"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoAwaitingConfig, res.Video.Status)
	assert.Equal(t, lifecycle.SourceYouTube, res.Video.SourceType)
	assert.Equal(t, "https://youtube.com/watch?v=dQw4w9WgXcQ", *res.Video.SourceURL)
	require.NotNil(t, res.Job)
	assert.Equal(t, models.OpProbe, res.Job.Operation)
}

func TestAdvanceStagePersistsThenQueues(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	v := f.video(lifecycle.VideoDownloading)

	h, err := f.uc.AdvanceStage(ctx, v.VideoID, lifecycle.VideoDownloaded, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OpTranscribe, h.Operation)
	got, _ := f.videos.GetVideoByID(ctx, v.VideoID)
	assert.Equal(t, lifecycle.VideoTranscribing, got.Status)

	h, err = f.uc.AdvanceStage(ctx, v.VideoID, lifecycle.VideoTranscribed, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OpAnalyze, h.Operation)

	// A redelivered stage event is stale and changes nothing.
	_, err = f.uc.AdvanceStage(ctx, v.VideoID, lifecycle.VideoDownloaded, 2)
	var terr *lifecycle.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 2, f.jobs.Enqueued)
}

func TestCompleteAnalysisFiltersAndCaps(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	v := f.video(lifecycle.VideoAnalyzing)
	_, err := f.videos.TransitionStatus(ctx, v.VideoID, lifecycle.Step[lifecycle.VideoStatus]{From: lifecycle.VideoAnalyzing, To: lifecycle.VideoAnalyzing},
		&models.VideoPatch{Config: models.RawJSON(`{"max_clips":2}`)})
	require.NoError(t, err)

	done, err := f.uc.CompleteAnalysis(ctx, v.VideoID, []models.DetectedClip{
		{StartSec: 0, EndSec: 30, Score: 0.2},
		{StartSec: 40, EndSec: 30, Score: 0.9},
		{StartSec: 60, EndSec: 90, Score: 0.8},
		{StartSec: 100, EndSec: 130, Score: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoCompleted, done.Status)

	list, err := f.clips.GetClipsByVideoID(ctx, v.VideoID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 60.0, list[0].StartSec)
	assert.Equal(t, 100.0, list[1].StartSec)
	assert.Equal(t, lifecycle.ClipDetected, list[0].Status)
}

func TestDeleteAttemptsEveryBlobDespiteFailures(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	v := f.video(lifecycle.VideoCompleted)

	a := &models.Clip{ClipID: uuid.New(), VideoID: v.VideoID, UserID: v.UserID, Status: lifecycle.ClipExported, StartSec: 0, EndSec: 10, ExportCount: 2}
	b := &models.Clip{ClipID: uuid.New(), VideoID: v.VideoID, UserID: v.UserID, Status: lifecycle.ClipReady, StartSec: 20, EndSec: 30}
	f.clips.Put(a)
	f.clips.Put(b)

	keys := []string{
		models.MediaKey(v.VideoID),
		models.TranscriptKey(v.VideoID),
		models.ClipKey(a.ClipID),
		models.OperationResultKey(a.ClipID, models.OpCrop),
		models.ExportKey(a.ClipID, 1, "mp4"),
		models.ExportKey(a.ClipID, 2, "webm"),
		models.ClipKey(b.ClipID),
	}
	f.store.PutObject("in", *v.StorageKey)
	for _, k := range keys {
		f.store.PutObject("out", k)
	}
	f.store.FailDelete[models.TranscriptKey(v.VideoID)] = true
	f.store.FailDelete[models.ExportKey(a.ClipID, 1, "mp4")] = true
	f.store.FailDelete[*v.StorageKey] = true

	_, err := f.jobs.AddJob(ctx, &models.CropPayload{ClipID: b.ClipID}, 2, time.Hour)
	require.NoError(t, err)

	res, err := f.uc.DeleteVideo(ctx, f.policy, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, 8, res.BlobsAttempted)
	assert.Equal(t, 3, res.BlobsFailed)
	assert.Equal(t, 8, f.store.Calls("DeleteObject"))
	assert.Equal(t, 1, res.JobsRemoved)

	_, err = f.videos.GetVideoByID(ctx, v.VideoID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.clips.GetClipByID(ctx, a.ClipID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteOfForeignVideoIsNotFound(t *testing.T) {
	f := newFixture(t, proTier)
	v := f.video(lifecycle.VideoCompleted)
	stranger := models.NewPolicy(uuid.New(), proTier, nil)

	_, err := f.uc.DeleteVideo(context.Background(), stranger, v.VideoID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 1, f.videos.Len())
}

func TestListVideosPages(t *testing.T) {
	f := newFixture(t, proTier)
	for i := 0; i < 3; i++ {
		f.video(lifecycle.VideoCompleted)
	}
	page, err := f.uc.ListVideos(context.Background(), f.policy, &utils.Pagination{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasMore)
}

func TestGetDownloadURL(t *testing.T) {
	f := newFixture(t, freeTier)
	ctx := context.Background()
	v := f.video(lifecycle.VideoCompleted)

	dl, err := f.uc.GetDownloadURL(ctx, f.policy, v.VideoID)
	require.NoError(t, err)
	assert.Contains(t, dl.URL, "in.s3.test/uploads/u/v/clip.mp4")
	assert.Contains(t, dl.URL, "X-Amz-Expires=3600")
	assert.WithinDuration(t, time.Now().Add(time.Hour), dl.ExpiresAt, time.Minute)

	imported := &models.Video{VideoID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.VideoAwaitingConfig}
	f.videos.Put(imported)
	_, err = f.uc.GetDownloadURL(ctx, f.policy, imported.VideoID)
	assert.ErrorIs(t, err, ErrNotUploaded)
	assert.Equal(t, 1, f.store.Calls("PresignGetObject"))
}
