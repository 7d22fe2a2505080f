package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/media"
	"github.com/amankumarsingh77/clipflow/internal/mocks"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clipsUsecase "github.com/amankumarsingh77/clipflow/internal/clips/usecase"
	videoUsecase "github.com/amankumarsingh77/clipflow/internal/videofiles/usecase"
)

type fakeExec struct {
	mu    sync.Mutex
	res   *media.Result
	err   error
	calls int
}

func (f *fakeExec) Execute(_ context.Context, _ *media.Request, progress media.ProgressFunc) (*media.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := progress(50); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.res == nil {
		return &media.Result{}, nil
	}
	return f.res, nil
}

type fixture struct {
	w      *Worker
	exec   *fakeExec
	videos *mocks.VideoRepo
	clips  *mocks.ClipRepo
	jobs   *mocks.Dispatcher
	policy *models.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		S3:     config.S3Config{InputBucket: "in", OutputBucket: "out"},
		Upload: config.UploadConfig{DownloadURLTTL: time.Hour},
		Queue:  config.QueueConfig{PollInterval: 5 * time.Millisecond},
		Worker: config.WorkerConfig{WorkerCount: 1},
	}
	f := &fixture{
		exec:   &fakeExec{},
		videos: mocks.NewVideoRepo(),
		clips:  mocks.NewClipRepo(),
		jobs:   mocks.NewDispatcher(),
		policy: models.NewPolicy(uuid.New(), models.TierLimit{Name: "pro", Rank: 2, Priority: 2}, nil),
	}
	f.videos.Clips = f.clips
	store := mocks.NewObjectStore()
	log := logger.NewNop()
	videoUC := videoUsecase.NewVideoUseCase(cfg, f.videos, f.clips, store, f.jobs, log)
	clipsUC := clipsUsecase.NewClipsUseCase(cfg, f.clips, store, f.jobs, log)
	handler := NewStageHandler(cfg, videoUC, clipsUC, f.jobs, f.exec, log)
	f.w = NewWorker(cfg, f.jobs, nil, handler, log)
	return f
}

func (f *fixture) video(status lifecycle.VideoStatus) *models.Video {
	v := &models.Video{VideoID: uuid.New(), UserID: f.policy.UserID, Status: status, SourceType: lifecycle.SourceUpload}
	f.videos.Put(v)
	return v
}

func (f *fixture) claim(t *testing.T, p models.Payload) *models.JobSnapshot {
	t.Helper()
	_, err := f.jobs.AddJob(context.Background(), p, 2, 0)
	require.NoError(t, err)
	job, err := f.jobs.ClaimJob(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

func TestDownloadAdvancesAndQueuesTranscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.video(lifecycle.VideoDownloading)
	job := f.claim(t, &models.DownloadPayload{VideoID: v.VideoID, OutputKey: models.MediaKey(v.VideoID)})

	f.w.Process(ctx, job)

	stored, err := f.videos.GetVideoByID(ctx, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoTranscribing, stored.Status)
	assert.Equal(t, models.JobCompleted, f.jobs.Snapshot(models.OpDownload, v.VideoID).State)
	next := f.jobs.Snapshot(models.OpTranscribe, v.VideoID)
	require.NotNil(t, next)
	assert.Equal(t, 2, next.Priority)
}

func TestStaleJobCompletesWithoutFailingVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.video(lifecycle.VideoAnalyzing)
	job := f.claim(t, &models.DownloadPayload{VideoID: v.VideoID})

	f.w.Process(ctx, job)

	stored, err := f.videos.GetVideoByID(ctx, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoAnalyzing, stored.Status)
	assert.Equal(t, models.JobCompleted, f.jobs.Snapshot(models.OpDownload, v.VideoID).State)
}

func TestSidecarFailureFailsVideoAndJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.exec.err = errors.New("whisper crashed")
	v := f.video(lifecycle.VideoTranscribing)
	job := f.claim(t, &models.TranscribePayload{VideoID: v.VideoID})

	f.w.Process(ctx, job)

	stored, err := f.videos.GetVideoByID(ctx, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "whisper crashed", *stored.ErrorMessage)
	snap := f.jobs.Snapshot(models.OpTranscribe, v.VideoID)
	assert.Equal(t, models.JobFailed, snap.State)
	assert.Equal(t, "whisper crashed", snap.Error)
}

func TestAnalyzeStoresDetectedClips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.exec.res = &media.Result{Clips: []models.DetectedClip{
		{StartSec: 0, EndSec: 30, Score: 0.4},
		{StartSec: 60, EndSec: 90, Score: 0.9},
	}}
	v := f.video(lifecycle.VideoAnalyzing)
	job := f.claim(t, &models.AnalyzePayload{VideoID: v.VideoID})

	f.w.Process(ctx, job)

	stored, err := f.videos.GetVideoByID(ctx, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoCompleted, stored.Status)
	list, err := f.clips.GetClipsByVideoID(ctx, v.VideoID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCancelledExportFailsOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "clips/x/clip.mp4"
	c := &models.Clip{ClipID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.ClipReady, StorageKey: &key}
	f.clips.Put(c)
	clipsUC := clipsUsecase.NewClipsUseCase(&config.Config{}, f.clips, mocks.NewObjectStore(), f.jobs, logger.NewNop())
	_, err := clipsUC.Export(ctx, f.policy, c.ClipID, &models.ExportInput{})
	require.NoError(t, err)
	job, err := f.jobs.ClaimJob(ctx)
	require.NoError(t, err)

	outcome, err := f.jobs.RemoveJob(ctx, models.OpExport, c.ClipID)
	require.NoError(t, err)
	require.Equal(t, models.RemoveFlaggedActive, outcome)

	f.w.Process(ctx, job)

	assert.Equal(t, 0, f.exec.calls)
	snap := f.jobs.Snapshot(models.OpExport, c.ClipID)
	assert.Equal(t, models.JobFailed, snap.State)
	assert.Equal(t, "cancelled", snap.Error)
	op, err := f.clips.GetOperation(ctx, c.ClipID, models.OpExport)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SubOpFailed, op.Status)
}

func TestCropCompletesOperationWithResultKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := &models.Clip{ClipID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.ClipReady}
	f.clips.Put(c)
	f.clips.PutOperation(&models.ClipOperation{ClipID: c.ClipID, Operation: models.OpCrop, Status: lifecycle.SubOpPending})
	f.exec.res = &media.Result{OutputKey: "clips/x/crop.json"}
	job := f.claim(t, &models.CropPayload{ClipID: c.ClipID})

	f.w.Process(ctx, job)

	op, err := f.clips.GetOperation(ctx, c.ClipID, models.OpCrop)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SubOpDone, op.Status)
	require.NotNil(t, op.ResultKey)
	assert.Equal(t, "clips/x/crop.json", *op.ResultKey)
}

func TestUndecodablePayloadFailsJob(t *testing.T) {
	f := newFixture(t)
	job := f.claim(t, &models.ProbePayload{VideoID: uuid.New()})
	job.Payload = []byte(`{"op":"transcode","v":1,"data":{}}`)

	f.w.Process(context.Background(), job)

	assert.Equal(t, models.JobFailed, f.jobs.Snapshot(models.OpProbe, job.EntityID).State)
	assert.Equal(t, 0, f.exec.calls)
}

func TestStartConsumesUntilCancelled(t *testing.T) {
	f := newFixture(t)
	cpuCheck = func(float64) (bool, float64) { return true, 0 }
	t.Cleanup(func() { cpuCheck = defaultCPUCheck })

	v := f.video(lifecycle.VideoDownloading)
	_, err := f.jobs.AddJob(context.Background(), &models.DownloadPayload{VideoID: v.VideoID}, 2, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	f.w.Start(ctx)
	assert.Eventually(t, func() bool {
		snap := f.jobs.Snapshot(models.OpDownload, v.VideoID)
		return snap != nil && snap.State == models.JobCompleted
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	f.w.Wait()
}
