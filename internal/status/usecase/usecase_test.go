package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/mocks"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	uc     *statusUC
	videos *mocks.VideoRepo
	clips  *mocks.ClipRepo
	jobs   *mocks.Dispatcher
	policy *models.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		videos: mocks.NewVideoRepo(),
		clips:  mocks.NewClipRepo(),
		jobs:   mocks.NewDispatcher(),
		policy: models.NewPolicy(uuid.New(), models.TierLimit{Name: "free", Rank: 1, Priority: 4}, nil),
	}
	f.uc = NewStatusUseCase(f.videos, f.clips, f.jobs, logger.NewNop()).(*statusUC)
	return f
}

func (f *fixture) video(status lifecycle.VideoStatus, updated time.Time) *models.Video {
	v := &models.Video{VideoID: uuid.New(), UserID: f.policy.UserID, Status: status, UpdatedAt: updated}
	f.videos.Put(v)
	return v
}

func (f *fixture) enqueue(t *testing.T, p models.Payload) *models.JobHandle {
	t.Helper()
	h, err := f.jobs.AddJob(context.Background(), p, 4, 0)
	require.NoError(t, err)
	return h
}

func TestVideoStatusWithoutJobUsesEntity(t *testing.T) {
	f := newFixture(t)
	v := f.video(lifecycle.VideoTranscribing, time.Now())

	view, err := f.uc.GetVideoStatus(context.Background(), f.policy, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoTranscribing, view.Status)
	assert.Equal(t, models.SourceEntity, view.Source)
	assert.Nil(t, view.Job)
}

func TestVideoStatusReportsActiveJobProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.video(lifecycle.VideoTranscribing, time.Now())
	f.enqueue(t, &models.TranscribePayload{VideoID: v.VideoID})
	job, err := f.jobs.ClaimJob(ctx)
	require.NoError(t, err)
	_, err = f.jobs.ReportProgress(ctx, job, 42)
	require.NoError(t, err)

	view, err := f.uc.GetVideoStatus(ctx, f.policy, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoTranscribing, view.Status)
	assert.Equal(t, models.SourceQueue, view.Source)
	assert.Equal(t, 42.0, view.Progress)
	require.NotNil(t, view.Job)
	assert.Equal(t, models.JobActive, view.Job.State)
}

func TestVideoStatusFailedJobSurfacesFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.video(lifecycle.VideoAnalyzing, time.Now().Add(-time.Minute))
	f.enqueue(t, &models.AnalyzePayload{VideoID: v.VideoID})
	job, err := f.jobs.ClaimJob(ctx)
	require.NoError(t, err)
	require.NoError(t, f.jobs.FailJob(ctx, job, "model timeout"))

	view, err := f.uc.GetVideoStatus(ctx, f.policy, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoFailed, view.Status)
	assert.Equal(t, lifecycle.VideoAnalyzing, view.PersistedStatus)
	assert.Equal(t, "model timeout", view.ErrorMessage)
}

func TestVideoStatusNeverRegressesBelowEntity(t *testing.T) {
	f := newFixture(t)
	v := f.video(lifecycle.VideoCompleted, time.Now())
	// A leftover probe job has no bearing on a completed video.
	f.enqueue(t, &models.ProbePayload{VideoID: v.VideoID})

	view, err := f.uc.GetVideoStatus(context.Background(), f.policy, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoCompleted, view.Status)
	assert.Equal(t, 100.0, view.Progress)
	assert.Equal(t, models.SourceEntity, view.Source)
}

func TestVideoStatusIgnoresJobFinishedBeforeEntityUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()
	f.enqueue(t, &models.AnalyzePayload{VideoID: id})
	job, err := f.jobs.ClaimJob(ctx)
	require.NoError(t, err)
	require.NoError(t, f.jobs.FailJob(ctx, job, "old run"))

	f.videos.Put(&models.Video{VideoID: id, UserID: f.policy.UserID, Status: lifecycle.VideoAnalyzing, UpdatedAt: time.Now().Add(time.Minute)})

	view, err := f.uc.GetVideoStatus(ctx, f.policy, id)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoAnalyzing, view.Status)
	assert.Nil(t, view.Job)
}

func TestVideoStatusFallsBackWhenQueueUnavailable(t *testing.T) {
	f := newFixture(t)
	v := f.video(lifecycle.VideoDownloading, time.Now())
	f.jobs.GetErr = errors.New("connection refused")

	view, err := f.uc.GetVideoStatus(context.Background(), f.policy, v.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoDownloading, view.Status)
	assert.Equal(t, models.SourceEntity, view.Source)
}

func TestVideoStatusHidesForeignVideo(t *testing.T) {
	f := newFixture(t)
	v := &models.Video{VideoID: uuid.New(), UserID: uuid.New(), Status: lifecycle.VideoCompleted}
	f.videos.Put(v)

	_, err := f.uc.GetVideoStatus(context.Background(), f.policy, v.VideoID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOperationStatusMergesQueueState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := &models.Clip{ClipID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.ClipReady}
	f.clips.Put(c)
	h := f.enqueue(t, &models.CropPayload{ClipID: c.ClipID})
	f.clips.PutOperation(&models.ClipOperation{ClipID: c.ClipID, Operation: models.OpCrop, Status: lifecycle.SubOpPending, JobID: &h.ID})
	f.jobs.Start(models.OpCrop, c.ClipID)

	view, err := f.uc.GetOperationStatus(ctx, f.policy, c.ClipID, models.OpCrop)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SubOpProcessing, view.Status)
	assert.Equal(t, lifecycle.SubOpPending, view.PersistedStatus)
	assert.Equal(t, models.SourceQueue, view.Source)
}

func TestOperationStatusIgnoresJobFromAnotherRun(t *testing.T) {
	f := newFixture(t)
	c := &models.Clip{ClipID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.ClipReady}
	f.clips.Put(c)
	f.enqueue(t, &models.CropPayload{ClipID: c.ClipID})
	other := "another-run"
	f.clips.PutOperation(&models.ClipOperation{ClipID: c.ClipID, Operation: models.OpCrop, Status: lifecycle.SubOpPending, JobID: &other})

	view, err := f.uc.GetOperationStatus(context.Background(), f.policy, c.ClipID, models.OpCrop)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SubOpPending, view.Status)
	assert.Nil(t, view.Job)
}

func TestOperationStatusNeverRequested(t *testing.T) {
	f := newFixture(t)
	c := &models.Clip{ClipID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.ClipReady}
	f.clips.Put(c)

	view, err := f.uc.GetOperationStatus(context.Background(), f.policy, c.ClipID, models.OpExport)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.SubOpNotStarted, view.Status)

	_, err = f.uc.GetOperationStatus(context.Background(), f.policy, c.ClipID, models.OpProbe)
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestClipStatusListsOperations(t *testing.T) {
	f := newFixture(t)
	c := &models.Clip{ClipID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.ClipExported, ExportCount: 2}
	f.clips.Put(c)
	key := "exports/x/2.mp4"
	f.clips.PutOperation(&models.ClipOperation{ClipID: c.ClipID, Operation: models.OpExport, Status: lifecycle.SubOpDone, ResultKey: &key})

	view, err := f.uc.GetClipStatus(context.Background(), f.policy, c.ClipID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ClipExported, view.Status)
	assert.Equal(t, 100.0, view.Progress)
	assert.Equal(t, 2, view.ExportCount)
	require.Len(t, view.Operations, 1)
	assert.Equal(t, key, view.Operations[0].ResultKey)
	assert.Equal(t, 100.0, view.Operations[0].Progress)
}

func TestClipStatusFollowsGenerationJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := &models.Clip{ClipID: uuid.New(), UserID: f.policy.UserID, Status: lifecycle.ClipGenerating}
	f.clips.Put(c)
	f.enqueue(t, &models.GenerateClipPayload{ClipID: c.ClipID})
	job, err := f.jobs.ClaimJob(ctx)
	require.NoError(t, err)
	_, err = f.jobs.ReportProgress(ctx, job, 70)
	require.NoError(t, err)

	view, err := f.uc.GetClipStatus(ctx, f.policy, c.ClipID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ClipGenerating, view.Status)
	assert.Equal(t, 70.0, view.Progress)
	assert.Equal(t, models.SourceQueue, view.Source)
}

func TestQueueSubOpStatus(t *testing.T) {
	assert.Equal(t, lifecycle.SubOpPending, QueueSubOpStatus(models.JobDelayed))
	assert.Equal(t, lifecycle.SubOpProcessing, QueueSubOpStatus(models.JobActive))
	assert.Equal(t, lifecycle.SubOpDone, QueueSubOpStatus(models.JobCompleted))
	assert.Equal(t, lifecycle.SubOpFailed, QueueSubOpStatus(models.JobFailed))
}
