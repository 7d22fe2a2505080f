package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/mocks"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	freeTier = models.TierLimit{Name: "free", Rank: 1, Priority: 4, MaxUploadBytes: 100 << 20}
	proTier  = models.TierLimit{Name: "pro", Rank: 2, Priority: 2, MaxUploadBytes: 2 << 30}
	bigTier  = models.TierLimit{Name: "studio", Rank: 3, Priority: 1, MaxUploadBytes: 100 << 30}
)

type fixture struct {
	uc     *uploadUC
	videos *mocks.VideoRepo
	store  *mocks.ObjectStore
	jobs   *mocks.Dispatcher
	policy *models.Policy
}

func newFixture(t *testing.T, tier models.TierLimit) *fixture {
	t.Helper()
	cfg := &config.Config{
		S3: config.S3Config{InputBucket: "in", OutputBucket: "out"},
		Upload: config.UploadConfig{
			ChunkSize:         5_000_000,
			MaxParts:          10000,
			MaxBatchPartURLs:  100,
			PresignTTL:        time.Hour,
			SessionTTL:        24 * time.Hour,
			AllowedMimeTypes:  []string{"video/mp4", "video/quicktime"},
			AllowedExtensions: []string{".mp4", ".mov"},
		},
	}
	f := &fixture{
		videos: mocks.NewVideoRepo(),
		store:  mocks.NewObjectStore(),
		jobs:   mocks.NewDispatcher(),
		policy: models.NewPolicy(uuid.New(), tier, []models.TierLimit{freeTier, proTier, bigTier}),
	}
	f.uc = NewUploadUseCase(cfg, f.videos, f.store, f.jobs, logger.NewNop()).(*uploadUC)
	return f
}

func (f *fixture) init(t *testing.T, size int64) *models.InitUploadResult {
	t.Helper()
	res, err := f.uc.InitUpload(context.Background(), f.policy, &models.InitUploadInput{
		FileName:    "clip.mp4",
		SizeBytes:   size,
		ContentType: "video/mp4",
	})
	require.NoError(t, err)
	return res
}

func TestTotalParts(t *testing.T) {
	cases := []struct {
		size, chunk int64
		want        int
	}{
		{26_000_000, 5_000_000, 6},
		{25_000_000, 5_000_000, 5},
		{1, 5_000_000, 1},
		{5_000_001, 5_000_000, 2},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TotalParts(c.size, c.chunk), "size %d", c.size)
	}
}

func TestInitUploadIssuesOneURLPerPart(t *testing.T) {
	f := newFixture(t, proTier)
	res := f.init(t, 26_000_000)

	require.Equal(t, 6, res.TotalParts)
	require.Len(t, res.PartURLs, 6)
	seenNumbers := map[int32]bool{}
	seenURLs := map[string]bool{}
	for _, p := range res.PartURLs {
		assert.True(t, p.PartNumber >= 1 && p.PartNumber <= 6)
		seenNumbers[p.PartNumber] = true
		seenURLs[p.URL] = true
	}
	assert.Len(t, seenNumbers, 6)
	assert.Len(t, seenURLs, 6)

	video, err := f.videos.GetVideoByID(context.Background(), res.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoAwaitingUpload, video.Status)
	assert.Equal(t, res.SessionID, *video.UploadID)
	assert.Equal(t, res.StorageKey, *video.UploadKey)
	assert.Equal(t, 0, f.jobs.Enqueued)
}

func TestInitUploadRejectsTooManyParts(t *testing.T) {
	f := newFixture(t, bigTier)
	_, err := f.uc.InitUpload(context.Background(), f.policy, &models.InitUploadInput{
		FileName:    "long.mp4",
		SizeBytes:   5_000_000*10000 + 1,
		ContentType: "video/mp4",
	})
	require.ErrorIs(t, err, apperrors.ErrTooManyParts)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	assert.Equal(t, 0, f.store.Calls("CreateMultipartUpload"))
	assert.Equal(t, 0, f.videos.Len())
}

func TestInitUploadQuotaCarriesUpgradeHint(t *testing.T) {
	f := newFixture(t, freeTier)
	_, err := f.uc.InitUpload(context.Background(), f.policy, &models.InitUploadInput{
		FileName:    "big.mov",
		SizeBytes:   500 << 20,
		ContentType: "video/quicktime",
	})
	var quota *apperrors.QuotaExceededError
	require.True(t, errors.As(err, &quota))
	assert.Equal(t, apperrors.QuotaFileSize, quota.Reason)
	assert.Equal(t, "free", quota.CurrentTier)
	assert.Equal(t, "pro", quota.RecommendedTier)
	assert.Equal(t, int64(500<<20), quota.Attempted)
	assert.Equal(t, http.StatusPaymentRequired, apperrors.HTTPStatus(err))
}

func TestInitUploadValidatesMediaType(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()

	_, err := f.uc.InitUpload(ctx, f.policy, &models.InitUploadInput{FileName: "a.mp4", SizeBytes: 10, ContentType: "image/png"})
	var validation *apperrors.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "content_type", validation.Field)

	_, err = f.uc.InitUpload(ctx, f.policy, &models.InitUploadInput{FileName: "a.exe", SizeBytes: 10, ContentType: "video/mp4"})
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "filename", validation.Field)

	res, err := f.uc.InitUpload(ctx, f.policy, &models.InitUploadInput{FileName: "recording", SizeBytes: 10, ContentType: "video/mp4"})
	require.NoError(t, err)
	assert.Contains(t, res.StorageKey, "recording.mp4")
}

func TestResumeReturnsOnlyMissingParts(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	res := f.init(t, 26_000_000)
	for _, n := range []int32{1, 2, 4} {
		f.store.PutPart(res.SessionID, n, 5_000_000)
	}

	resumed, err := f.uc.ResumeUpload(ctx, f.policy, &models.ResumeUploadInput{SessionID: res.SessionID, StorageKey: res.StorageKey, TotalParts: 6})
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 5, 6}, resumed.RemainingParts)
	assert.False(t, resumed.IsComplete)
	require.Len(t, resumed.PartURLs, 3)
	assert.Equal(t, int32(3), resumed.PartURLs[0].PartNumber)

	for _, n := range []int32{3, 5, 6} {
		f.store.PutPart(res.SessionID, n, 1_000_000)
	}
	resumed, err = f.uc.ResumeUpload(ctx, f.policy, &models.ResumeUploadInput{SessionID: res.SessionID, StorageKey: res.StorageKey, TotalParts: 6})
	require.NoError(t, err)
	assert.Empty(t, resumed.RemainingParts)
	assert.Empty(t, resumed.PartURLs)
	assert.True(t, resumed.IsComplete)
}

func TestResumeRejectsTotalOtherThanPlanned(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	res := f.init(t, 26_000_000)
	for _, n := range []int32{1, 2, 3} {
		f.store.PutPart(res.SessionID, n, 5_000_000)
	}
	presigned := f.store.Calls("PresignUploadPart")

	for _, total := range []int{3, 9} {
		resumed, err := f.uc.ResumeUpload(ctx, f.policy, &models.ResumeUploadInput{SessionID: res.SessionID, StorageKey: res.StorageKey, TotalParts: total})
		var validation *apperrors.ValidationError
		require.True(t, errors.As(err, &validation), "total_parts=%d", total)
		assert.Equal(t, "total_parts", validation.Field)
		assert.Nil(t, resumed)
	}
	assert.Equal(t, presigned, f.store.Calls("PresignUploadPart"))

	resumed, err := f.uc.ResumeUpload(ctx, f.policy, &models.ResumeUploadInput{SessionID: res.SessionID, StorageKey: res.StorageKey, TotalParts: 6})
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 5, 6}, resumed.RemainingParts)
	assert.False(t, resumed.IsComplete)
}

func TestResumeAfterBackendExpiryIsSessionExpired(t *testing.T) {
	f := newFixture(t, proTier)
	res := f.init(t, 12_000_000)
	f.store.ExpireSession(res.SessionID)

	_, err := f.uc.ResumeUpload(context.Background(), f.policy, &models.ResumeUploadInput{SessionID: res.SessionID, StorageKey: res.StorageKey, TotalParts: 3})
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, http.StatusGone, apperrors.HTTPStatus(err))
}

func TestAbortTwiceTouchesBackendOnce(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	res := f.init(t, 12_000_000)
	in := &models.AbortUploadInput{SessionID: res.SessionID, StorageKey: res.StorageKey}

	require.NoError(t, f.uc.AbortUpload(ctx, f.policy, in))
	require.NoError(t, f.uc.AbortUpload(ctx, f.policy, in))

	assert.Equal(t, 1, f.store.Calls("AbortMultipartUpload"))
	assert.Equal(t, 0, f.videos.Len())
}

func TestAbortOfUnknownSessionSucceeds(t *testing.T) {
	f := newFixture(t, proTier)
	err := f.uc.AbortUpload(context.Background(), f.policy, &models.AbortUploadInput{SessionID: "nope", StorageKey: "uploads/x"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.Calls("AbortMultipartUpload"))
}

func completeAll(t *testing.T, f *fixture, res *models.InitUploadResult) *models.CompleteUploadInput {
	t.Helper()
	parts := make([]models.CompletedPart, 0, res.TotalParts)
	for n := int32(1); n <= int32(res.TotalParts); n++ {
		f.store.PutPart(res.SessionID, n, 5_000_000)
		parts = append(parts, models.CompletedPart{PartNumber: n, ETag: "etag"})
	}
	return &models.CompleteUploadInput{SessionID: res.SessionID, StorageKey: res.StorageKey, Parts: parts}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	res := f.init(t, 26_000_000)
	in := completeAll(t, f, res)

	first, err := f.uc.CompleteUpload(ctx, f.policy, in)
	require.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)
	assert.Equal(t, string(lifecycle.VideoAwaitingConfig), first.Status)
	require.NotNil(t, first.NextJob)
	assert.Equal(t, models.OpProbe, first.NextJob.Operation)
	assert.Equal(t, proTier.Priority, first.NextJob.Priority)

	second, err := f.uc.CompleteUpload(ctx, f.policy, in)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, first.StorageKey, second.StorageKey)
	require.NotNil(t, second.NextJob)
	assert.Equal(t, first.NextJob.ID, second.NextJob.ID)

	assert.Equal(t, 1, f.jobs.Enqueued)
	assert.Equal(t, 1, f.store.Calls("CompleteMultipartUpload"))

	video, err := f.videos.GetVideoByID(ctx, res.VideoID)
	require.NoError(t, err)
	assert.Equal(t, res.StorageKey, *video.StorageKey)
	assert.NotEmpty(t, *video.StorageURL)
}

func TestCompleteRecoversWhenObjectAlreadyAssembled(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	res := f.init(t, 12_000_000)
	in := completeAll(t, f, res)

	// The backend finished the object but the session is gone.
	f.store.ExpireSession(res.SessionID)
	f.store.PutObject("in", res.StorageKey)

	out, err := f.uc.CompleteUpload(ctx, f.policy, in)
	require.NoError(t, err)
	assert.False(t, out.AlreadyCompleted)
	assert.Equal(t, 1, f.jobs.Enqueued)
}

func TestCompleteRejectsPartsOutsidePlan(t *testing.T) {
	f := newFixture(t, proTier)
	res := f.init(t, 12_000_000)
	_, err := f.uc.CompleteUpload(context.Background(), f.policy, &models.CompleteUploadInput{
		SessionID:  res.SessionID,
		StorageKey: res.StorageKey,
		Parts:      []models.CompletedPart{{PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}, {PartNumber: 9, ETag: "c"}},
	})
	var validation *apperrors.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, 0, f.store.Calls("CompleteMultipartUpload"))
}

func TestCompleteRejectsPartialManifest(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	res := f.init(t, 26_000_000)
	for _, n := range []int32{1, 2} {
		f.store.PutPart(res.SessionID, n, 5_000_000)
	}

	_, err := f.uc.CompleteUpload(ctx, f.policy, &models.CompleteUploadInput{
		SessionID:  res.SessionID,
		StorageKey: res.StorageKey,
		Parts:      []models.CompletedPart{{PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}},
	})
	var validation *apperrors.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "parts", validation.Field)
	assert.Equal(t, 0, f.store.Calls("CompleteMultipartUpload"))
	assert.Equal(t, 0, f.jobs.Enqueued)

	video, err := f.videos.GetVideoByID(ctx, res.VideoID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.VideoAwaitingUpload, video.Status)
}

func TestCompleteQueueFailureIsUpstreamError(t *testing.T) {
	f := newFixture(t, proTier)
	res := f.init(t, 12_000_000)
	in := completeAll(t, f, res)
	f.jobs.AddErr = errors.New("redis down")

	_, err := f.uc.CompleteUpload(context.Background(), f.policy, in)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestBatchPartURLsAreCappedAndDeduplicated(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	res := f.init(t, 26_000_000)

	urls, err := f.uc.GetBatchPartURLs(ctx, f.policy, &models.BatchPartURLInput{
		SessionID: res.SessionID, StorageKey: res.StorageKey, PartNumbers: []int32{4, 2, 4},
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.Equal(t, int32(2), urls[0].PartNumber)

	_, err = f.uc.GetBatchPartURLs(ctx, f.policy, &models.BatchPartURLInput{
		SessionID: res.SessionID, StorageKey: res.StorageKey, PartNumbers: []int32{7},
	})
	require.Error(t, err)

	f.uc.cfg.Upload.MaxBatchPartURLs = 1
	_, err = f.uc.GetBatchPartURLs(ctx, f.policy, &models.BatchPartURLInput{
		SessionID: res.SessionID, StorageKey: res.StorageKey, PartNumbers: []int32{1, 2},
	})
	require.Error(t, err)
}

func TestSessionsAreScopedToTheirOwner(t *testing.T) {
	f := newFixture(t, proTier)
	res := f.init(t, 12_000_000)
	stranger := models.NewPolicy(uuid.New(), proTier, nil)

	_, err := f.uc.GetPartURL(context.Background(), stranger, &models.PartURLInput{
		SessionID: res.SessionID, StorageKey: res.StorageKey, PartNumber: 1,
	})
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

func TestExpireStaleUploads(t *testing.T) {
	f := newFixture(t, proTier)
	ctx := context.Background()
	f.init(t, 12_000_000)
	f.init(t, 12_000_000)

	n, err := f.uc.ExpireStaleUploads(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.uc.ExpireStaleUploads(ctx, time.Now().Add(48*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, f.videos.Len())
	assert.Equal(t, 2, f.store.Calls("AbortMultipartUpload"))
}
